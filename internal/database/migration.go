package database

import (
	"fmt"

	"github.com/MugzLord/WIB/internal/logger"
	"github.com/MugzLord/WIB/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	migrationModels := []interface{}{
		// 会话与参与者
		&models.Session{},
		&models.Participant{},

		// 盒子
		&models.BoxSecret{},
		&models.SlotState{},
		&models.BoxOwnership{},
		&models.Prize{},

		// 回合
		&models.TriviaRound{},
		&models.TriviaSubmission{},
		&models.OrderRound{},
		&models.PuzzleAttempt{},
	}

	logger.Info("开始数据库迁移...")

	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(db); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建辅助查询索引
// 唯一索引由模型标签声明，这里补充高频查询的组合索引。
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_participants_active ON participants(community, room, eliminated)",
		"CREATE INDEX IF NOT EXISTS idx_trivia_submissions_order ON trivia_submissions(community, room, box, submitted_at)",
		"CREATE INDEX IF NOT EXISTS idx_puzzle_attempts_checked ON puzzle_attempts(community, room, box, checked)",
		"CREATE INDEX IF NOT EXISTS idx_box_ownership_owner ON box_ownership(community, room, owner_user_id)",
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}
