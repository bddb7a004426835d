package repository

import (
	"testing"
	"time"

	"github.com/MugzLord/WIB/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// allModels 全部待迁移模型
func allModels() []interface{} {
	return []interface{}{
		&models.Session{},
		&models.Participant{},
		&models.BoxSecret{},
		&models.SlotState{},
		&models.BoxOwnership{},
		&models.Prize{},
		&models.TriviaRound{},
		&models.TriviaSubmission{},
		&models.OrderRound{},
		&models.PuzzleAttempt{},
	}
}

// SetupTestDB 为测试套件建立内存数据库
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		panic(err)
	}

	// 内存库绑定单连接，多连接各自为空库
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(allModels()...); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestDB 创建测试数据库
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(allModels()...))

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CreateTestSession 创建测试会话
func CreateTestSession(community, room string, seed int64) *models.Session {
	return &models.Session{
		Community:  community,
		Room:       room,
		Seed:       seed,
		CurrentBox: 1,
	}
}

// CreateTestParticipant 创建测试参与者
func CreateTestParticipant(community, room string, userID int64, name string) *models.Participant {
	return &models.Participant{
		Community:   community,
		Room:        room,
		UserID:      userID,
		DisplayName: name,
	}
}

// CreateTestDeck 创建固定组成的测试牌堆
func CreateTestDeck() models.CardDeck {
	return models.CardDeck{
		{Kind: models.CardPiece, Word: 1},
		{Kind: models.CardPiece, Word: 2},
		{Kind: models.CardPiece, Word: 3},
		{Kind: models.CardPass},
		{Kind: models.CardPiece, Word: 2},
		{Kind: models.CardSteal},
		{Kind: models.CardPass},
		{Kind: models.CardPiece, Word: 1},
		{Kind: models.CardDonate},
		{Kind: models.CardWildcard},
	}
}

// CreateTestSecret 创建测试盒子秘密
func CreateTestSecret(community, room string, box int) *models.BoxSecret {
	return &models.BoxSecret{
		Community: community,
		Room:      room,
		Box:       box,
		Phrase:    "GOLDEN TRUE HORIZON",
		Deck:      CreateTestDeck(),
		Revealed:  models.IntSet{},
	}
}

// CreateTestAttempt 创建测试猜测记录
func CreateTestAttempt(community, room string, box, attemptID int, userID int64, words []string, at time.Time) *models.PuzzleAttempt {
	return &models.PuzzleAttempt{
		Community:   community,
		Room:        room,
		Box:         box,
		AttemptID:   attemptID,
		UserID:      userID,
		Words:       models.StringList(words),
		SubmittedAt: at,
	}
}

// AssertParticipant 验证参与者关键字段
func AssertParticipant(t *testing.T, expected, actual *models.Participant) {
	assert.Equal(t, expected.UserID, actual.UserID)
	assert.Equal(t, expected.DisplayName, actual.DisplayName)
	assert.Equal(t, expected.Eliminated, actual.Eliminated)
}
