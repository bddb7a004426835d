package repository

import (
	"context"
	"errors"

	"github.com/MugzLord/WIB/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TriviaRoundRepository 抢答题仓储接口
type TriviaRoundRepository interface {
	BaseRepository
	Upsert(ctx context.Context, round *models.TriviaRound) error
	FindByBox(ctx context.Context, community, room string, box int) (*models.TriviaRound, error)
	Save(ctx context.Context, round *models.TriviaRound) error
}

// triviaRoundRepo 抢答题仓储实现
type triviaRoundRepo struct {
	*BaseRepo
}

// NewTriviaRoundRepository 创建抢答题仓储
func NewTriviaRoundRepository(db *gorm.DB) TriviaRoundRepository {
	return &triviaRoundRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 发布题目，重复发布覆盖旧题
func (r *triviaRoundRepo) Upsert(ctx context.Context, round *models.TriviaRound) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoUpdates: clause.AssignmentColumns([]string{"question", "answer", "active", "published_ref", "updated_at"}),
	}).Create(round).Error
}

// FindByBox 按盒子查找题目，未命中返回 (nil, nil)
func (r *triviaRoundRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.TriviaRound, error) {
	var round models.TriviaRound
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// Save 保存题目状态
func (r *triviaRoundRepo) Save(ctx context.Context, round *models.TriviaRound) error {
	return r.db.WithContext(ctx).Save(round).Error
}

// TriviaSubmissionRepository 抢答提交仓储接口
type TriviaSubmissionRepository interface {
	BaseRepository
	Create(ctx context.Context, submission *models.TriviaSubmission) error
	ListByBox(ctx context.Context, community, room string, box int) ([]*models.TriviaSubmission, error)
	DeleteByBox(ctx context.Context, community, room string, box int) error
}

// triviaSubmissionRepo 抢答提交仓储实现
type triviaSubmissionRepo struct {
	*BaseRepo
}

// NewTriviaSubmissionRepository 创建抢答提交仓储
func NewTriviaSubmissionRepository(db *gorm.DB) TriviaSubmissionRepository {
	return &triviaSubmissionRepo{BaseRepo: NewBaseRepo(db)}
}

// Create 写入提交，重复提交返回 gorm.ErrDuplicatedKey
func (r *triviaSubmissionRepo) Create(ctx context.Context, submission *models.TriviaSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// ListByBox 列出盒子全部提交，按提交时间升序
func (r *triviaSubmissionRepo) ListByBox(ctx context.Context, community, room string, box int) ([]*models.TriviaSubmission, error) {
	var submissions []*models.TriviaSubmission
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		Order("submitted_at ASC, id ASC").
		Find(&submissions).Error
	return submissions, err
}

// DeleteByBox 清空盒子的全部提交
// 硬删除：软删除残留会继续命中唯一索引，阻塞重新提交。
func (r *triviaSubmissionRepo) DeleteByBox(ctx context.Context, community, room string, box int) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		Delete(&models.TriviaSubmission{}).Error
}

// OrderRoundRepository 排序题仓储接口
type OrderRoundRepository interface {
	BaseRepository
	Upsert(ctx context.Context, round *models.OrderRound) error
	FindByBox(ctx context.Context, community, room string, box int) (*models.OrderRound, error)
	Save(ctx context.Context, round *models.OrderRound) error
}

// orderRoundRepo 排序题仓储实现
type orderRoundRepo struct {
	*BaseRepo
}

// NewOrderRoundRepository 创建排序题仓储
func NewOrderRoundRepository(db *gorm.DB) OrderRoundRepository {
	return &orderRoundRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 发布排序题，重复发布覆盖旧题
func (r *orderRoundRepo) Upsert(ctx context.Context, round *models.OrderRound) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoUpdates: clause.AssignmentColumns([]string{"prompt", "items", "correct_order", "slot_user_id", "active", "published_ref", "updated_at"}),
	}).Create(round).Error
}

// FindByBox 按盒子查找排序题，未命中返回 (nil, nil)
func (r *orderRoundRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.OrderRound, error) {
	var round models.OrderRound
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// Save 保存排序题状态
func (r *orderRoundRepo) Save(ctx context.Context, round *models.OrderRound) error {
	return r.db.WithContext(ctx).Save(round).Error
}

// PuzzleAttemptRepository 短语猜测仓储接口
type PuzzleAttemptRepository interface {
	BaseRepository
	MaxAttemptID(ctx context.Context, community, room string, box int) (int, error)
	Create(ctx context.Context, attempt *models.PuzzleAttempt) error
	LatestUnchecked(ctx context.Context, community, room string, box int) (*models.PuzzleAttempt, error)
	ListUnchecked(ctx context.Context, community, room string, box int) ([]*models.PuzzleAttempt, error)
	LatestSolved(ctx context.Context, community, room string, box int) (*models.PuzzleAttempt, error)
	Save(ctx context.Context, attempt *models.PuzzleAttempt) error
}

// puzzleAttemptRepo 短语猜测仓储实现
type puzzleAttemptRepo struct {
	*BaseRepo
}

// NewPuzzleAttemptRepository 创建短语猜测仓储
func NewPuzzleAttemptRepository(db *gorm.DB) PuzzleAttemptRepository {
	return &puzzleAttemptRepo{BaseRepo: NewBaseRepo(db)}
}

// MaxAttemptID 当前盒子已分配的最大猜测序号，无记录返回0
func (r *puzzleAttemptRepo) MaxAttemptID(ctx context.Context, community, room string, box int) (int, error) {
	var maxID int
	err := r.db.WithContext(ctx).
		Model(&models.PuzzleAttempt{}).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		Select("COALESCE(MAX(attempt_id), 0)").
		Scan(&maxID).Error
	return maxID, err
}

// Create 写入猜测记录
func (r *puzzleAttemptRepo) Create(ctx context.Context, attempt *models.PuzzleAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// LatestUnchecked 最新一条未核对猜测，未命中返回 (nil, nil)
func (r *puzzleAttemptRepo) LatestUnchecked(ctx context.Context, community, room string, box int) (*models.PuzzleAttempt, error) {
	var attempt models.PuzzleAttempt
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ? AND checked = ?", community, room, box, false).
		Order("attempt_id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListUnchecked 全部未核对猜测，按序号升序
func (r *puzzleAttemptRepo) ListUnchecked(ctx context.Context, community, room string, box int) ([]*models.PuzzleAttempt, error) {
	var attempts []*models.PuzzleAttempt
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ? AND checked = ?", community, room, box, false).
		Order("attempt_id ASC").
		Find(&attempts).Error
	return attempts, err
}

// LatestSolved 最新一条核对为满分的猜测，未命中返回 (nil, nil)
func (r *puzzleAttemptRepo) LatestSolved(ctx context.Context, community, room string, box int) (*models.PuzzleAttempt, error) {
	var attempt models.PuzzleAttempt
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ? AND checked = ? AND score = ?", community, room, box, true, 3).
		Order("attempt_id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Save 保存猜测记录（核对结果回写）
func (r *puzzleAttemptRepo) Save(ctx context.Context, attempt *models.PuzzleAttempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}
