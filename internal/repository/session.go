package repository

import (
	"context"
	"errors"

	"github.com/MugzLord/WIB/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 会话仓储接口
type SessionRepository interface {
	BaseRepository
	CreateIfAbsent(ctx context.Context, session *models.Session) (*models.Session, error)
	FindByKey(ctx context.Context, community, room string) (*models.Session, error)
	LockByKey(ctx context.Context, community, room string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Updates(ctx context.Context, community, room string, updates map[string]interface{}) error
}

// sessionRepo 会话仓储实现
type sessionRepo struct {
	*BaseRepo
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{BaseRepo: NewBaseRepo(db)}
}

// CreateIfAbsent 不存在则创建，返回库中最终行
// 并发下由唯一索引兜底，冲突时返回已有行（先建者生效）。
func (r *sessionRepo) CreateIfAbsent(ctx context.Context, session *models.Session) (*models.Session, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}},
		DoNothing: true,
	}).Create(session).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.FindByKey(ctx, session.Community, session.Room)
}

// FindByKey 按会话键查找，未命中返回 (nil, nil)
func (r *sessionRepo) FindByKey(ctx context.Context, community, room string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ?", community, room).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// LockByKey 按会话键加行锁读取（悲观锁），未命中返回 (nil, nil)
// sqlite 方言不支持行级锁，该子句在 sqlite 下会被忽略。
func (r *sessionRepo) LockByKey(ctx context.Context, community, room string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("community = ? AND room = ?", community, room).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Save 保存会话
func (r *sessionRepo) Save(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// Updates 按会话键更新指定字段
func (r *sessionRepo) Updates(ctx context.Context, community, room string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("community = ? AND room = ?", community, room).
		Updates(updates).Error
}

// ParticipantRepository 参与者仓储接口
type ParticipantRepository interface {
	BaseRepository
	Upsert(ctx context.Context, participant *models.Participant) error
	Find(ctx context.Context, community, room string, userID int64) (*models.Participant, error)
	ListByKey(ctx context.Context, community, room string) ([]*models.Participant, error)
	ListActive(ctx context.Context, community, room string) ([]*models.Participant, error)
	CountActive(ctx context.Context, community, room string) (int64, error)
}

// participantRepo 参与者仓储实现
type participantRepo struct {
	*BaseRepo
}

// NewParticipantRepository 创建参与者仓储
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 报名或重复报名
// 冲突时更新昵称并复位淘汰标记，入局时间保持首次报名值。
func (r *participantRepo) Upsert(ctx context.Context, participant *models.Participant) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "eliminated", "updated_at"}),
	}).Create(participant).Error
}

// Find 查找单个参与者，未命中返回 (nil, nil)
func (r *participantRepo) Find(ctx context.Context, community, room string, userID int64) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND user_id = ?", community, room, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// ListByKey 列出会话全部参与者
func (r *participantRepo) ListByKey(ctx context.Context, community, room string) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ?", community, room).
		Order("LOWER(display_name) ASC").
		Find(&participants).Error
	return participants, err
}

// ListActive 列出未淘汰参与者，按昵称排序（忽略大小写）
func (r *participantRepo) ListActive(ctx context.Context, community, room string) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND eliminated = ?", community, room, false).
		Order("LOWER(display_name) ASC").
		Find(&participants).Error
	return participants, err
}

// CountActive 统计未淘汰参与者数
func (r *participantRepo) CountActive(ctx context.Context, community, room string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("community = ? AND room = ? AND eliminated = ?", community, room, false).
		Count(&count).Error
	return count, err
}
