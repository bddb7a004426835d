package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MugzLord/WIB/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BoxSecretRepository 盒子秘密仓储接口
type BoxSecretRepository interface {
	BaseRepository
	CreateIfAbsent(ctx context.Context, secret *models.BoxSecret) (*models.BoxSecret, error)
	FindByBox(ctx context.Context, community, room string, box int) (*models.BoxSecret, error)
	LockByBox(ctx context.Context, community, room string, box int) (*models.BoxSecret, error)
	Save(ctx context.Context, secret *models.BoxSecret) error
}

// boxSecretRepo 盒子秘密仓储实现
type boxSecretRepo struct {
	*BaseRepo
}

// NewBoxSecretRepository 创建盒子秘密仓储
func NewBoxSecretRepository(db *gorm.DB) BoxSecretRepository {
	return &boxSecretRepo{BaseRepo: NewBaseRepo(db)}
}

// CreateIfAbsent 不存在则写入秘密，已存在时保留原值
// 短语与牌堆在盒子建立后不再变化。
func (r *boxSecretRepo) CreateIfAbsent(ctx context.Context, secret *models.BoxSecret) (*models.BoxSecret, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoNothing: true,
	}).Create(secret).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.FindByBox(ctx, secret.Community, secret.Room, secret.Box)
}

// FindByBox 按盒子查找秘密，未命中返回 (nil, nil)
func (r *boxSecretRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.BoxSecret, error) {
	var secret models.BoxSecret
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&secret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// LockByBox 按盒子加行锁读取秘密（悲观锁），未命中返回 (nil, nil)
// 已翻开集合的读改写必须走这里，否则并发翻牌会互相覆盖。
func (r *boxSecretRepo) LockByBox(ctx context.Context, community, room string, box int) (*models.BoxSecret, error) {
	var secret models.BoxSecret
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&secret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// Save 保存盒子秘密（已翻开集合的更新）
func (r *boxSecretRepo) Save(ctx context.Context, secret *models.BoxSecret) error {
	return r.db.WithContext(ctx).Save(secret).Error
}

// SlotStateRepository 席位状态仓储接口
type SlotStateRepository interface {
	BaseRepository
	CreateIfAbsent(ctx context.Context, state *models.SlotState) (*models.SlotState, error)
	FindByBox(ctx context.Context, community, room string, box int) (*models.SlotState, error)
	LockByBox(ctx context.Context, community, room string, box int) (*models.SlotState, error)
	Save(ctx context.Context, state *models.SlotState) error
}

// slotStateRepo 席位状态仓储实现
type slotStateRepo struct {
	*BaseRepo
}

// NewSlotStateRepository 创建席位状态仓储
func NewSlotStateRepository(db *gorm.DB) SlotStateRepository {
	return &slotStateRepo{BaseRepo: NewBaseRepo(db)}
}

// CreateIfAbsent 不存在则建立空席位
func (r *slotStateRepo) CreateIfAbsent(ctx context.Context, state *models.SlotState) (*models.SlotState, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoNothing: true,
	}).Create(state).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.FindByBox(ctx, state.Community, state.Room, state.Box)
}

// FindByBox 按盒子查找席位，未命中返回 (nil, nil)
func (r *slotStateRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.SlotState, error) {
	var state models.SlotState
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// LockByBox 按盒子加行锁读取席位（悲观锁），未命中返回 (nil, nil)
// 翻牌次数的扣减依赖这把锁，两笔并发扣减不能都看到同一个余量。
func (r *slotStateRepo) LockByBox(ctx context.Context, community, room string, box int) (*models.SlotState, error) {
	var state models.SlotState
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Save 保存席位状态
func (r *slotStateRepo) Save(ctx context.Context, state *models.SlotState) error {
	return r.db.WithContext(ctx).Save(state).Error
}

// OwnershipRepository 盒子归属仓储接口
type OwnershipRepository interface {
	BaseRepository
	Upsert(ctx context.Context, ownership *models.BoxOwnership) error
	FindByBox(ctx context.Context, community, room string, box int) (*models.BoxOwnership, error)
	ListByKey(ctx context.Context, community, room string) ([]*models.BoxOwnership, error)
}

// ownershipRepo 盒子归属仓储实现
type ownershipRepo struct {
	*BaseRepo
}

// NewOwnershipRepository 创建盒子归属仓储
func NewOwnershipRepository(db *gorm.DB) OwnershipRepository {
	return &ownershipRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 归属写入，后写覆盖
func (r *ownershipRepo) Upsert(ctx context.Context, ownership *models.BoxOwnership) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_user_id", "updated_at"}),
	}).Create(ownership).Error
}

// FindByBox 按盒子查找归属，未命中返回 (nil, nil)
func (r *ownershipRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.BoxOwnership, error) {
	var ownership models.BoxOwnership
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&ownership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ownership, nil
}

// ListByKey 列出会话全部归属，按盒子升序
func (r *ownershipRepo) ListByKey(ctx context.Context, community, room string) ([]*models.BoxOwnership, error) {
	var ownerships []*models.BoxOwnership
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ?", community, room).
		Order("box ASC").
		Find(&ownerships).Error
	return ownerships, err
}

// PrizeRepository 奖品仓储接口
type PrizeRepository interface {
	BaseRepository
	Upsert(ctx context.Context, prize *models.Prize) error
	FindByBox(ctx context.Context, community, room string, box int) (*models.Prize, error)
	ListByKey(ctx context.Context, community, room string) ([]*models.Prize, error)
}

// prizeRepo 奖品仓储实现
type prizeRepo struct {
	*BaseRepo
}

// NewPrizeRepository 创建奖品仓储
func NewPrizeRepository(db *gorm.DB) PrizeRepository {
	return &prizeRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 写入奖品，可在开盒前反复更新
func (r *prizeRepo) Upsert(ctx context.Context, prize *models.Prize) error {
	if prize.FilledAt.IsZero() {
		prize.FilledAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community"}, {Name: "room"}, {Name: "box"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "filled_by", "filled_at", "updated_at"}),
	}).Create(prize).Error
}

// FindByBox 按盒子查找奖品，未命中返回 (nil, nil)
func (r *prizeRepo) FindByBox(ctx context.Context, community, room string, box int) (*models.Prize, error) {
	var prize models.Prize
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ? AND box = ?", community, room, box).
		First(&prize).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prize, nil
}

// ListByKey 列出会话全部奖品，按盒子升序
func (r *prizeRepo) ListByKey(ctx context.Context, community, room string) ([]*models.Prize, error) {
	var prizes []*models.Prize
	err := r.db.WithContext(ctx).
		Where("community = ? AND room = ?", community, room).
		Order("box ASC").
		Find(&prizes).Error
	return prizes, err
}
