package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器
// 引擎的每个状态变更操作在一个 Transaction 内完成读、校验、写。
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例（懒加载）
	session          SessionRepository
	participant      ParticipantRepository
	boxSecret        BoxSecretRepository
	slotState        SlotStateRepository
	ownership        OwnershipRepository
	prize            PrizeRepository
	triviaRound      TriviaRoundRepository
	triviaSubmission TriviaSubmissionRepository
	orderRound       OrderRoundRepository
	puzzleAttempt    PuzzleAttemptRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
// 业务错误或panic之外的任何失败都会整体回滚。
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	// 执行业务逻辑
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	// 提交事务
	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// Session 获取事务中的会话仓储
func (t *Transaction) Session() SessionRepository {
	if t.session == nil {
		t.session = NewSessionRepository(t.tx)
	}
	return t.session
}

// Participant 获取事务中的参与者仓储
func (t *Transaction) Participant() ParticipantRepository {
	if t.participant == nil {
		t.participant = NewParticipantRepository(t.tx)
	}
	return t.participant
}

// BoxSecret 获取事务中的盒子秘密仓储
func (t *Transaction) BoxSecret() BoxSecretRepository {
	if t.boxSecret == nil {
		t.boxSecret = NewBoxSecretRepository(t.tx)
	}
	return t.boxSecret
}

// SlotState 获取事务中的席位状态仓储
func (t *Transaction) SlotState() SlotStateRepository {
	if t.slotState == nil {
		t.slotState = NewSlotStateRepository(t.tx)
	}
	return t.slotState
}

// Ownership 获取事务中的盒子归属仓储
func (t *Transaction) Ownership() OwnershipRepository {
	if t.ownership == nil {
		t.ownership = NewOwnershipRepository(t.tx)
	}
	return t.ownership
}

// Prize 获取事务中的奖品仓储
func (t *Transaction) Prize() PrizeRepository {
	if t.prize == nil {
		t.prize = NewPrizeRepository(t.tx)
	}
	return t.prize
}

// TriviaRound 获取事务中的抢答题仓储
func (t *Transaction) TriviaRound() TriviaRoundRepository {
	if t.triviaRound == nil {
		t.triviaRound = NewTriviaRoundRepository(t.tx)
	}
	return t.triviaRound
}

// TriviaSubmission 获取事务中的抢答提交仓储
func (t *Transaction) TriviaSubmission() TriviaSubmissionRepository {
	if t.triviaSubmission == nil {
		t.triviaSubmission = NewTriviaSubmissionRepository(t.tx)
	}
	return t.triviaSubmission
}

// OrderRound 获取事务中的排序题仓储
func (t *Transaction) OrderRound() OrderRoundRepository {
	if t.orderRound == nil {
		t.orderRound = NewOrderRoundRepository(t.tx)
	}
	return t.orderRound
}

// PuzzleAttempt 获取事务中的短语猜测仓储
func (t *Transaction) PuzzleAttempt() PuzzleAttemptRepository {
	if t.puzzleAttempt == nil {
		t.puzzleAttempt = NewPuzzleAttemptRepository(t.tx)
	}
	return t.puzzleAttempt
}
