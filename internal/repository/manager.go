package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问入口
// 引擎持有 Manager 即持有完整的存储层，不依赖包级单例。
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（懒加载）
	sessionOnce sync.Once
	session     SessionRepository

	participantOnce sync.Once
	participant     ParticipantRepository

	boxSecretOnce sync.Once
	boxSecret     BoxSecretRepository

	slotStateOnce sync.Once
	slotState     SlotStateRepository

	ownershipOnce sync.Once
	ownership     OwnershipRepository

	prizeOnce sync.Once
	prize     PrizeRepository

	triviaRoundOnce sync.Once
	triviaRound     TriviaRoundRepository

	triviaSubmissionOnce sync.Once
	triviaSubmission     TriviaSubmissionRepository

	orderRoundOnce sync.Once
	orderRound     OrderRoundRepository

	puzzleAttemptOnce sync.Once
	puzzleAttempt     PuzzleAttemptRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}

// Session 获取会话仓储
func (m *Manager) Session() SessionRepository {
	m.sessionOnce.Do(func() {
		m.session = NewSessionRepository(m.db)
	})
	return m.session
}

// Participant 获取参与者仓储
func (m *Manager) Participant() ParticipantRepository {
	m.participantOnce.Do(func() {
		m.participant = NewParticipantRepository(m.db)
	})
	return m.participant
}

// BoxSecret 获取盒子秘密仓储
func (m *Manager) BoxSecret() BoxSecretRepository {
	m.boxSecretOnce.Do(func() {
		m.boxSecret = NewBoxSecretRepository(m.db)
	})
	return m.boxSecret
}

// SlotState 获取席位状态仓储
func (m *Manager) SlotState() SlotStateRepository {
	m.slotStateOnce.Do(func() {
		m.slotState = NewSlotStateRepository(m.db)
	})
	return m.slotState
}

// Ownership 获取盒子归属仓储
func (m *Manager) Ownership() OwnershipRepository {
	m.ownershipOnce.Do(func() {
		m.ownership = NewOwnershipRepository(m.db)
	})
	return m.ownership
}

// Prize 获取奖品仓储
func (m *Manager) Prize() PrizeRepository {
	m.prizeOnce.Do(func() {
		m.prize = NewPrizeRepository(m.db)
	})
	return m.prize
}

// TriviaRound 获取抢答题仓储
func (m *Manager) TriviaRound() TriviaRoundRepository {
	m.triviaRoundOnce.Do(func() {
		m.triviaRound = NewTriviaRoundRepository(m.db)
	})
	return m.triviaRound
}

// TriviaSubmission 获取抢答提交仓储
func (m *Manager) TriviaSubmission() TriviaSubmissionRepository {
	m.triviaSubmissionOnce.Do(func() {
		m.triviaSubmission = NewTriviaSubmissionRepository(m.db)
	})
	return m.triviaSubmission
}

// OrderRound 获取排序题仓储
func (m *Manager) OrderRound() OrderRoundRepository {
	m.orderRoundOnce.Do(func() {
		m.orderRound = NewOrderRoundRepository(m.db)
	})
	return m.orderRound
}

// PuzzleAttempt 获取短语猜测仓储
func (m *Manager) PuzzleAttempt() PuzzleAttemptRepository {
	m.puzzleAttemptOnce.Do(func() {
		m.puzzleAttempt = NewPuzzleAttemptRepository(m.db)
	})
	return m.puzzleAttempt
}
