package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/logger"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// 回合数上限：BONUS_TURN加成不会超过此值
const turnCap = 5

// EventSink 会话事件出口
// 引擎在事务提交成功后投递事件，由投递层（WebSocket hub）广播给会话内的连接。
type EventSink interface {
	Publish(community, room, event string, data map[string]interface{})
}

// Archiver 完局归档出口
// 终局盒子开启后尽力写入，失败只记录日志，不影响开盒事务。
type Archiver interface {
	ArchiveSession(ctx context.Context, snapshot *ArchiveSnapshot) error
}

// ArchiveSnapshot 完局归档快照
type ArchiveSnapshot struct {
	Community    string
	Room         string
	Seed         int64
	CompletedAt  time.Time
	Participants []*models.Participant
	Ownerships   []*models.BoxOwnership
	Prizes       []*models.Prize
}

// Config 引擎配置
type Config struct {
	// PreviewTTL 预览有效期，超时后需重新生成
	PreviewTTL time.Duration
}

// Engine 游戏引擎
// 每个状态变更操作都在单个存储事务内完成读取、校验与写入；
// 前置条件不满足时整体回滚，不产生半截状态。
type Engine struct {
	repos    *repository.Manager
	sink     EventSink
	archiver Archiver
	previews *PreviewStore
	log      *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewEngine 创建游戏引擎
// sink与archiver可为nil，对应能力降级为仅记录日志。
func NewEngine(repos *repository.Manager, cfg Config, sink EventSink, archiver Archiver) *Engine {
	ttl := cfg.PreviewTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Engine{
		repos:    repos,
		sink:     sink,
		archiver: archiver,
		previews: NewPreviewStore(ttl),
		log:      logger.GetModuleLogger("game"),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Close 释放引擎资源
func (e *Engine) Close() {
	e.previews.Close()
}

// SessionKey 会话键的日志表示
func SessionKey(community, room string) string {
	return community + "/" + room
}

// newSessionSeed 新会话种子，范围 [100000, 999999]
func (e *Engine) newSessionSeed() int64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return 100000 + e.rand.Int63n(900000)
}

// newPreviewSalt 预览盐：首次生成取 [0,9999]，重掷取 [1,99999]
func (e *Engine) newPreviewSalt(regenerate bool) int64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	if regenerate {
		return 1 + e.rand.Int63n(99999)
	}
	return e.rand.Int63n(10000)
}

// publish 记录游戏事件并广播到会话
func (e *Engine) publish(community, room, event string, data map[string]interface{}) {
	logger.LogGameEvent(event, SessionKey(community, room), data)
	if e.sink != nil {
		e.sink.Publish(community, room, event, data)
	}
}

// validateKey 校验会话键
func validateKey(community, room string) error {
	if strings.TrimSpace(community) == "" || strings.TrimSpace(room) == "" {
		return errors.New(errors.ErrInvalidParam, "会话键不能为空")
	}
	return nil
}

// findSession 读取会话，必须存在
func findSession(ctx context.Context, repo repository.SessionRepository, community, room string) (*models.Session, error) {
	session, err := repo.FindByKey(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if session == nil {
		return nil, errors.New(errors.ErrSessionNotFound)
	}
	return session, nil
}

// findRunningSession 读取进行中的会话：已锁定且未完局
func findRunningSession(ctx context.Context, repo repository.SessionRepository, community, room string) (*models.Session, error) {
	session, err := findSession(ctx, repo, community, room)
	if err != nil {
		return nil, err
	}
	return checkRunning(session)
}

// findSessionForUpdate 在事务内加行锁读取会话
// 状态变更事务都从这里取会话行，同一会话的并发变更被串行化。
func findSessionForUpdate(ctx context.Context, tx *repository.Transaction, community, room string) (*models.Session, error) {
	session, err := tx.Session().LockByKey(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if session == nil {
		return nil, errors.New(errors.ErrSessionNotFound)
	}
	return session, nil
}

// findRunningSessionForUpdate 行锁版本的进行中会话读取
func findRunningSessionForUpdate(ctx context.Context, tx *repository.Transaction, community, room string) (*models.Session, error) {
	session, err := findSessionForUpdate(ctx, tx, community, room)
	if err != nil {
		return nil, err
	}
	return checkRunning(session)
}

// checkRunning 校验会话处于进行中：已锁定且未完局
func checkRunning(session *models.Session) (*models.Session, error) {
	if !session.Locked {
		return nil, errors.New(errors.ErrSessionNotLocked)
	}
	if session.Complete {
		return nil, errors.New(errors.ErrSessionComplete)
	}
	return session, nil
}

// findActiveParticipant 读取未淘汰的参与者
func findActiveParticipant(ctx context.Context, repo repository.ParticipantRepository, community, room string, userID int64) (*models.Participant, error) {
	participant, err := repo.Find(ctx, community, room, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if participant == nil {
		return nil, errors.New(errors.ErrNotParticipant)
	}
	if participant.Eliminated {
		return nil, errors.New(errors.ErrEliminated)
	}
	return participant, nil
}

// ensureBoxMaterials 为指定盒子生成秘密与空席位（已存在则保持原值）
// 短语与牌堆由会话种子决定，生成后不再变化。
func ensureBoxMaterials(ctx context.Context, tx *repository.Transaction, session *models.Session, box int) error {
	phrase, deck := content.PhraseAndDeck(session.Seed, box)

	if _, err := tx.BoxSecret().CreateIfAbsent(ctx, &models.BoxSecret{
		Community: session.Community,
		Room:      session.Room,
		Box:       box,
		Phrase:    phrase.String(),
		Deck:      deck,
		Revealed:  models.IntSet{},
	}); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "生成盒子秘密失败")
	}

	if _, err := tx.SlotState().CreateIfAbsent(ctx, &models.SlotState{
		Community: session.Community,
		Room:      session.Room,
		Box:       box,
	}); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "建立席位状态失败")
	}

	return nil
}

// fetchSlot 行锁读取盒子席位，缺行时落一个空席位
func fetchSlot(ctx context.Context, tx *repository.Transaction, community, room string, box int) (*models.SlotState, error) {
	slot, err := tx.SlotState().LockByBox(ctx, community, room, box)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if slot == nil {
		slot, err = tx.SlotState().CreateIfAbsent(ctx, &models.SlotState{
			Community: community,
			Room:      room,
			Box:       box,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseInsert)
		}
	}
	return slot, nil
}

// boxLabel 盒子的展示名
func boxLabel(box int) string {
	if box == content.MegaBox {
		return fmt.Sprintf("Box %d (MEGA)", box)
	}
	return fmt.Sprintf("Box %d", box)
}
