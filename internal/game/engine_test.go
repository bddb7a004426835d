package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// recordingSink 收集引擎推送的事件供断言
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

type sinkEvent struct {
	Community string
	Room      string
	Event     string
	Data      map[string]interface{}
}

func (s *recordingSink) Publish(community, room, event string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{Community: community, Room: room, Event: event, Data: data})
}

// last 返回指定事件最近一次的数据，没有则返回nil
func (s *recordingSink) last(event string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Event == event {
			return s.events[i].Data
		}
	}
	return nil
}

func (s *recordingSink) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// recordingArchiver 收集完局快照
type recordingArchiver struct {
	mu    sync.Mutex
	snaps []*ArchiveSnapshot
}

func (a *recordingArchiver) ArchiveSession(_ context.Context, snapshot *ArchiveSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snapshot)
	return nil
}

func (a *recordingArchiver) snapshots() []*ArchiveSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*ArchiveSnapshot(nil), a.snaps...)
}

func newTestEngine(t *testing.T) (*Engine, *repository.Manager, *recordingSink, *recordingArchiver) {
	t.Helper()
	db := repository.TestDB(t)
	repos := repository.NewManager(db)
	sink := &recordingSink{}
	arch := &recordingArchiver{}
	engine := NewEngine(repos, Config{PreviewTTL: time.Minute}, sink, arch)
	t.Cleanup(engine.Close)
	return engine, repos, sink, arch
}

const (
	testCommunity = "guild-1"
	testRoom      = "room-9"
)

// setupRunning 建会话、报名三人并锁定，返回锁定后的会话
func setupRunning(t *testing.T, e *Engine) *models.Session {
	t.Helper()
	ctx := context.Background()

	_, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)

	for _, p := range []struct {
		id   int64
		name string
	}{{100, "Ava"}, {200, "Ben"}, {300, "Cleo"}} {
		_, err := e.RegisterParticipant(ctx, testCommunity, testRoom, p.id, p.name)
		require.NoError(t, err)
	}

	result, err := e.LockSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Equal(t, 3, result.PlayerCount)
	return result.Session
}

// giveSlot 直接把席位指派给某人并给予翻牌次数
func giveSlot(t *testing.T, repos *repository.Manager, box int, userID int64, turns int) {
	t.Helper()
	ctx := context.Background()

	slot, err := repos.SlotState().FindByBox(ctx, testCommunity, testRoom, box)
	require.NoError(t, err)
	require.NotNil(t, slot, "盒子%d的席位行应当已生成", box)

	slot.SlotUserID = &userID
	slot.TurnsLeft = turns
	slot.PendingAction = models.PendingNone
	slot.PendingRef = ""
	require.NoError(t, repos.SlotState().Save(ctx, slot))
}

// currentSlot 读取指定盒子的席位状态
func currentSlot(t *testing.T, repos *repository.Manager, box int) *models.SlotState {
	t.Helper()
	slot, err := repos.SlotState().FindByBox(context.Background(), testCommunity, testRoom, box)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot
}

// boxPhrase 读取指定盒子的短语词
func boxPhrase(t *testing.T, repos *repository.Manager, box int) []string {
	t.Helper()
	secret, err := repos.BoxSecret().FindByBox(context.Background(), testCommunity, testRoom, box)
	require.NoError(t, err)
	require.NotNil(t, secret, "盒子%d的秘密应当已生成", box)

	phrase := content.ParsePhrase(secret.Phrase)
	return []string{phrase.Word(1), phrase.Word(2), phrase.Word(3)}
}

// setDeck 覆盖指定盒子的牌堆，用于构造受控翻牌场景
func setDeck(t *testing.T, repos *repository.Manager, box int, deck models.CardDeck) {
	t.Helper()
	ctx := context.Background()

	secret, err := repos.BoxSecret().FindByBox(ctx, testCommunity, testRoom, box)
	require.NoError(t, err)
	require.NotNil(t, secret)

	secret.Deck = deck
	secret.Revealed = models.IntSet{}
	require.NoError(t, repos.BoxSecret().Save(ctx, secret))
}

// solveCurrentBox 用正确短语解出当前盒子并判分
func solveCurrentBox(t *testing.T, e *Engine, repos *repository.Manager, solverID int64) {
	t.Helper()
	ctx := context.Background()

	session, err := repos.Session().FindByKey(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.NotNil(t, session)

	words := boxPhrase(t, repos, session.CurrentBox)
	_, err = e.SubmitPuzzleGuess(ctx, testCommunity, testRoom, solverID, words)
	require.NoError(t, err)

	check, err := e.CheckLatestPuzzleAttempt(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.True(t, check.Solved, "正确短语应当判定为解出")
}
