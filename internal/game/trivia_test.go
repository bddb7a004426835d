package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// submitAt 以受控时间戳直接落一条抢答提交
func submitAt(t *testing.T, repos *repository.Manager, box int, userID, value int64, at time.Time) {
	t.Helper()
	err := repos.TriviaSubmission().Create(context.Background(), &models.TriviaSubmission{
		Community: testCommunity, Room: testRoom, Box: box,
		UserID: userID, Value: value, SubmittedAt: at,
	})
	require.NoError(t, err)
}

func TestPublishTrivia(t *testing.T) {
	e, repos, sink, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)

	err := e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 42, "msg-1")
	require.NoError(t, err)

	round, err := repos.TriviaRound().FindByBox(ctx, testCommunity, testRoom, 1)
	require.NoError(t, err)
	require.NotNil(t, round)
	assert.True(t, round.Active)
	assert.Equal(t, int64(42), round.Answer)
	assert.Equal(t, "msg-1", round.PublishedRef)

	data := sink.last(EventTriviaPublished)
	require.NotNil(t, data)
	assert.Equal(t, "How many?", data["question"])
}

func TestPublishTrivia_Gates(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	// 未锁定不能发题
	_, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	err = e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 42, "")
	assert.True(t, errors.Is(err, errors.ErrSessionNotLocked))

	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava")
	require.NoError(t, err)
	_, err = e.LockSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)

	// 盒号必须是当前盒
	err = e.PublishTrivia(ctx, testCommunity, testRoom, 2, "How many?", 42, "")
	assert.True(t, errors.Is(err, errors.ErrWrongBox))

	// 空题目
	err = e.PublishTrivia(ctx, testCommunity, testRoom, 1, "  ", 42, "")
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestPublishTrivia_RepublishClearsSubmissions(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)

	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "Round A?", 10, ""))
	require.NoError(t, e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 9))

	// 覆盖发布后旧提交作废，同一人可以重新抢答
	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "Round B?", 20, ""))

	subs, err := repos.TriviaSubmission().ListByBox(ctx, testCommunity, testRoom, 1)
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 19))
}

func TestSubmitTrivia_Gates(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)

	// 没有进行中的抢答
	err := e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 42)
	assert.True(t, errors.Is(err, errors.ErrNoActiveRound))

	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 42, ""))

	// 非参与者
	err = e.SubmitTrivia(ctx, testCommunity, testRoom, 999, 42)
	assert.True(t, errors.Is(err, errors.ErrNotParticipant))

	// 已淘汰
	cleo, err := repos.Participant().Find(ctx, testCommunity, testRoom, 300)
	require.NoError(t, err)
	cleo.Eliminated = true
	require.NoError(t, repos.Participant().Upsert(ctx, cleo))
	err = e.SubmitTrivia(ctx, testCommunity, testRoom, 300, 42)
	assert.True(t, errors.Is(err, errors.ErrEliminated))

	// 一人一次
	require.NoError(t, e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 42))
	err = e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 43)
	assert.True(t, errors.Is(err, errors.ErrDuplicateSubmission))
}

func TestResolveTrivia_ExactBeatsCloserEarlier(t *testing.T) {
	e, repos, sink, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)
	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 50, ""))

	// Ben更早提交且只差2，Ava晚提交但精确命中
	base := time.Now()
	submitAt(t, repos, 1, 200, 48, base)
	submitAt(t, repos, 1, 100, 50, base.Add(3*time.Second))

	outcome, err := e.ResolveTrivia(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.NotNil(t, outcome.WinnerID)
	assert.Equal(t, int64(100), *outcome.WinnerID)
	assert.True(t, outcome.Exact)
	assert.Equal(t, int64(50), outcome.Value)

	// 席位随判定落到赢家名下，翻牌次数归零
	slot := currentSlot(t, repos, 1)
	require.NotNil(t, slot.SlotUserID)
	assert.Equal(t, int64(100), *slot.SlotUserID)
	assert.Equal(t, 0, slot.TurnsLeft)

	data := sink.last(EventTriviaResolved)
	require.NotNil(t, data)
	assert.Equal(t, int64(100), data["winner_id"])
}

func TestResolveTrivia_NearestWinsRegardlessOfOrder(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)
	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 100, ""))

	// 更接近的答案即使晚到也胜出
	base := time.Now()
	submitAt(t, repos, 1, 100, 90, base)
	submitAt(t, repos, 1, 200, 105, base.Add(2*time.Second))

	outcome, err := e.ResolveTrivia(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.NotNil(t, outcome.WinnerID)
	assert.Equal(t, int64(200), *outcome.WinnerID)
	assert.False(t, outcome.Exact)
	assert.Equal(t, int64(105), outcome.Value)
}

func TestResolveTrivia_TieKeepsEarliest(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)
	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 100, ""))

	// 同样差5，先提交者拿席位
	base := time.Now()
	submitAt(t, repos, 1, 300, 95, base)
	submitAt(t, repos, 1, 200, 105, base.Add(time.Second))

	outcome, err := e.ResolveTrivia(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.NotNil(t, outcome.WinnerID)
	assert.Equal(t, int64(300), *outcome.WinnerID)
}

func TestResolveTrivia_NoSubmissionsLeavesSlotEmpty(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)
	require.NoError(t, e.PublishTrivia(ctx, testCommunity, testRoom, 1, "How many?", 100, ""))

	outcome, err := e.ResolveTrivia(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	assert.Nil(t, outcome.WinnerID)

	slot := currentSlot(t, repos, 1)
	assert.Nil(t, slot.SlotUserID)

	// 判定后抢答关闭，提交与再判定都被拒
	err = e.SubmitTrivia(ctx, testCommunity, testRoom, 100, 42)
	assert.True(t, errors.Is(err, errors.ErrNoActiveRound))
	_, err = e.ResolveTrivia(ctx, testCommunity, testRoom)
	assert.True(t, errors.Is(err, errors.ErrNoActiveRound))
}
