package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/models"
)

func TestEnsureSession_CreatesWithSeed(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	session, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, session.Seed, int64(100000))
	assert.LessOrEqual(t, session.Seed, int64(999999))
	assert.Equal(t, 1, session.CurrentBox)
	assert.False(t, session.Locked)

	// 再次调用返回同一会话，种子不变
	again, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Equal(t, session.Seed, again.Seed)
}

func TestEnsureSession_RejectsEmptyKey(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.EnsureSession(ctx, "", testRoom)
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))

	_, err = e.EnsureSession(ctx, testCommunity, "  ")
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestRegisterParticipant(t *testing.T) {
	e, repos, sink, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)

	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava")
	require.NoError(t, err)

	data := sink.last(EventParticipantJoined)
	require.NotNil(t, data)
	assert.Equal(t, int64(100), data["user_id"])
	assert.Equal(t, "Ava", data["display_name"])

	// 重复报名只改昵称，不新增行
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava Prime")
	require.NoError(t, err)

	list, err := repos.Participant().ListByKey(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ava Prime", list[0].DisplayName)
}

func TestRegisterParticipant_Gates(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	// 会话不存在
	_, err := e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava")
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))

	_, err = e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)

	// 昵称与用户ID校验
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "   ")
	assert.True(t, errors.Is(err, errors.ErrInvalidDisplayName))
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 0, "Ava")
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))

	// 锁定后不再接受报名
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava")
	require.NoError(t, err)
	_, err = e.LockSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 200, "Ben")
	assert.True(t, errors.Is(err, errors.ErrSessionLocked))
}

func TestLockSession_PreparesFirstBox(t *testing.T) {
	e, repos, sink, _ := newTestEngine(t)
	ctx := context.Background()

	session := setupRunning(t, e)
	assert.True(t, session.Locked)

	data := sink.last(EventSessionLocked)
	require.NotNil(t, data)
	assert.Equal(t, 3, data["player_count"])

	// 锁定时盒子1的秘密与席位已就绪
	secret, err := repos.BoxSecret().FindByBox(ctx, testCommunity, testRoom, 1)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Len(t, secret.Deck, 10)
	assert.Len(t, boxPhrase(t, repos, 1), 3)

	slot := currentSlot(t, repos, 1)
	assert.Nil(t, slot.SlotUserID)
	assert.Equal(t, 0, slot.TurnsLeft)

	// 重复锁定被拒
	_, err = e.LockSession(ctx, testCommunity, testRoom)
	assert.True(t, errors.Is(err, errors.ErrSessionLocked))
}

func TestSetLobbyRef(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.SetLobbyRef(ctx, testCommunity, testRoom, "msg-42")
	assert.True(t, errors.Is(err, errors.ErrSessionNotFound))

	_, err = e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.NoError(t, e.SetLobbyRef(ctx, testCommunity, testRoom, "msg-42"))

	status, err := e.Status(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	assert.Equal(t, "msg-42", status.LobbyRef)
}

func TestStatus_BeforeLock(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.EnsureSession(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	_, err = e.RegisterParticipant(ctx, testCommunity, testRoom, 100, "Ava")
	require.NoError(t, err)

	status, err := e.Status(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	assert.Equal(t, PhaseRegistration, status.Phase)
	assert.Equal(t, 1, status.ActivePlayers)
	assert.False(t, status.Locked)
	assert.Equal(t, 1, status.CurrentBox)
}

func TestLeaderboard_SortsByCountThenUserID(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)

	for _, o := range []struct {
		box   int
		owner int64
	}{{1, 200}, {2, 200}, {3, 100}} {
		require.NoError(t, repos.Ownership().Upsert(ctx, &models.BoxOwnership{
			Community: testCommunity, Room: testRoom, Box: o.box, OwnerUserID: o.owner,
		}))
	}

	entries, err := e.Leaderboard(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(200), entries[0].UserID)
	assert.Equal(t, "Ben", entries[0].DisplayName)
	assert.Equal(t, []int{1, 2}, entries[0].Boxes)
	assert.Equal(t, 2, entries[0].Count)

	assert.Equal(t, int64(100), entries[1].UserID)
	assert.Equal(t, []int{3}, entries[1].Boxes)
}

func TestLeaderboard_TieBreaksOnUserID(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	setupRunning(t, e)

	for _, o := range []struct {
		box   int
		owner int64
	}{{1, 300}, {2, 100}} {
		require.NoError(t, repos.Ownership().Upsert(ctx, &models.BoxOwnership{
			Community: testCommunity, Room: testRoom, Box: o.box, OwnerUserID: o.owner,
		}))
	}

	entries, err := e.Leaderboard(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].UserID)
	assert.Equal(t, int64(300), entries[1].UserID)
}

func TestEliminationEligible(t *testing.T) {
	e, repos, _, _ := newTestEngine(t)
	ctx := context.Background()

	session := setupRunning(t, e)

	// 第三盒开出前处于锁定状态
	_, err := e.EliminationEligible(ctx, testCommunity, testRoom)
	assert.True(t, errors.Is(err, errors.ErrEliminationsLock))

	session.EliminationsUnlocked = true
	require.NoError(t, repos.Session().Save(ctx, session))

	// 只有100名下有盒子
	require.NoError(t, repos.Ownership().Upsert(ctx, &models.BoxOwnership{
		Community: testCommunity, Room: testRoom, Box: 1, OwnerUserID: 100,
	}))

	eligible, err := e.EliminationEligible(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Len(t, eligible, 2)

	ids := []int64{eligible[0].UserID, eligible[1].UserID}
	assert.ElementsMatch(t, []int64{200, 300}, ids)

	// 已淘汰的不再出现
	ben, err := repos.Participant().Find(ctx, testCommunity, testRoom, 200)
	require.NoError(t, err)
	ben.Eliminated = true
	require.NoError(t, repos.Participant().Upsert(ctx, ben))

	eligible, err = e.EliminationEligible(ctx, testCommunity, testRoom)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, int64(300), eligible[0].UserID)
}
