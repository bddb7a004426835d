package repository

import (
	"context"
	"testing"

	"github.com/MugzLord/WIB/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxSecretRepository_CreateIfAbsent(t *testing.T) {
	db := TestDB(t)
	repo := NewBoxSecretRepository(db)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, CreateTestSecret("guild-1", "room-1", 1))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "GOLDEN TRUE HORIZON", created.Phrase)
	assert.Len(t, created.Deck, 10)

	// 重复建立不覆盖已有秘密
	replacement := CreateTestSecret("guild-1", "room-1", 1)
	replacement.Phrase = "OTHER WORDS HERE"
	again, err := repo.CreateIfAbsent(ctx, replacement)
	require.NoError(t, err)
	assert.Equal(t, "GOLDEN TRUE HORIZON", again.Phrase)
	assert.Equal(t, created.ID, again.ID)
}

func TestBoxSecretRepository_DeckRoundTrip(t *testing.T) {
	db := TestDB(t)
	repo := NewBoxSecretRepository(db)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, CreateTestSecret("guild-1", "room-1", 3))
	require.NoError(t, err)

	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 3)
	require.NoError(t, err)
	require.NotNil(t, found)

	// 牌堆顺序与绑定词位完整保留
	expected := CreateTestDeck()
	require.Len(t, found.Deck, len(expected))
	for i, card := range expected {
		assert.Equal(t, card.Kind, found.Deck[i].Kind, "第%d张牌类型", i)
		assert.Equal(t, card.Word, found.Deck[i].Word, "第%d张牌词位", i)
	}
}

func TestBoxSecretRepository_RevealedSet(t *testing.T) {
	db := TestDB(t)
	repo := NewBoxSecretRepository(db)
	ctx := context.Background()

	secret, err := repo.CreateIfAbsent(ctx, CreateTestSecret("guild-1", "room-1", 1))
	require.NoError(t, err)

	// 乱序翻开，落库后应升序去重
	secret.Revealed = secret.Revealed.Add(7).Add(2).Add(7).Add(0)
	require.NoError(t, repo.Save(ctx, secret))

	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.IntSet{0, 2, 7}, found.Revealed)
	assert.True(t, found.Revealed.Contains(2))
	assert.False(t, found.Revealed.Contains(3))
}

func TestSlotStateRepository_Lifecycle(t *testing.T) {
	db := TestDB(t)
	repo := NewSlotStateRepository(db)
	ctx := context.Background()

	// 建立空席位
	state, err := repo.CreateIfAbsent(ctx, &models.SlotState{
		Community: "guild-1", Room: "room-1", Box: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, state.SlotUserID)
	assert.Equal(t, 0, state.TurnsLeft)
	assert.False(t, state.HasPending())

	// 指派席位并给予次数
	winner := int64(100)
	state.SlotUserID = &winner
	state.TurnsLeft = 3
	state.PendingAction = models.PendingSteal
	require.NoError(t, repo.Save(ctx, state))

	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	require.NotNil(t, found.SlotUserID)
	assert.Equal(t, int64(100), *found.SlotUserID)
	assert.Equal(t, 3, found.TurnsLeft)
	assert.Equal(t, models.PendingSteal, found.PendingAction)
	assert.True(t, found.HasPending())

	// 清空席位
	found.SlotUserID = nil
	found.TurnsLeft = 0
	found.PendingAction = models.PendingNone
	require.NoError(t, repo.Save(ctx, found))

	cleared, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Nil(t, cleared.SlotUserID)
	assert.False(t, cleared.HasPending())
}

func TestOwnershipRepository_LastWriteWins(t *testing.T) {
	db := TestDB(t)
	repo := NewOwnershipRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.BoxOwnership{
		Community: "guild-1", Room: "room-1", Box: 1, OwnerUserID: 100,
	}))

	// STEAL后归属改写，不保留历史
	require.NoError(t, repo.Upsert(ctx, &models.BoxOwnership{
		Community: "guild-1", Room: "room-1", Box: 1, OwnerUserID: 200,
	}))

	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), found.OwnerUserID)

	var count int64
	db.Model(&models.BoxOwnership{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestOwnershipRepository_ListByKey(t *testing.T) {
	db := TestDB(t)
	repo := NewOwnershipRepository(db)
	ctx := context.Background()

	for _, row := range []struct {
		box   int
		owner int64
	}{{3, 100}, {1, 200}, {2, 100}} {
		require.NoError(t, repo.Upsert(ctx, &models.BoxOwnership{
			Community: "guild-1", Room: "room-1", Box: row.box, OwnerUserID: row.owner,
		}))
	}

	list, err := repo.ListByKey(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Box)
	assert.Equal(t, 2, list[1].Box)
	assert.Equal(t, 3, list[2].Box)
}

func TestPrizeRepository_Upsert(t *testing.T) {
	db := TestDB(t)
	repo := NewPrizeRepository(db)
	ctx := context.Background()

	// 预填
	require.NoError(t, repo.Upsert(ctx, &models.Prize{
		Community: "guild-1", Room: "room-1", Box: 1,
		Title: "Gift Card", Description: "$10", FilledBy: 900,
	}))

	// 开盒前可以再次修改
	require.NoError(t, repo.Upsert(ctx, &models.Prize{
		Community: "guild-1", Room: "room-1", Box: 1,
		Title: "Bigger Gift Card", Description: "$25", FilledBy: 901,
	}))

	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Bigger Gift Card", found.Title)
	assert.Equal(t, "$25", found.Description)
	assert.Equal(t, int64(901), found.FilledBy)
	assert.False(t, found.FilledAt.IsZero())

	var count int64
	db.Model(&models.Prize{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSlotStateRepository_LockByBox(t *testing.T) {
	db := TestDB(t)
	repo := NewSlotStateRepository(db)
	ctx := context.Background()

	// 缺行时与普通读一致，返回 (nil, nil)
	missing, err := repo.LockByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.CreateIfAbsent(ctx, &models.SlotState{
		Community: "guild-1", Room: "room-1", Box: 1,
	})
	require.NoError(t, err)

	locked, err := repo.LockByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, created.ID, locked.ID)

	// 行锁读出的行可直接回写
	locked.TurnsLeft = 3
	require.NoError(t, repo.Save(ctx, locked))
	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, found.TurnsLeft)
}

func TestBoxSecretRepository_LockByBox(t *testing.T) {
	db := TestDB(t)
	repo := NewBoxSecretRepository(db)
	ctx := context.Background()

	missing, err := repo.LockByBox(ctx, "guild-1", "room-1", 2)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.CreateIfAbsent(ctx, CreateTestSecret("guild-1", "room-1", 2))
	require.NoError(t, err)

	locked, err := repo.LockByBox(ctx, "guild-1", "room-1", 2)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, "GOLDEN TRUE HORIZON", locked.Phrase)

	locked.Revealed = locked.Revealed.Add(4)
	require.NoError(t, repo.Save(ctx, locked))
	found, err := repo.FindByBox(ctx, "guild-1", "room-1", 2)
	require.NoError(t, err)
	assert.True(t, found.Revealed.Contains(4))
}
