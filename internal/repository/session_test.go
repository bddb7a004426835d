package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_CreateIfAbsent(t *testing.T) {
	db := TestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	// 首次创建
	created, err := repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-1", 123456))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(123456), created.Seed)
	assert.Equal(t, 1, created.CurrentBox)
	assert.False(t, created.Locked)

	// 重复创建不覆盖种子，先建者生效
	again, err := repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-1", 999999))
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, int64(123456), again.Seed)
	assert.Equal(t, created.ID, again.ID)

	// 不同房间互不影响
	other, err := repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-2", 999999))
	require.NoError(t, err)
	assert.Equal(t, int64(999999), other.Seed)
}

func TestSessionRepository_FindByKey(t *testing.T) {
	db := TestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	// 未命中返回 (nil, nil)
	missing, err := repo.FindByKey(ctx, "guild-x", "room-x")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-1", 123456))
	require.NoError(t, err)

	found, err := repo.FindByKey(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(123456), found.Seed)
}

func TestSessionRepository_Updates(t *testing.T) {
	db := TestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-1", 123456))
	require.NoError(t, err)

	// 锁定并推进盒子
	err = repo.Updates(ctx, "guild-1", "room-1", map[string]interface{}{
		"locked":       true,
		"current_box":  2,
		"opened_boxes": 1,
	})
	require.NoError(t, err)

	found, err := repo.FindByKey(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	assert.True(t, found.Locked)
	assert.Equal(t, 2, found.CurrentBox)
	assert.Equal(t, 1, found.OpenedBoxes)
}

func TestParticipantRepository_Upsert(t *testing.T) {
	db := TestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	// 首次报名
	first := CreateTestParticipant("guild-1", "room-1", 100, "Alice")
	require.NoError(t, repo.Upsert(ctx, first))

	// 标记淘汰后重复报名：昵称更新、淘汰复位
	err := db.Model(first).Update("eliminated", true).Error
	require.NoError(t, err)

	rejoin := CreateTestParticipant("guild-1", "room-1", 100, "Alice2")
	require.NoError(t, repo.Upsert(ctx, rejoin))

	found, err := repo.Find(ctx, "guild-1", "room-1", 100)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice2", found.DisplayName)
	assert.False(t, found.Eliminated)
	assert.Equal(t, first.ID, found.ID) // 同一行，未新增

	// 入局时间保持首次报名值
	assert.WithinDuration(t, first.CreatedAt, found.CreatedAt, time.Second)
}

func TestParticipantRepository_ListActive(t *testing.T) {
	db := TestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, CreateTestParticipant("guild-1", "room-1", 1, "charlie")))
	require.NoError(t, repo.Upsert(ctx, CreateTestParticipant("guild-1", "room-1", 2, "Alice")))
	require.NoError(t, repo.Upsert(ctx, CreateTestParticipant("guild-1", "room-1", 3, "bob")))

	eliminated := CreateTestParticipant("guild-1", "room-1", 4, "Dave")
	eliminated.Eliminated = true
	require.NoError(t, repo.Upsert(ctx, eliminated))

	active, err := repo.ListActive(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	require.Len(t, active, 3)

	// 忽略大小写按昵称排序
	assert.Equal(t, "Alice", active[0].DisplayName)
	assert.Equal(t, "bob", active[1].DisplayName)
	assert.Equal(t, "charlie", active[2].DisplayName)

	count, err := repo.CountActive(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestParticipantRepository_Find(t *testing.T) {
	db := TestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	missing, err := repo.Find(ctx, "guild-1", "room-1", 42)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, CreateTestParticipant("guild-1", "room-1", 42, "Zoe")))

	found, err := repo.Find(ctx, "guild-1", "room-1", 42)
	require.NoError(t, err)
	require.NotNil(t, found)
	AssertParticipant(t, CreateTestParticipant("guild-1", "room-1", 42, "Zoe"), found)
}

func TestSessionRepository_LockByKey(t *testing.T) {
	db := TestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	missing, err := repo.LockByKey(ctx, "guild-x", "room-x")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.CreateIfAbsent(ctx, CreateTestSession("guild-1", "room-1", 123456))
	require.NoError(t, err)

	locked, err := repo.LockByKey(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, int64(123456), locked.Seed)

	// 行锁读出的行可直接回写
	locked.Locked = true
	require.NoError(t, repo.Save(ctx, locked))
	found, err := repo.FindByKey(ctx, "guild-1", "room-1")
	require.NoError(t, err)
	assert.True(t, found.Locked)
}
