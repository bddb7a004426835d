package game

import (
	"context"
	"sort"
	"strings"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// EnsureSession 按会话键取会话，不存在则以随机种子创建
// 并发创建由唯一索引兜底，先建者的种子生效。
func (e *Engine) EnsureSession(ctx context.Context, community, room string) (*models.Session, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	session, err := e.repos.Session().CreateIfAbsent(ctx, &models.Session{
		Community:  community,
		Room:       room,
		Seed:       e.newSessionSeed(),
		CurrentBox: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseInsert, "创建会话失败")
	}
	return session, nil
}

// RegisterParticipant 报名参加会话
// 锁定后拒绝；重复报名更新昵称并复位淘汰标记。
func (e *Engine) RegisterParticipant(ctx context.Context, community, room string, userID int64, displayName string) (*models.Participant, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, errors.New(errors.ErrInvalidParam, "用户ID必须为正数")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New(errors.ErrInvalidDisplayName)
	}

	participant := &models.Participant{
		Community:   community,
		Room:        room,
		UserID:      userID,
		DisplayName: displayName,
	}

	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if session.Locked {
			return errors.New(errors.ErrSessionLocked)
		}

		if err := tx.Participant().Upsert(ctx, participant); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "报名写入失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(community, room, EventParticipantJoined, map[string]interface{}{
		"user_id":      userID,
		"display_name": displayName,
	})
	return participant, nil
}

// LockResult 锁定报名的结果
type LockResult struct {
	Session     *models.Session `json:"session"`
	PlayerCount int             `json:"player_count"`
}

// LockSession 锁定报名并备妥第一个盒子
// 锁定是一次性动作；锁定时生成盒子1的短语、牌堆与空席位。
func (e *Engine) LockSession(ctx context.Context, community, room string) (*LockResult, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var result LockResult
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if session.Locked {
			return errors.New(errors.ErrSessionLocked, "报名已经锁定过")
		}

		session.Locked = true
		if err := tx.Session().Save(ctx, session); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "锁定会话失败")
		}

		count, err := tx.Participant().CountActive(ctx, community, room)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}

		if err := ensureBoxMaterials(ctx, tx, session, 1); err != nil {
			return err
		}

		result.Session = session
		result.PlayerCount = int(count)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(community, room, EventSessionLocked, map[string]interface{}{
		"player_count": result.PlayerCount,
		"seed_locked":  true,
	})
	return &result, nil
}

// SetLobbyRef 记录大厅公告的投递引用
func (e *Engine) SetLobbyRef(ctx context.Context, community, room, ref string) error {
	if err := validateKey(community, room); err != nil {
		return err
	}

	return e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if _, err := findSessionForUpdate(ctx, tx, community, room); err != nil {
			return err
		}
		if err := tx.Session().Updates(ctx, community, room, map[string]interface{}{
			"lobby_ref": ref,
		}); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate)
		}
		return nil
	})
}

// StatusSnapshot 会话状态快照
type StatusSnapshot struct {
	Community            string               `json:"community"`
	Room                 string               `json:"room"`
	Locked               bool                 `json:"locked"`
	CurrentBox           int                  `json:"current_box"`
	BoxLabel             string               `json:"box_label"`
	OpenedBoxes          int                  `json:"opened_boxes"`
	EliminationsUnlocked bool                 `json:"eliminations_unlocked"`
	Complete             bool                 `json:"complete"`
	ActivePlayers        int                  `json:"active_players"`
	SlotUserID           *int64               `json:"slot_user_id"`
	TurnsLeft            int                  `json:"turns_left"`
	PendingAction        models.PendingAction `json:"pending_action"`
	Phase                Phase                `json:"phase"`
	TriviaActive         bool                 `json:"trivia_active"`
	OrderingActive       bool                 `json:"ordering_active"`
	RevealedCount        int                  `json:"revealed_count"`
	UncheckedAttempts    int                  `json:"unchecked_attempts"`
	LobbyRef             string               `json:"lobby_ref,omitempty"`
}

// Status 读取会话状态快照
func (e *Engine) Status(ctx context.Context, community, room string) (*StatusSnapshot, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	session, err := findSession(ctx, e.repos.Session(), community, room)
	if err != nil {
		return nil, err
	}

	snapshot := &StatusSnapshot{
		Community:            session.Community,
		Room:                 session.Room,
		Locked:               session.Locked,
		CurrentBox:           session.CurrentBox,
		BoxLabel:             boxLabel(session.CurrentBox),
		OpenedBoxes:          session.OpenedBoxes,
		EliminationsUnlocked: session.EliminationsUnlocked,
		Complete:             session.Complete,
		LobbyRef:             session.LobbyRef,
	}

	count, err := e.repos.Participant().CountActive(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	snapshot.ActivePlayers = int(count)

	slot, err := e.repos.SlotState().FindByBox(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if slot != nil {
		snapshot.SlotUserID = slot.SlotUserID
		snapshot.TurnsLeft = slot.TurnsLeft
		snapshot.PendingAction = slot.PendingAction
	}

	trivia, err := e.repos.TriviaRound().FindByBox(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	snapshot.TriviaActive = trivia != nil && trivia.Active

	ordering, err := e.repos.OrderRound().FindByBox(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	snapshot.OrderingActive = ordering != nil && ordering.Active

	secret, err := e.repos.BoxSecret().FindByBox(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if secret != nil {
		snapshot.RevealedCount = len(secret.Revealed)
	}

	unchecked, err := e.repos.PuzzleAttempt().ListUnchecked(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	snapshot.UncheckedAttempts = len(unchecked)

	solved, err := e.repos.PuzzleAttempt().LatestSolved(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	snapshot.Phase = derivePhase(phaseInputs{
		Locked:         session.Locked,
		Complete:       session.Complete,
		TriviaActive:   snapshot.TriviaActive,
		OrderingActive: snapshot.OrderingActive,
		SlotAssigned:   slot != nil && slot.SlotUserID != nil,
		TurnsLeft:      snapshot.TurnsLeft,
		Pending:        snapshot.PendingAction,
		Unchecked:      snapshot.UncheckedAttempts,
		Solved:         solved != nil,
	})

	return snapshot, nil
}

// LeaderboardEntry 排行榜行：按持有盒子数降序，同数按用户ID升序
type LeaderboardEntry struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Boxes       []int  `json:"boxes"`
	Count       int    `json:"count"`
}

// Leaderboard 盒子归属排行榜
func (e *Engine) Leaderboard(ctx context.Context, community, room string) ([]LeaderboardEntry, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	if _, err := findSession(ctx, e.repos.Session(), community, room); err != nil {
		return nil, err
	}

	ownerships, err := e.repos.Ownership().ListByKey(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	names := make(map[int64]string)
	participants, err := e.repos.Participant().ListByKey(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	for _, p := range participants {
		names[p.UserID] = p.DisplayName
	}

	// ListByKey 按盒子升序返回，直接分组即可保持每人的盒子列表有序
	grouped := make(map[int64][]int)
	order := make([]int64, 0)
	for _, o := range ownerships {
		if _, ok := grouped[o.OwnerUserID]; !ok {
			order = append(order, o.OwnerUserID)
		}
		grouped[o.OwnerUserID] = append(grouped[o.OwnerUserID], o.Box)
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		entries = append(entries, LeaderboardEntry{
			UserID:      userID,
			DisplayName: names[userID],
			Boxes:       grouped[userID],
			Count:       len(grouped[userID]),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].UserID < entries[j].UserID
	})

	return entries, nil
}

// EliminationEligible 可淘汰名单：未淘汰且一个盒子都没有的参与者
// 开满3个盒子后才解锁查询；淘汰动作本身由主持人在外部执行。
func (e *Engine) EliminationEligible(ctx context.Context, community, room string) ([]*models.Participant, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	session, err := findSession(ctx, e.repos.Session(), community, room)
	if err != nil {
		return nil, err
	}
	if !session.EliminationsUnlocked {
		return nil, errors.New(errors.ErrEliminationsLock)
	}

	ownerships, err := e.repos.Ownership().ListByKey(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	owned := make(map[int64]int)
	for _, o := range ownerships {
		owned[o.OwnerUserID]++
	}

	active, err := e.repos.Participant().ListActive(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	eligible := make([]*models.Participant, 0, len(active))
	for _, p := range active {
		if owned[p.UserID] == 0 {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}
