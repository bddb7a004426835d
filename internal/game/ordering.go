package game

import (
	"context"
	"sort"
	"strings"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// PublishOrdering 发布当前盒子的排序题
// 发布时绑定当期席位持有人，只有该玩家可以作答。
func (e *Engine) PublishOrdering(ctx context.Context, community, room string, box int, ord content.Ordering, ref string) error {
	if err := validateKey(community, room); err != nil {
		return err
	}
	if len(ord.Items) != 5 || len(ord.Correct) != 5 {
		return errors.New(errors.ErrInvalidParam, "排序题必须包含五个条目")
	}

	var slotUserID int64
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if box != session.CurrentBox {
			return errors.New(errors.ErrWrongBox)
		}

		slot, err := fetchSlot(ctx, tx, community, room, box)
		if err != nil {
			return err
		}
		if slot.SlotUserID == nil {
			return errors.New(errors.ErrNoSlotHolder, "先判定抢答才能发排序题")
		}
		slotUserID = *slot.SlotUserID

		round := &models.OrderRound{
			Community:    community,
			Room:         room,
			Box:          box,
			Prompt:       ord.Prompt,
			Items:        models.StringList(ord.Items),
			CorrectOrder: models.IntList(ord.Correct),
			SlotUserID:   slotUserID,
			Active:       true,
			PublishedRef: ref,
		}
		if err := tx.OrderRound().Upsert(ctx, round); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "写入排序题失败")
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.publish(community, room, EventOrderingPublished, map[string]interface{}{
		"box":          box,
		"prompt":       ord.Prompt,
		"slot_user_id": slotUserID,
	})
	return nil
}

// parsePermutation 解析并校验 A-E 的五字母排列，返回 0 基下标
func parsePermutation(letters []string) ([]int, error) {
	if len(letters) != 5 {
		return nil, errors.New(errors.ErrInvalidPermutation, "必须恰好给出五个字母")
	}

	indices := make([]int, 5)
	seen := make([]string, 5)
	for i, raw := range letters {
		letter := strings.ToUpper(strings.TrimSpace(raw))
		if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'E' {
			return nil, errors.New(errors.ErrInvalidPermutation, "只接受字母 A-E")
		}
		indices[i] = int(letter[0] - 'A')
		seen[i] = letter
	}

	sorted := append([]string(nil), seen...)
	sort.Strings(sorted)
	for i, letter := range sorted {
		if letter != string(rune('A'+i)) {
			return nil, errors.New(errors.ErrInvalidPermutation, "五个字母不能重复")
		}
	}
	return indices, nil
}

// SubmitOrdering 席位持有人提交排列，按对位命中数发放翻牌次数
// 排列不合法直接拒绝，不消耗作答机会。
func (e *Engine) SubmitOrdering(ctx context.Context, community, room string, userID int64, letters []string) (int, error) {
	if err := validateKey(community, room); err != nil {
		return 0, err
	}

	indices, err := parsePermutation(letters)
	if err != nil {
		return 0, err
	}

	var turns int
	var box int
	err = e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		box = session.CurrentBox

		round, err := tx.OrderRound().FindByBox(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if round == nil || !round.Active {
			return errors.New(errors.ErrNoActiveRound, "当前没有进行中的排序题")
		}
		if round.SlotUserID != userID {
			return errors.New(errors.ErrNotSlotHolder, "排序题只接受席位持有人作答")
		}

		turns = 0
		for i, idx := range indices {
			if i < len(round.CorrectOrder) && idx == round.CorrectOrder[i] {
				turns++
			}
		}

		round.Active = false
		if err := tx.OrderRound().Save(ctx, round); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "关闭排序题失败")
		}

		slot, err := fetchSlot(ctx, tx, community, room, box)
		if err != nil {
			return err
		}
		slot.TurnsLeft = turns
		slot.PendingAction = models.PendingNone
		slot.PendingRef = ""
		if err := tx.SlotState().Save(ctx, slot); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入翻牌次数失败")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.publish(community, room, EventTurnsAwarded, map[string]interface{}{
		"box":     box,
		"user_id": userID,
		"turns":   turns,
	})
	return turns, nil
}
