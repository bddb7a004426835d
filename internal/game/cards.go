package game

import (
	"context"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// RevealResult 翻牌结果
// Word 仅在翻到词牌时给出，Effect 仅在翻到万能牌时给出。
type RevealResult struct {
	Box       int                    `json:"box"`
	Index     int                    `json:"index"`
	Kind      models.CardKind        `json:"kind"`
	Word      string                 `json:"word,omitempty"`
	Effect    content.WildcardEffect `json:"effect,omitempty"`
	Pending   models.PendingAction   `json:"pending,omitempty"`
	TurnsLeft int                    `json:"turns_left"`
}

// RevealCard 席位持有人翻开一张牌
// 每次翻牌消耗一次机会;特殊牌会挂起待处理动作,处理完之前不能继续翻。
func (e *Engine) RevealCard(ctx context.Context, community, room string, userID int64, index int) (*RevealResult, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var result RevealResult
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		box := session.CurrentBox

		slot, err := fetchSlot(ctx, tx, community, room, box)
		if err != nil {
			return err
		}
		if slot.SlotUserID == nil {
			return errors.New(errors.ErrNoSlotHolder)
		}
		if *slot.SlotUserID != userID {
			return errors.New(errors.ErrNotSlotHolder)
		}
		if slot.TurnsLeft <= 0 {
			return errors.New(errors.ErrNoTurnsLeft)
		}
		if slot.HasPending() {
			return errors.New(errors.ErrPendingBlocked, string(slot.PendingAction))
		}

		secret, err := tx.BoxSecret().LockByBox(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if secret == nil {
			return errors.New(errors.ErrBoxNotReady, "盒子资料尚未生成")
		}
		if index < 0 || index >= len(secret.Deck) {
			return errors.New(errors.ErrInvalidCardIndex)
		}
		if secret.Revealed.Contains(index) {
			return errors.New(errors.ErrIndexRevealed)
		}

		secret.Revealed = secret.Revealed.Add(index)
		slot.TurnsLeft--

		card := secret.Deck[index]
		result = RevealResult{Box: box, Index: index, Kind: card.Kind}

		switch card.Kind {
		case models.CardPiece:
			result.Word = content.ParsePhrase(secret.Phrase).Word(card.Word)
		case models.CardPass:
			slot.PendingAction = models.PendingPass
		case models.CardSteal:
			slot.PendingAction = models.PendingSteal
		case models.CardDonate:
			slot.PendingAction = models.PendingDonate
		case models.CardWildcard:
			effect := content.ResolveWildcard(session.Seed, box, index)
			result.Effect = effect
			switch effect {
			case content.WildcardBonusTurn:
				slot.TurnsLeft = min(turnCap, slot.TurnsLeft+1)
			case content.WildcardPass:
				slot.PendingAction = models.PendingPass
			case content.WildcardSteal:
				slot.PendingAction = models.PendingSteal
			case content.WildcardDonate:
				slot.PendingAction = models.PendingDonate
			}
		}

		result.Pending = slot.PendingAction
		result.TurnsLeft = slot.TurnsLeft

		if err := tx.BoxSecret().Save(ctx, secret); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入翻牌记录失败")
		}
		if err := tx.SlotState().Save(ctx, slot); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入席位失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"box":        result.Box,
		"index":      result.Index,
		"kind":       result.Kind,
		"turns_left": result.TurnsLeft,
	}
	if result.Word != "" {
		data["word"] = result.Word
	}
	if result.Effect != "" {
		data["effect"] = result.Effect
	}
	e.publish(community, room, EventCardRevealed, data)

	if result.Pending != models.PendingNone {
		e.publish(community, room, EventPendingAction, map[string]interface{}{
			"box":     result.Box,
			"action":  result.Pending,
			"user_id": userID,
		})
	}
	return &result, nil
}

// PendingOutcome 特殊牌处理结果
type PendingOutcome struct {
	Box       int                  `json:"box"`
	Action    models.PendingAction `json:"action"`
	ActorID   int64                `json:"actor_id"`
	TargetID  int64                `json:"target_id,omitempty"`
	TargetBox int                  `json:"target_box,omitempty"`
}

// ResolvePending 席位持有人处理挂起的特殊牌
// PASS 把席位连同剩余流程转给目标玩家;STEAL 抢走指定已归属盒子;
// DONATE 把自己名下的盒子送给目标玩家。处理完成后才解除翻牌封锁。
func (e *Engine) ResolvePending(ctx context.Context, community, room string, actorID, targetUserID int64, boxToAct int) (*PendingOutcome, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var outcome PendingOutcome
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		box := session.CurrentBox

		slot, err := fetchSlot(ctx, tx, community, room, box)
		if err != nil {
			return err
		}
		if slot.SlotUserID == nil {
			return errors.New(errors.ErrNoSlotHolder)
		}
		if !slot.HasPending() {
			return errors.New(errors.ErrNoPendingAction)
		}
		if *slot.SlotUserID != actorID {
			return errors.New(errors.ErrNotSlotHolder, "只有席位持有人能处理特殊牌")
		}

		outcome = PendingOutcome{Box: box, Action: slot.PendingAction, ActorID: actorID}

		switch slot.PendingAction {
		case models.PendingPass:
			if targetUserID == actorID {
				return errors.New(errors.ErrSelfTarget, "不能把席位转给自己")
			}
			target, err := tx.Participant().Find(ctx, community, room, targetUserID)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			if target == nil || target.Eliminated {
				return errors.New(errors.ErrInvalidTarget, "目标必须是在场参与者")
			}
			slot.SlotUserID = &targetUserID
			slot.TurnsLeft = 0
			outcome.TargetID = targetUserID

		case models.PendingSteal:
			if boxToAct < 1 || boxToAct >= content.MegaBox {
				return errors.New(errors.ErrInvalidBox, "只能对盒子1-5下手")
			}
			owned, err := tx.Ownership().FindByBox(ctx, community, room, boxToAct)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			if owned == nil {
				return errors.New(errors.ErrInvalidTarget, "该盒子还没有归属")
			}
			if owned.OwnerUserID == actorID {
				return errors.New(errors.ErrAlreadyOwned)
			}
			outcome.TargetID = owned.OwnerUserID
			outcome.TargetBox = boxToAct
			if err := tx.Ownership().Upsert(ctx, &models.BoxOwnership{
				Community:   community,
				Room:        room,
				Box:         boxToAct,
				OwnerUserID: actorID,
			}); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseUpdate, "改写盒子归属失败")
			}

		case models.PendingDonate:
			if boxToAct < 1 || boxToAct >= content.MegaBox {
				return errors.New(errors.ErrInvalidBox, "只能赠送盒子1-5")
			}
			owned, err := tx.Ownership().FindByBox(ctx, community, room, boxToAct)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			if owned == nil || owned.OwnerUserID != actorID {
				return errors.New(errors.ErrNotBoxOwner, "只能赠送自己名下的盒子")
			}
			if targetUserID == actorID {
				return errors.New(errors.ErrSelfTarget, "不能赠送给自己")
			}
			target, err := tx.Participant().Find(ctx, community, room, targetUserID)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			if target == nil || target.Eliminated {
				return errors.New(errors.ErrInvalidTarget, "目标必须是在场参与者")
			}
			outcome.TargetID = targetUserID
			outcome.TargetBox = boxToAct
			if err := tx.Ownership().Upsert(ctx, &models.BoxOwnership{
				Community:   community,
				Room:        room,
				Box:         boxToAct,
				OwnerUserID: targetUserID,
			}); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseUpdate, "改写盒子归属失败")
			}
		}

		slot.PendingAction = models.PendingNone
		slot.PendingRef = ""
		if err := tx.SlotState().Save(ctx, slot); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入席位失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"box":      outcome.Box,
		"action":   outcome.Action,
		"actor_id": outcome.ActorID,
	}
	if outcome.TargetID != 0 {
		data["target_id"] = outcome.TargetID
	}
	if outcome.TargetBox != 0 {
		data["target_box"] = outcome.TargetBox
	}
	e.publish(community, room, EventPendingResolved, data)
	return &outcome, nil
}
