package game

import (
	"context"
	"time"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// SubmitPuzzleGuess 参与者提交三词短语猜测
// 猜测只入队不判分,判分由主持人逐条触发。
func (e *Engine) SubmitPuzzleGuess(ctx context.Context, community, room string, userID int64, words []string) (*models.PuzzleAttempt, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}
	if len(words) != 3 {
		return nil, errors.New(errors.ErrInvalidParam, "必须提交三个词")
	}

	normalized := make([]string, 3)
	for i, w := range words {
		normalized[i] = content.NormalizeWord(w)
		if normalized[i] == "" {
			return nil, errors.New(errors.ErrInvalidGuessWord)
		}
	}

	var attempt *models.PuzzleAttempt
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if _, err := findActiveParticipant(ctx, tx.Participant(), community, room, userID); err != nil {
			return err
		}

		maxID, err := tx.PuzzleAttempt().MaxAttemptID(ctx, community, room, session.CurrentBox)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}

		attempt = &models.PuzzleAttempt{
			Community:   community,
			Room:        room,
			Box:         session.CurrentBox,
			AttemptID:   maxID + 1,
			UserID:      userID,
			Words:       models.StringList(normalized),
			SubmittedAt: time.Now(),
		}
		if err := tx.PuzzleAttempt().Create(ctx, attempt); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "猜词入队失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(community, room, EventPuzzleSubmitted, map[string]interface{}{
		"box":        attempt.Box,
		"attempt_id": attempt.AttemptID,
		"user_id":    userID,
	})
	return attempt, nil
}

// PuzzleCheck 判分结果
// Solved 为真时席位持有人保持不变并转入开盒;否则席位轮转到
// NextSlotHolder,为空表示猜测耗尽、席位空置。
type PuzzleCheck struct {
	Box            int    `json:"box"`
	AttemptID      int    `json:"attempt_id"`
	UserID         int64  `json:"user_id"`
	Score          int    `json:"score"`
	Solved         bool   `json:"solved"`
	NextSlotHolder *int64 `json:"next_slot_holder"`
}

// scoreWords 对位比较猜测与短语,返回命中数 0-3
func scoreWords(words models.StringList, phrase content.Phrase) int {
	score := 0
	for i := 0; i < 3 && i < len(words); i++ {
		if words[i] == phrase.Word(i+1) {
			score++
		}
	}
	return score
}

// CheckLatestPuzzleAttempt 判分最新一条未判的猜测
// 未解出时在剩余未判猜测里挑最接近的一条,其提交者接管席位但不带翻牌
// 次数;一条不剩则席位空置,等主持人重新发抢答题。
func (e *Engine) CheckLatestPuzzleAttempt(ctx context.Context, community, room string) (*PuzzleCheck, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var check PuzzleCheck
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		box := session.CurrentBox

		secret, err := tx.BoxSecret().FindByBox(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if secret == nil {
			return errors.New(errors.ErrBoxNotReady, "盒子资料尚未生成")
		}
		phrase := content.ParsePhrase(secret.Phrase)

		latest, err := tx.PuzzleAttempt().LatestUnchecked(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if latest == nil {
			return errors.New(errors.ErrNoAttemptPending)
		}

		latest.Checked = true
		latest.Score = scoreWords(latest.Words, phrase)
		if err := tx.PuzzleAttempt().Save(ctx, latest); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入判分失败")
		}

		check = PuzzleCheck{
			Box:       box,
			AttemptID: latest.AttemptID,
			UserID:    latest.UserID,
			Score:     latest.Score,
			Solved:    latest.Score == 3,
		}

		slot, err := fetchSlot(ctx, tx, community, room, box)
		if err != nil {
			return err
		}

		if check.Solved {
			// 解出者的席位保留到开盒,只清掉剩余动作
			slot.TurnsLeft = 0
		} else {
			remaining, err := tx.PuzzleAttempt().ListUnchecked(ctx, community, room, box)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}

			var best *models.PuzzleAttempt
			var bestScore int
			for _, a := range remaining {
				s := scoreWords(a.Words, phrase)
				if best == nil || s > bestScore ||
					(s == bestScore && a.SubmittedAt.Before(best.SubmittedAt)) {
					best = a
					bestScore = s
				}
			}

			if best != nil {
				next := best.UserID
				slot.SlotUserID = &next
				check.NextSlotHolder = &next
			} else {
				slot.SlotUserID = nil
			}
			slot.TurnsLeft = 0
		}

		slot.PendingAction = models.PendingNone
		slot.PendingRef = ""
		if check.Solved {
			check.NextSlotHolder = slot.SlotUserID
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
		"box":        check.Box,
		"attempt_id": check.AttemptID,
		"user_id":    check.UserID,
		"score":      check.Score,
		"solved":     check.Solved,
	}
	if check.NextSlotHolder != nil {
		data["next_slot_holder"] = *check.NextSlotHolder
	}
	e.publish(community, room, EventPuzzleChecked, data)
	return &check, nil
}
