package game

import (
	"context"
	"strings"
	"time"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// PublishTrivia 发布当前盒子的抢答题
// 重复发布会覆盖题目并清空旧提交，盒号必须等于会话当前盒。
func (e *Engine) PublishTrivia(ctx context.Context, community, room string, box int, question string, answer int64, ref string) error {
	if err := validateKey(community, room); err != nil {
		return err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New(errors.ErrInvalidParam, "题目文本不能为空")
	}

	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if box != session.CurrentBox {
			return errors.New(errors.ErrWrongBox)
		}

		round := &models.TriviaRound{
			Community:    community,
			Room:         room,
			Box:          box,
			Question:     question,
			Answer:       answer,
			Active:       true,
			PublishedRef: ref,
		}
		if err := tx.TriviaRound().Upsert(ctx, round); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "写入抢答题失败")
		}
		// 覆盖发布时旧提交一并作废
		if err := tx.TriviaSubmission().DeleteByBox(ctx, community, room, box); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseDelete, "清空旧提交失败")
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.publish(community, room, EventTriviaPublished, map[string]interface{}{
		"box":      box,
		"question": question,
	})
	return nil
}

// SubmitTrivia 参与者提交抢答答案，同一盒每人只收一次
func (e *Engine) SubmitTrivia(ctx context.Context, community, room string, userID int64, value int64) error {
	if err := validateKey(community, room); err != nil {
		return err
	}

	return e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		if _, err := findActiveParticipant(ctx, tx.Participant(), community, room, userID); err != nil {
			return err
		}

		round, err := tx.TriviaRound().FindByBox(ctx, community, room, session.CurrentBox)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if round == nil || !round.Active {
			return errors.New(errors.ErrNoActiveRound, "当前没有进行中的抢答")
		}

		submission := &models.TriviaSubmission{
			Community:   community,
			Room:        room,
			Box:         session.CurrentBox,
			UserID:      userID,
			Value:       value,
			SubmittedAt: time.Now(),
		}
		if err := tx.TriviaSubmission().Create(ctx, submission); err != nil {
			if repository.IsDuplicate(err) {
				return errors.New(errors.ErrDuplicateSubmission)
			}
			return errors.Wrap(err, errors.ErrDatabaseInsert, "抢答提交失败")
		}
		return nil
	})
}

// TriviaOutcome 抢答判定结果
type TriviaOutcome struct {
	Box      int    `json:"box"`
	Answer   int64  `json:"answer"`
	WinnerID *int64 `json:"winner_id"`
	Value    int64  `json:"value,omitempty"`
	Exact    bool   `json:"exact"`
}

// ResolveTrivia 关闭抢答并按答案判定席位
// 判定规则:先到的精确答案获胜;没有精确答案时取偏差最小者,并列取先提交者;
// 无人提交则席位空置,等待主持人重新发题。
func (e *Engine) ResolveTrivia(ctx context.Context, community, room string) (*TriviaOutcome, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var outcome TriviaOutcome
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}

		round, err := tx.TriviaRound().FindByBox(ctx, community, room, session.CurrentBox)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if round == nil || !round.Active {
			return errors.New(errors.ErrNoActiveRound, "当前没有进行中的抢答")
		}

		submissions, err := tx.TriviaSubmission().ListByBox(ctx, community, room, session.CurrentBox)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}

		outcome = computeTriviaOutcome(round, submissions)

		round.Active = false
		if err := tx.TriviaRound().Save(ctx, round); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "关闭抢答失败")
		}

		slot, err := fetchSlot(ctx, tx, community, room, session.CurrentBox)
		if err != nil {
			return err
		}
		slot.SlotUserID = outcome.WinnerID
		slot.TurnsLeft = 0
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
		"box":    outcome.Box,
		"answer": outcome.Answer,
		"exact":  outcome.Exact,
	}
	if outcome.WinnerID != nil {
		data["winner_id"] = *outcome.WinnerID
		data["value"] = outcome.Value
	}
	e.publish(community, room, EventTriviaResolved, data)
	return &outcome, nil
}

// computeTriviaOutcome 在已按提交时间排序的提交里选出席位得主
func computeTriviaOutcome(round *models.TriviaRound, submissions []*models.TriviaSubmission) TriviaOutcome {
	outcome := TriviaOutcome{Box: round.Box, Answer: round.Answer}

	for _, s := range submissions {
		if s.Value == round.Answer {
			winnerID := s.UserID
			outcome.WinnerID = &winnerID
			outcome.Value = s.Value
			outcome.Exact = true
			return outcome
		}
	}

	var best *models.TriviaSubmission
	var bestDiff int64
	for _, s := range submissions {
		diff := s.Value - round.Answer
		if diff < 0 {
			diff = -diff
		}
		// 严格小于才替换，并列保留先提交者
		if best == nil || diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}
	if best != nil {
		winnerID := best.UserID
		outcome.WinnerID = &winnerID
		outcome.Value = best.Value
	}
	return outcome
}
