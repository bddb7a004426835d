package game

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
)

// SetPrize 预填或改写某个盒子的奖品
// 开盒前随时可改，开盒时以当时的登记内容为准。
func (e *Engine) SetPrize(ctx context.Context, community, room string, box int, title, description string, filledBy int64) (*models.Prize, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}
	if box < 1 || box > content.BoxCount {
		return nil, errors.New(errors.ErrInvalidBox)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New(errors.ErrInvalidParam, "奖品名称不能为空")
	}

	prize := &models.Prize{
		Community:   community,
		Room:        room,
		Box:         box,
		Title:       title,
		Description: strings.TrimSpace(description),
		FilledBy:    filledBy,
	}

	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if _, err := findSessionForUpdate(ctx, tx, community, room); err != nil {
			return err
		}
		if err := tx.Prize().Upsert(ctx, prize); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "登记奖品失败")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

// OpenResult 开盒结果
type OpenResult struct {
	Box                  int           `json:"box"`
	BoxLabel             string        `json:"box_label"`
	OwnerID              int64         `json:"owner_id"`
	Prize                *models.Prize `json:"prize"`
	OpenedBoxes          int           `json:"opened_boxes"`
	EliminationsUnlocked bool          `json:"eliminations_unlocked"`
	SessionComplete      bool          `json:"session_complete"`
	NextBox              int           `json:"next_box"`
}

// OpenBox 开出当前盒子
// 前提是短语已被解出且奖品已登记;盒子归解出者,随后推进到下一个盒子。
// 开到第六个盒子即完局,完局时把战果写入归档。
func (e *Engine) OpenBox(ctx context.Context, community, room string, actorID int64, title, description string) (*OpenResult, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	var result OpenResult
	var snapshot *ArchiveSnapshot
	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := findRunningSessionForUpdate(ctx, tx, community, room)
		if err != nil {
			return err
		}
		box := session.CurrentBox

		solved, err := tx.PuzzleAttempt().LatestSolved(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if solved == nil {
			return errors.New(errors.ErrBoxNotReady, "短语尚未解出")
		}

		// 开盒时顺手登记奖品，否则要求事先已填
		if t := strings.TrimSpace(title); t != "" {
			if err := tx.Prize().Upsert(ctx, &models.Prize{
				Community:   community,
				Room:        room,
				Box:         box,
				Title:       t,
				Description: strings.TrimSpace(description),
				FilledBy:    actorID,
			}); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseUpdate, "登记奖品失败")
			}
		}
		prize, err := tx.Prize().FindByBox(ctx, community, room, box)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery)
		}
		if prize == nil || strings.TrimSpace(prize.Title) == "" {
			return errors.New(errors.ErrPrizeMissing)
		}

		if err := tx.Ownership().Upsert(ctx, &models.BoxOwnership{
			Community:   community,
			Room:        room,
			Box:         box,
			OwnerUserID: solved.UserID,
		}); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "写入盒子归属失败")
		}

		session.OpenedBoxes++
		if session.OpenedBoxes >= 3 {
			session.EliminationsUnlocked = true
		}

		next := min(content.MegaBox, box+1)
		session.CurrentBox = next

		if box < content.MegaBox {
			if err := ensureBoxMaterials(ctx, tx, session, next); err != nil {
				return err
			}
		} else {
			session.Complete = true
		}

		if err := tx.Session().Save(ctx, session); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "推进会话失败")
		}

		result = OpenResult{
			Box:                  box,
			BoxLabel:             boxLabel(box),
			OwnerID:              solved.UserID,
			Prize:                prize,
			OpenedBoxes:          session.OpenedBoxes,
			EliminationsUnlocked: session.EliminationsUnlocked,
			SessionComplete:      session.Complete,
			NextBox:              next,
		}

		if session.Complete {
			participants, err := tx.Participant().ListByKey(ctx, community, room)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			ownerships, err := tx.Ownership().ListByKey(ctx, community, room)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			prizes, err := tx.Prize().ListByKey(ctx, community, room)
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			snapshot = &ArchiveSnapshot{
				Community:    community,
				Room:         room,
				Seed:         session.Seed,
				CompletedAt:  time.Now(),
				Participants: participants,
				Ownerships:   ownerships,
				Prizes:       prizes,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(community, room, EventBoxOpened, map[string]interface{}{
		"box":                   result.Box,
		"box_label":             result.BoxLabel,
		"owner_id":              result.OwnerID,
		"prize_title":           result.Prize.Title,
		"opened_boxes":          result.OpenedBoxes,
		"eliminations_unlocked": result.EliminationsUnlocked,
		"next_box":              result.NextBox,
	})

	if result.SessionComplete {
		e.publish(community, room, EventSessionComplete, map[string]interface{}{
			"opened_boxes": result.OpenedBoxes,
		})
		// 归档失败不回滚对局，只留日志待补
		if e.archiver != nil && snapshot != nil {
			if err := e.archiver.ArchiveSession(ctx, snapshot); err != nil {
				e.log.Error("完局归档失败",
					zap.String("session", SessionKey(community, room)),
					zap.Error(err))
			}
		}
	}
	return &result, nil
}
