package game

import "github.com/MugzLord/WIB/internal/models"

// Phase 当前盒子的进行阶段，仅由持久状态推导，不单独存储
type Phase string

const (
	PhaseRegistration   Phase = "registration"    // 报名中，未锁定
	PhaseTrivia         Phase = "trivia"          // 等待抢答或抢答进行中
	PhaseSlotAssigned   Phase = "slot_assigned"   // 席位已定，等待排序题发布
	PhaseOrdering       Phase = "ordering"        // 排序题进行中
	PhaseTurns          Phase = "turns"           // 席位持有人翻牌中
	PhasePendingSpecial Phase = "pending_special" // 特殊牌待处理
	PhasePuzzleCheck    Phase = "puzzle_check"    // 有猜词待判
	PhaseBoxReady       Phase = "box_ready"       // 已解谜，等待开盒
	PhaseComplete       Phase = "complete"        // 六盒开完
)

type phaseInputs struct {
	Locked         bool
	Complete       bool
	TriviaActive   bool
	OrderingActive bool
	SlotAssigned   bool
	TurnsLeft      int
	Pending        models.PendingAction
	Unchecked      int
	Solved         bool
}

// derivePhase 按优先级从盒子状态推导阶段
// 判定顺序体现流程的主线：终局与未锁定最先，随后是越靠近开盒的状态越优先。
func derivePhase(in phaseInputs) Phase {
	switch {
	case in.Complete:
		return PhaseComplete
	case !in.Locked:
		return PhaseRegistration
	case in.Solved:
		return PhaseBoxReady
	case in.Pending != models.PendingNone:
		return PhasePendingSpecial
	case in.TurnsLeft > 0:
		return PhaseTurns
	case in.Unchecked > 0:
		return PhasePuzzleCheck
	case in.OrderingActive:
		return PhaseOrdering
	case in.TriviaActive:
		return PhaseTrivia
	case in.SlotAssigned:
		return PhaseSlotAssigned
	default:
		return PhaseTrivia
	}
}
