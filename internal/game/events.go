package game

// 会话事件名，经 EventSink 推送给房间内的所有连接
const (
	EventParticipantJoined = "participant_joined"
	EventSessionLocked     = "session_locked"
	EventTriviaPublished   = "trivia_published"
	EventTriviaResolved    = "trivia_resolved"
	EventOrderingPublished = "ordering_published"
	EventTurnsAwarded      = "turns_awarded"
	EventCardRevealed      = "card_revealed"
	EventPendingAction     = "pending_action"
	EventPendingResolved   = "pending_resolved"
	EventPuzzleSubmitted   = "puzzle_submitted"
	EventPuzzleChecked     = "puzzle_checked"
	EventBoxOpened         = "box_opened"
	EventSessionComplete   = "session_complete"
)
