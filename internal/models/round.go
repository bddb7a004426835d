package models

import "time"

// TriviaRound 数字抢答题，每个盒子同时只有一道
// 重新发布会覆盖旧题并清空旧提交。
type TriviaRound struct {
	BaseModel
	Community    string `gorm:"size:64;not null;uniqueIndex:idx_trivia_rounds_key" json:"community"`
	Room         string `gorm:"size:64;not null;uniqueIndex:idx_trivia_rounds_key" json:"room"`
	Box          int    `gorm:"not null;uniqueIndex:idx_trivia_rounds_key" json:"box"`
	Question     string `gorm:"size:500;not null" json:"question"`
	Answer       int64  `gorm:"not null" json:"-"` // 正确答案不对外输出
	Active       bool   `gorm:"default:false;index" json:"active"`
	PublishedRef string `gorm:"size:255" json:"published_ref"`
}

// TriviaSubmission 抢答提交，一人一答，先写生效
type TriviaSubmission struct {
	BaseModel
	Community   string    `gorm:"size:64;not null;uniqueIndex:idx_trivia_submissions_key" json:"community"`
	Room        string    `gorm:"size:64;not null;uniqueIndex:idx_trivia_submissions_key" json:"room"`
	Box         int       `gorm:"not null;uniqueIndex:idx_trivia_submissions_key" json:"box"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_trivia_submissions_key" json:"user_id"`
	Value       int64     `gorm:"not null" json:"value"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
}

// OrderRound 排序题，发布时绑定席位持有人
type OrderRound struct {
	BaseModel
	Community    string     `gorm:"size:64;not null;uniqueIndex:idx_order_rounds_key" json:"community"`
	Room         string     `gorm:"size:64;not null;uniqueIndex:idx_order_rounds_key" json:"room"`
	Box          int        `gorm:"not null;uniqueIndex:idx_order_rounds_key" json:"box"`
	Prompt       string     `gorm:"size:255;not null" json:"prompt"`
	Items        StringList `gorm:"type:json;not null" json:"items"`        // 五个带标签的条目 A-E
	CorrectOrder IntList    `gorm:"type:json;not null" json:"-"`            // 条目下标按数值升序的排列
	SlotUserID   int64      `gorm:"not null" json:"slot_user_id"`           // 仅此人可提交
	Active       bool       `gorm:"default:false;index" json:"active"`
	PublishedRef string     `gorm:"size:255" json:"published_ref"`
}

// PuzzleAttempt 短语猜测记录
// attempt_id 在每个盒子内从1严格递增；score 仅在 checked 置位后有意义。
type PuzzleAttempt struct {
	BaseModel
	Community   string     `gorm:"size:64;not null;uniqueIndex:idx_puzzle_attempts_key" json:"community"`
	Room        string     `gorm:"size:64;not null;uniqueIndex:idx_puzzle_attempts_key" json:"room"`
	Box         int        `gorm:"not null;uniqueIndex:idx_puzzle_attempts_key" json:"box"`
	AttemptID   int        `gorm:"not null;uniqueIndex:idx_puzzle_attempts_key" json:"attempt_id"`
	UserID      int64      `gorm:"not null;index" json:"user_id"`
	Words       StringList `gorm:"type:json;not null" json:"words"` // 3个规范化后的词
	SubmittedAt time.Time  `gorm:"not null;index" json:"submitted_at"`
	Checked     bool       `gorm:"default:false;index" json:"checked"`
	Score       int        `gorm:"default:0" json:"score"`
}
