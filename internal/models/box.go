package models

import "time"

// BoxSecret 盒子秘密：短语、牌堆与已翻开集合
// 在盒子进入流程时由种子一次性生成，之后短语与牌堆不再变化。
type BoxSecret struct {
	BaseModel
	Community string   `gorm:"size:64;not null;uniqueIndex:idx_box_secrets_key" json:"community"`
	Room      string   `gorm:"size:64;not null;uniqueIndex:idx_box_secrets_key" json:"room"`
	Box       int      `gorm:"not null;uniqueIndex:idx_box_secrets_key" json:"box"`
	Phrase    string   `gorm:"size:255;not null" json:"-"`  // 三词短语（空格连接），不对外输出
	Deck      CardDeck `gorm:"type:json;not null" json:"-"` // 洗好的10张牌
	Revealed  IntSet   `gorm:"type:json" json:"revealed"`   // 已翻开的牌序号，只增不减
}

// SlotState 盒子当前操作席位
type SlotState struct {
	BaseModel
	Community     string        `gorm:"size:64;not null;uniqueIndex:idx_slot_states_key" json:"community"`
	Room          string        `gorm:"size:64;not null;uniqueIndex:idx_slot_states_key" json:"room"`
	Box           int           `gorm:"not null;uniqueIndex:idx_slot_states_key" json:"box"`
	SlotUserID    *int64        `json:"slot_user_id"`                                  // 当前席位持有人，可为空
	TurnsLeft     int           `gorm:"default:0" json:"turns_left"`                   // 剩余翻牌次数，不为负
	PendingAction PendingAction `gorm:"size:16;default:''" json:"pending_action"`      // PASS/STEAL/DONATE，空串表示无
	PendingRef    string        `gorm:"size:255" json:"pending_ref"`                   // 待处理提示的投递引用
}

// HasPending 是否存在未处理的特殊卡动作
func (s *SlotState) HasPending() bool {
	return s.PendingAction != PendingNone
}

// BoxOwnership 盒子归属，后写覆盖
type BoxOwnership struct {
	BaseModel
	Community   string `gorm:"size:64;not null;uniqueIndex:idx_box_ownership_key" json:"community"`
	Room        string `gorm:"size:64;not null;uniqueIndex:idx_box_ownership_key" json:"room"`
	Box         int    `gorm:"not null;uniqueIndex:idx_box_ownership_key" json:"box"`
	OwnerUserID int64  `gorm:"not null;index" json:"owner_user_id"`
}

// TableName 指定表名
func (BoxOwnership) TableName() string {
	return "box_ownership"
}

// Prize 盒子奖品，可在开盒前预填
type Prize struct {
	BaseModel
	Community   string    `gorm:"size:64;not null;uniqueIndex:idx_prizes_key" json:"community"`
	Room        string    `gorm:"size:64;not null;uniqueIndex:idx_prizes_key" json:"room"`
	Box         int       `gorm:"not null;uniqueIndex:idx_prizes_key" json:"box"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"size:800" json:"description"`
	FilledBy    int64     `gorm:"not null" json:"filled_by"`
	FilledAt    time.Time `gorm:"not null" json:"filled_at"`
}
