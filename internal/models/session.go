package models

// Session 单局会话，按社区+房间唯一
type Session struct {
	BaseModel
	Community            string `gorm:"size:64;not null;uniqueIndex:idx_sessions_key" json:"community"`
	Room                 string `gorm:"size:64;not null;uniqueIndex:idx_sessions_key" json:"room"`
	Seed                 int64  `gorm:"not null" json:"seed"`                          // 内容生成种子
	Locked               bool   `gorm:"default:false" json:"locked"`                   // 报名是否已锁定
	CurrentBox           int    `gorm:"default:1" json:"current_box"`                  // 当前进行中的盒子 1-6
	OpenedBoxes          int    `gorm:"default:0" json:"opened_boxes"`                 // 已开启盒子数
	EliminationsUnlocked bool   `gorm:"default:false" json:"eliminations_unlocked"`    // 淘汰查询是否解锁（开满3个盒子）
	Complete             bool   `gorm:"default:false" json:"complete"`                 // 第6个盒子开启后置位，终态
	LobbyRef             string `gorm:"size:255" json:"lobby_ref"`                     // 大厅投递引用（外部消息定位符）
}

// Participant 会话参与者
// 重复报名视为更新昵称并复位淘汰标记，不产生新行。
type Participant struct {
	BaseModel
	Community   string `gorm:"size:64;not null;uniqueIndex:idx_participants_key" json:"community"`
	Room        string `gorm:"size:64;not null;uniqueIndex:idx_participants_key" json:"room"`
	UserID      int64  `gorm:"not null;uniqueIndex:idx_participants_key" json:"user_id"`
	DisplayName string `gorm:"size:64;not null" json:"display_name"`
	Eliminated  bool   `gorm:"default:false" json:"eliminated"`
}
