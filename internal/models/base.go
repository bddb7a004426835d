package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// BaseModel 模型基础字段
type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CardKind 卡片类型
type CardKind string

const (
	CardPiece    CardKind = "PIECE"
	CardPass     CardKind = "PASS"
	CardSteal    CardKind = "STEAL"
	CardDonate   CardKind = "DONATE"
	CardWildcard CardKind = "WILDCARD"
)

// PendingAction 待处理的特殊卡动作
type PendingAction string

const (
	PendingNone   PendingAction = ""
	PendingPass   PendingAction = "PASS"
	PendingSteal  PendingAction = "STEAL"
	PendingDonate PendingAction = "DONATE"
)

// Card 牌堆中的一张卡
// PIECE卡绑定短语词位（1-3），其余类型Word为0。
type Card struct {
	Kind CardKind `json:"kind"`
	Word int      `json:"word,omitempty"`
}

// deckEncodingVersion 牌堆持久化编码版本
const deckEncodingVersion = 1

// deckEnvelope 牌堆JSON封装（带版本号，便于跨版本迁移）
type deckEnvelope struct {
	Version int    `json:"v"`
	Cards   []Card `json:"cards"`
}

// CardDeck 有序牌堆
type CardDeck []Card

// Value 实现driver.Valuer
func (d CardDeck) Value() (driver.Value, error) {
	data, err := json.Marshal(deckEnvelope{Version: deckEncodingVersion, Cards: d})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan 实现sql.Scanner
func (d *CardDeck) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 CardDeck", value)
	}

	var env deckEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Version != deckEncodingVersion {
		return fmt.Errorf("不支持的牌堆编码版本: %d", env.Version)
	}

	*d = env.Cards
	return nil
}

// IntSet 升序且去重的整数集合（已翻开卡片序号）
type IntSet []int

// Value 实现driver.Valuer，入库前排序去重
func (s IntSet) Value() (driver.Value, error) {
	normalized := normalizeSet(s)
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan 实现sql.Scanner
func (s *IntSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 IntSet", value)
	}

	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = normalizeSet(raw)
	return nil
}

// Contains 判断是否包含指定值
func (s IntSet) Contains(n int) bool {
	i := sort.SearchInts(s, n)
	return i < len(s) && s[i] == n
}

// Add 返回插入指定值后的新集合（保持升序去重）
func (s IntSet) Add(n int) IntSet {
	if s.Contains(n) {
		return s
	}
	out := make(IntSet, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, n)
	sort.Ints(out)
	return out
}

// normalizeSet 排序并去重
func normalizeSet(in []int) IntSet {
	if in == nil {
		return IntSet{}
	}
	tmp := make([]int, len(in))
	copy(tmp, in)
	sort.Ints(tmp)
	out := tmp[:0]
	for i, v := range tmp {
		if i == 0 || v != tmp[i-1] {
			out = append(out, v)
		}
	}
	return IntSet(out)
}

// IntList 保序整数序列（排列答案等）
type IntList []int

// Value 实现driver.Valuer
func (l IntList) Value() (driver.Value, error) {
	data, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan 实现sql.Scanner
func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 IntList", value)
	}

	return json.Unmarshal(data, (*[]int)(l))
}

// StringList 保序字符串清单（排序题的条目等）
type StringList []string

// Value 实现driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan 实现sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 StringList", value)
	}

	return json.Unmarshal(data, (*[]string)(l))
}
