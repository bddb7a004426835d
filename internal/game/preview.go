package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game/content"
)

// PreviewKind 预览类型
type PreviewKind string

// 预览类型枚举
const (
	PreviewTrivia   PreviewKind = "trivia"
	PreviewOrdering PreviewKind = "ordering"
)

// Preview 主持人预览
// 发布前的内容只存在于内存，带TTL；发布、重掷、取消都要求发起主持人本人操作。
type Preview struct {
	ID          string            `json:"id"`
	Kind        PreviewKind       `json:"kind"`
	Community   string            `json:"community"`
	Room        string            `json:"room"`
	Box         int               `json:"box"`
	HostID      int64             `json:"-"`
	Seed        int64             `json:"-"`
	Salt        int64             `json:"-"`
	PlayerCount int               `json:"player_count,omitempty"`
	Question    *content.Question `json:"question,omitempty"`
	Ordering    *content.Ordering `json:"ordering,omitempty"`
	SlotUserID  int64             `json:"slot_user_id,omitempty"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// PreviewStore 预览存储，带定期清扫
type PreviewStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	previews map[string]*Preview
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPreviewStore 创建预览存储并启动清扫协程
func NewPreviewStore(ttl time.Duration) *PreviewStore {
	s := &PreviewStore{
		ttl:      ttl,
		previews: make(map[string]*Preview),
		stopCh:   make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// sweepLoop 定期清理过期预览
func (s *PreviewStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep 移除全部过期预览
func (s *PreviewStore) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.previews {
		if now.After(p.ExpiresAt) {
			delete(s.previews, id)
		}
	}
}

// Put 写入预览并刷新过期时间
func (s *PreviewStore) Put(p *Preview) {
	p.ExpiresAt = time.Now().Add(s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[p.ID] = p
}

// Get 按ID取预览，过期视同不存在
func (s *PreviewStore) Get(id string) *Preview {
	s.mu.RLock()
	p, ok := s.previews[id]
	s.mu.RUnlock()
	if !ok || time.Now().After(p.ExpiresAt) {
		return nil
	}
	return p
}

// Remove 删除预览
func (s *PreviewStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.previews, id)
}

// Close 停止清扫协程
func (s *PreviewStore) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// getHostPreview 取出指定类型的预览并校验发起主持人
func (e *Engine) getHostPreview(id string, kind PreviewKind, hostID int64) (*Preview, error) {
	p := e.previews.Get(id)
	if p == nil || p.Kind != kind {
		return nil, errors.New(errors.ErrNotFound, "预览不存在或已过期")
	}
	if p.HostID != hostID {
		return nil, errors.New(errors.ErrNotPreviewHost)
	}
	return p, nil
}

// NewTriviaPreview 生成数值题预览
// 内容由 (seed+salt, box, 在册人数) 决定，发布前对玩家不可见。
func (e *Engine) NewTriviaPreview(ctx context.Context, community, room string, hostID int64) (*Preview, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	session, err := findRunningSession(ctx, e.repos.Session(), community, room)
	if err != nil {
		return nil, err
	}

	playerCount, err := e.repos.Participant().CountActive(ctx, community, room)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	salt := e.newPreviewSalt(false)
	question := content.NumericQuestion(session.Seed+salt, session.CurrentBox, int(playerCount))

	p := &Preview{
		ID:          uuid.NewString(),
		Kind:        PreviewTrivia,
		Community:   community,
		Room:        room,
		Box:         session.CurrentBox,
		HostID:      hostID,
		Seed:        session.Seed,
		Salt:        salt,
		PlayerCount: int(playerCount),
		Question:    &question,
	}
	e.previews.Put(p)
	return p, nil
}

// RegenerateTriviaPreview 重掷数值题预览
// 换一个盐重新生成内容，预览ID与绑定的盒子、人数不变。
func (e *Engine) RegenerateTriviaPreview(ctx context.Context, previewID string, hostID int64) (*Preview, error) {
	p, err := e.getHostPreview(previewID, PreviewTrivia, hostID)
	if err != nil {
		return nil, err
	}

	p.Salt = e.newPreviewSalt(true)
	question := content.NumericQuestion(p.Seed+p.Salt, p.Box, p.PlayerCount)
	p.Question = &question
	e.previews.Put(p)
	return p, nil
}

// PublishTriviaFromPreview 把预览内容发布为正式抢答题
// 发布成功后预览一次性作废，返回发布时的预览内容。
func (e *Engine) PublishTriviaFromPreview(ctx context.Context, previewID string, hostID int64, ref string) (*Preview, error) {
	p, err := e.getHostPreview(previewID, PreviewTrivia, hostID)
	if err != nil {
		return nil, err
	}

	if err := e.PublishTrivia(ctx, p.Community, p.Room, p.Box, p.Question.Text, p.Question.Answer, ref); err != nil {
		return nil, err
	}

	e.previews.Remove(previewID)
	return p, nil
}

// NewOrderingPreview 生成排序题预览
// 要求当前盒子已有席位持有人；题目内容与持有人无关，只与 (seed+salt, box) 有关。
func (e *Engine) NewOrderingPreview(ctx context.Context, community, room string, hostID int64) (*Preview, error) {
	if err := validateKey(community, room); err != nil {
		return nil, err
	}

	session, err := findRunningSession(ctx, e.repos.Session(), community, room)
	if err != nil {
		return nil, err
	}

	slot, err := e.repos.SlotState().FindByBox(ctx, community, room, session.CurrentBox)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if slot == nil || slot.SlotUserID == nil {
		return nil, errors.New(errors.ErrNoSlotHolder)
	}

	salt := e.newPreviewSalt(false)
	ordering := content.OrderQuestion(session.Seed+salt, session.CurrentBox)

	p := &Preview{
		ID:         uuid.NewString(),
		Kind:       PreviewOrdering,
		Community:  community,
		Room:       room,
		Box:        session.CurrentBox,
		HostID:     hostID,
		Seed:       session.Seed,
		Salt:       salt,
		Ordering:   &ordering,
		SlotUserID: *slot.SlotUserID,
	}
	e.previews.Put(p)
	return p, nil
}

// RegenerateOrderingPreview 重掷排序题预览
func (e *Engine) RegenerateOrderingPreview(ctx context.Context, previewID string, hostID int64) (*Preview, error) {
	p, err := e.getHostPreview(previewID, PreviewOrdering, hostID)
	if err != nil {
		return nil, err
	}

	p.Salt = e.newPreviewSalt(true)
	ordering := content.OrderQuestion(p.Seed+p.Salt, p.Box)
	p.Ordering = &ordering
	e.previews.Put(p)
	return p, nil
}

// PublishOrderingFromPreview 把预览内容发布为正式排序题
func (e *Engine) PublishOrderingFromPreview(ctx context.Context, previewID string, hostID int64, ref string) (*Preview, error) {
	p, err := e.getHostPreview(previewID, PreviewOrdering, hostID)
	if err != nil {
		return nil, err
	}

	if err := e.PublishOrdering(ctx, p.Community, p.Room, p.Box, *p.Ordering, ref); err != nil {
		return nil, err
	}

	e.previews.Remove(previewID)
	return p, nil
}

// CancelPreview 取消预览
func (e *Engine) CancelPreview(previewID string, hostID int64) error {
	p := e.previews.Get(previewID)
	if p == nil {
		return errors.New(errors.ErrNotFound, "预览不存在或已过期")
	}
	if p.HostID != hostID {
		return errors.New(errors.ErrNotPreviewHost)
	}
	e.previews.Remove(previewID)
	return nil
}
