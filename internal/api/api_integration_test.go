package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/config"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/game/content"
	"github.com/MugzLord/WIB/internal/models"
	"github.com/MugzLord/WIB/internal/repository"
	"github.com/MugzLord/WIB/internal/utils"
	ws "github.com/MugzLord/WIB/internal/websocket"
)

const (
	testOwnerID   = int64(900)
	testCommunity = "guild-1"
	testRoom      = "room-9"
	testHostKey   = "open-sesame"
)

// newTestRouter 组装带内存库的完整路由
func newTestRouter(t *testing.T) (*gin.Engine, *repository.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := repository.TestDB(t)
	repos := repository.NewManager(db)

	hub := ws.NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	engine := game.NewEngine(repos, game.Config{PreviewTTL: time.Minute}, hub, nil)
	t.Cleanup(engine.Close)

	hostKeyHash, err := utils.HashHostKey(testHostKey)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "integration-test-secret"
	cfg.Auth.TokenExpiry = time.Hour
	cfg.Auth.RefreshExpiry = 24 * time.Hour
	cfg.Auth.OwnerID = testOwnerID
	cfg.Auth.HostKeyHash = hostKeyHash

	router := NewRouter(db, cfg, engine, hub, nil, zap.NewNop())
	return router.GetEngine(), repos
}

// doJSON 发送JSON请求
func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// decodeData 解出成功响应里的data字段
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "响应: %s", w.Body.String())
	require.True(t, envelope.Success)
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

// issueToken 签发令牌
func issueToken(t *testing.T, engine *gin.Engine, userID int64, name, hostKey string) (string, string) {
	t.Helper()

	w := doJSON(t, engine, "POST", "/api/v1/auth/token", "", gin.H{
		"user_id":      userID,
		"display_name": name,
		"host_key":     hostKey,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	decodeData(t, w, &resp)
	return resp.AccessToken, resp.Role
}

func sessionBody() gin.H {
	return gin.H{"community": testCommunity, "room": testRoom}
}

func TestHealthCheck(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestIssueTokenRoles(t *testing.T) {
	engine, _ := newTestRouter(t)

	// 普通用户默认玩家角色
	_, role := issueToken(t, engine, 100, "Ava", "")
	assert.Equal(t, utils.RolePlayer, role)

	// 服务所有者总是主持人
	_, role = issueToken(t, engine, testOwnerID, "Host", "")
	assert.Equal(t, utils.RoleHost, role)

	// 口令正确时签发主持人
	_, role = issueToken(t, engine, 100, "Ava", testHostKey)
	assert.Equal(t, utils.RoleHost, role)

	// 口令错误拒绝签发
	w := doJSON(t, engine, "POST", "/api/v1/auth/token", "", gin.H{
		"user_id":      100,
		"display_name": "Ava",
		"host_key":     "wrong-key",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthGates(t *testing.T) {
	engine, _ := newTestRouter(t)

	// 未登录
	w := doJSON(t, engine, "POST", "/api/v1/sessions/join", "", sessionBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 玩家访问主持人接口
	playerToken, _ := issueToken(t, engine, 100, "Ava", "")
	w = doJSON(t, engine, "POST", "/api/v1/sessions/lock", playerToken, sessionBody())
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 未挂载归档路由时404
	w = doJSON(t, engine, "GET", "/api/v1/archive/sessions", playerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestBoxRoutesOwnerOnly 盒子接口只认所有者，主持人口令不放行
func TestBoxRoutesOwnerOnly(t *testing.T) {
	engine, _ := newTestRouter(t)

	hostToken, role := issueToken(t, engine, 42, "Mira", testHostKey)
	require.Equal(t, utils.RoleHost, role)

	w := doJSON(t, engine, "PUT", "/api/v1/boxes/prize", hostToken, gin.H{
		"community": testCommunity,
		"room":      testRoom,
		"box":       1,
		"title":     "定制头衔",
	})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = doJSON(t, engine, "POST", "/api/v1/boxes/open", hostToken, sessionBody())
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 所有者可以通过闸门（会话不存在由引擎报404，而非403）
	ownerToken, _ := issueToken(t, engine, testOwnerID, "Host", "")
	w = doJSON(t, engine, "POST", "/api/v1/boxes/open", ownerToken, sessionBody())
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

// TestGameFlow 走通一个盒子的完整流程
func TestGameFlow(t *testing.T) {
	engine, repos := newTestRouter(t)
	ctx := context.Background()

	hostToken, _ := issueToken(t, engine, testOwnerID, "Host", "")
	avaToken, _ := issueToken(t, engine, 100, "Ava", "")
	benToken, _ := issueToken(t, engine, 200, "Ben", "")
	cleoToken, _ := issueToken(t, engine, 300, "Cleo", "")

	// 建会话
	w := doJSON(t, engine, "POST", "/api/v1/sessions", hostToken, gin.H{
		"community": testCommunity,
		"room":      testRoom,
		"lobby_ref": "msg-42",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 三人报名
	for _, tc := range []struct {
		token string
		name  string
	}{{avaToken, "Ava"}, {benToken, "Ben"}, {cleoToken, "Cleo"}} {
		w = doJSON(t, engine, "POST", "/api/v1/sessions/join", tc.token, gin.H{
			"community":    testCommunity,
			"room":         testRoom,
			"display_name": tc.name,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// 锁定报名
	w = doJSON(t, engine, "POST", "/api/v1/sessions/lock", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lock game.LockResult
	decodeData(t, w, &lock)
	assert.Equal(t, 3, lock.PlayerCount)

	// 重复锁定拒绝
	w = doJSON(t, engine, "POST", "/api/v1/sessions/lock", hostToken, sessionBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	// 状态快照
	w = doJSON(t, engine, "GET", fmt.Sprintf("/api/v1/sessions/status?community=%s&room=%s", testCommunity, testRoom), avaToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status game.StatusSnapshot
	decodeData(t, w, &status)
	assert.True(t, status.Locked)
	assert.Equal(t, 1, status.CurrentBox)

	// 抢答题：预览 -> 重摇 -> 发布
	w = doJSON(t, engine, "POST", "/api/v1/trivia/preview", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview struct {
		ID       string            `json:"id"`
		Question *content.Question `json:"question"`
	}
	decodeData(t, w, &preview)
	require.NotNil(t, preview.Question)

	w = doJSON(t, engine, "POST", "/api/v1/trivia/preview/regenerate", hostToken, gin.H{"preview_id": preview.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &preview)
	answer := preview.Question.Answer

	w = doJSON(t, engine, "POST", "/api/v1/trivia/publish", hostToken, gin.H{"preview_id": preview.ID, "ref": "msg-43"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Ben答偏，Ava答中
	w = doJSON(t, engine, "POST", "/api/v1/trivia/submit", benToken, gin.H{
		"community": testCommunity, "room": testRoom, "value": answer + 7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, engine, "POST", "/api/v1/trivia/submit", avaToken, gin.H{
		"community": testCommunity, "room": testRoom, "value": answer,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 重复提交拒绝
	w = doJSON(t, engine, "POST", "/api/v1/trivia/submit", avaToken, gin.H{
		"community": testCommunity, "room": testRoom, "value": answer,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 判定：Ava拿到席位
	w = doJSON(t, engine, "POST", "/api/v1/trivia/resolve", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var outcome game.TriviaOutcome
	decodeData(t, w, &outcome)
	require.NotNil(t, outcome.WinnerID)
	assert.Equal(t, int64(100), *outcome.WinnerID)
	assert.True(t, outcome.Exact)

	// 排序挑战：满分拿满翻牌次数
	w = doJSON(t, engine, "POST", "/api/v1/ordering/preview", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var orderPreview struct {
		ID       string            `json:"id"`
		Ordering *content.Ordering `json:"ordering"`
	}
	decodeData(t, w, &orderPreview)
	require.NotNil(t, orderPreview.Ordering)

	w = doJSON(t, engine, "POST", "/api/v1/ordering/publish", hostToken, gin.H{"preview_id": orderPreview.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	letters := make([]string, len(orderPreview.Ordering.Correct))
	for i, idx := range orderPreview.Ordering.Correct {
		letters[i] = string(rune('A' + idx))
	}
	w = doJSON(t, engine, "POST", "/api/v1/ordering/submit", avaToken, gin.H{
		"community": testCommunity, "room": testRoom, "letters": letters,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitResult struct {
		TurnsAwarded int `json:"turns_awarded"`
	}
	decodeData(t, w, &submitResult)
	assert.Equal(t, 5, submitResult.TurnsAwarded)

	// 换成可控牌堆后翻一张词卡
	secret, err := repos.BoxSecret().FindByBox(ctx, testCommunity, testRoom, 1)
	require.NoError(t, err)
	require.NotNil(t, secret)
	deck := make(models.CardDeck, 0, 10)
	for i := 0; i < 10; i++ {
		deck = append(deck, models.Card{Kind: models.CardPiece, Word: i%3 + 1})
	}
	secret.Deck = deck
	secret.Revealed = models.IntSet{}
	require.NoError(t, repos.BoxSecret().Save(ctx, secret))

	w = doJSON(t, engine, "POST", "/api/v1/cards/reveal", avaToken, gin.H{
		"community": testCommunity, "room": testRoom, "index": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reveal game.RevealResult
	decodeData(t, w, &reveal)
	assert.Equal(t, models.CardPiece, reveal.Kind)
	assert.NotEmpty(t, reveal.Word)
	assert.Equal(t, 4, reveal.TurnsLeft)

	// 非席位持有人不能翻牌
	w = doJSON(t, engine, "POST", "/api/v1/cards/reveal", benToken, gin.H{
		"community": testCommunity, "room": testRoom, "index": 2,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 短语解谜：Ben用正确短语解出
	phrase := content.ParsePhrase(secret.Phrase)
	words := []string{phrase.Word(1), phrase.Word(2), phrase.Word(3)}
	w = doJSON(t, engine, "POST", "/api/v1/puzzle/guess", benToken, gin.H{
		"community": testCommunity, "room": testRoom, "words": words,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, "POST", "/api/v1/puzzle/check", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var check game.PuzzleCheck
	decodeData(t, w, &check)
	assert.True(t, check.Solved)
	assert.Equal(t, int64(200), check.UserID)

	// 奖品未登记时开盒拒绝
	w = doJSON(t, engine, "POST", "/api/v1/boxes/open", hostToken, sessionBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	// 登记奖品后开盒
	w = doJSON(t, engine, "PUT", "/api/v1/boxes/prize", hostToken, gin.H{
		"community": testCommunity, "room": testRoom,
		"box": 1, "title": "定制头衔", "description": "一周有效",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, "POST", "/api/v1/boxes/open", hostToken, sessionBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var open game.OpenResult
	decodeData(t, w, &open)
	assert.Equal(t, 1, open.Box)
	assert.Equal(t, int64(200), open.OwnerID)
	assert.Equal(t, 2, open.NextBox)
	assert.False(t, open.SessionComplete)

	// 排行榜
	w = doJSON(t, engine, "GET", fmt.Sprintf("/api/v1/sessions/leaderboard?community=%s&room=%s", testCommunity, testRoom), avaToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []game.LeaderboardEntry
	decodeData(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(200), entries[0].UserID)

	// 淘汰名单未解锁
	w = doJSON(t, engine, "GET", fmt.Sprintf("/api/v1/sessions/elimination-eligible?community=%s&room=%s", testCommunity, testRoom), hostToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
