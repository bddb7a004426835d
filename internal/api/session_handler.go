package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(engine *game.Engine, log *zap.Logger) *SessionHandler {
	return &SessionHandler{engine: engine, log: log}
}

// SessionKeyRequest 会话键请求体
type SessionKeyRequest struct {
	Community string `json:"community" binding:"required,max=64"`
	Room      string `json:"room" binding:"required,max=64"`
}

// CreateSessionRequest 建立会话请求
type CreateSessionRequest struct {
	SessionKeyRequest
	LobbyRef string `json:"lobby_ref" binding:"max=255"`
}

// JoinRequest 报名请求
type JoinRequest struct {
	SessionKeyRequest
	DisplayName string `json:"display_name" binding:"required,max=64"`
}

// sessionKeyFromQuery 从查询参数取会话键
func sessionKeyFromQuery(c *gin.Context) (string, string, bool) {
	community := c.Query("community")
	room := c.Query("room")
	if community == "" || room == "" {
		respondError(c, errors.New(errors.ErrInvalidParam, "缺少community或room参数"))
		return "", "", false
	}
	return community, room, true
}

// Create 建立（或复用）会话
// @Summary 建立会话
// @Description 按社区+房间建立会话;已存在则返回现有会话
// @Tags Sessions
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	session, err := h.engine.EnsureSession(c.Request.Context(), req.Community, req.Room)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.LobbyRef != "" {
		if err := h.engine.SetLobbyRef(c.Request.Context(), req.Community, req.Room, req.LobbyRef); err != nil {
			respondError(c, err)
			return
		}
		session.LobbyRef = req.LobbyRef
	}

	respondOK(c, session)
}

// Join 玩家报名
// @Summary 玩家报名
// @Description 报名进入当前会话;重复报名更新昵称
// @Tags Sessions
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body JoinRequest true "报名信息"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/sessions/join [post]
func (h *SessionHandler) Join(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	participant, err := h.engine.RegisterParticipant(c.Request.Context(), req.Community, req.Room, userID, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, participant)
}

// Lock 锁定报名
// @Summary 锁定报名
// @Description 一次性动作;锁定时备妥第一个盒子
// @Tags Sessions
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SessionKeyRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/sessions/lock [post]
func (h *SessionHandler) Lock(c *gin.Context) {
	var req SessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.engine.LockSession(c.Request.Context(), req.Community, req.Room)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("会话已锁定",
		zap.String("community", req.Community),
		zap.String("room", req.Room),
		zap.Int("players", result.PlayerCount))

	respondOK(c, result)
}

// Status 会话状态快照
// @Summary 会话状态
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param community query string true "社区"
// @Param room query string true "房间"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/sessions/status [get]
func (h *SessionHandler) Status(c *gin.Context) {
	community, room, ok := sessionKeyFromQuery(c)
	if !ok {
		return
	}

	snapshot, err := h.engine.Status(c.Request.Context(), community, room)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, snapshot)
}

// Leaderboard 盒子归属排行榜
// @Summary 排行榜
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param community query string true "社区"
// @Param room query string true "房间"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/sessions/leaderboard [get]
func (h *SessionHandler) Leaderboard(c *gin.Context) {
	community, room, ok := sessionKeyFromQuery(c)
	if !ok {
		return
	}

	entries, err := h.engine.Leaderboard(c.Request.Context(), community, room)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, entries)
}

// EliminationEligible 可淘汰名单
// @Summary 可淘汰名单
// @Description 开满3个盒子后解锁;返回未持有盒子的存活玩家
// @Tags Sessions
// @Security Bearer
// @Produce json
// @Param community query string true "社区"
// @Param room query string true "房间"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/sessions/elimination-eligible [get]
func (h *SessionHandler) EliminationEligible(c *gin.Context) {
	community, room, ok := sessionKeyFromQuery(c)
	if !ok {
		return
	}

	participants, err := h.engine.EliminationEligible(c.Request.Context(), community, room)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    participants,
	})
}
