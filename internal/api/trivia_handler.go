package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// TriviaHandler 抢答题处理器
type TriviaHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewTriviaHandler 创建抢答题处理器
func NewTriviaHandler(engine *game.Engine, log *zap.Logger) *TriviaHandler {
	return &TriviaHandler{engine: engine, log: log}
}

// PreviewRequest 预览请求
type PreviewRequest struct {
	SessionKeyRequest
}

// PreviewIDRequest 预览操作请求
type PreviewIDRequest struct {
	PreviewID string `json:"preview_id" binding:"required"`
}

// PublishRequest 发布请求
type PublishRequest struct {
	PreviewID string `json:"preview_id" binding:"required"`
	Ref       string `json:"ref" binding:"max=255"`
}

// TriviaSubmitRequest 抢答提交
type TriviaSubmitRequest struct {
	SessionKeyRequest
	Value int64 `json:"value"`
}

// Preview 生成抢答题预览
// 预览只对发起的主持人可见，发布前可反复重摇。
// @Summary 抢答题预览
// @Tags Trivia
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PreviewRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/trivia/preview [post]
func (h *TriviaHandler) Preview(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	preview, err := h.engine.NewTriviaPreview(c.Request.Context(), req.Community, req.Room, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, preview)
}

// RegeneratePreview 重摇预览内容
// @Summary 重摇抢答题预览
// @Tags Trivia
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PreviewIDRequest true "预览ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/trivia/preview/regenerate [post]
func (h *TriviaHandler) RegeneratePreview(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req PreviewIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	preview, err := h.engine.RegenerateTriviaPreview(c.Request.Context(), req.PreviewID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, preview)
}

// Publish 把预览发布为进行中的抢答回合
// @Summary 发布抢答题
// @Tags Trivia
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PublishRequest true "发布请求"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/trivia/publish [post]
func (h *TriviaHandler) Publish(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	preview, err := h.engine.PublishTriviaFromPreview(c.Request.Context(), req.PreviewID, hostID, req.Ref)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("抢答题已发布",
		zap.String("community", preview.Community),
		zap.String("room", preview.Room),
		zap.Int("box", preview.Box))

	respondOK(c, preview)
}

// Submit 玩家提交抢答
// @Summary 提交抢答
// @Description 每人每题一次，重复提交拒绝
// @Tags Trivia
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body TriviaSubmitRequest true "提交内容"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/trivia/submit [post]
func (h *TriviaHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req TriviaSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.engine.SubmitTrivia(c.Request.Context(), req.Community, req.Room, userID, req.Value); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"accepted": true})
}

// Resolve 关闭抢答并判定席位
// @Summary 判定抢答
// @Tags Trivia
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SessionKeyRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/trivia/resolve [post]
func (h *TriviaHandler) Resolve(c *gin.Context) {
	var req SessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	outcome, err := h.engine.ResolveTrivia(c.Request.Context(), req.Community, req.Room)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, outcome)
}
