package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// OrderingHandler 排序挑战处理器
type OrderingHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewOrderingHandler 创建排序挑战处理器
func NewOrderingHandler(engine *game.Engine, log *zap.Logger) *OrderingHandler {
	return &OrderingHandler{engine: engine, log: log}
}

// OrderingSubmitRequest 排序提交
type OrderingSubmitRequest struct {
	SessionKeyRequest
	Letters []string `json:"letters" binding:"required"`
}

// Preview 生成排序挑战预览
// 要求当前盒子已有席位持有人。
// @Summary 排序挑战预览
// @Tags Ordering
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PreviewRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/ordering/preview [post]
func (h *OrderingHandler) Preview(c *gin.Context) {
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

	preview, err := h.engine.NewOrderingPreview(c.Request.Context(), req.Community, req.Room, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, preview)
}

// RegeneratePreview 重摇排序内容
// @Summary 重摇排序预览
// @Tags Ordering
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PreviewIDRequest true "预览ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/ordering/preview/regenerate [post]
func (h *OrderingHandler) RegeneratePreview(c *gin.Context) {
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

	preview, err := h.engine.RegenerateOrderingPreview(c.Request.Context(), req.PreviewID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, preview)
}

// Publish 发布排序挑战给当前席位持有人
// @Summary 发布排序挑战
// @Tags Ordering
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PublishRequest true "发布请求"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/ordering/publish [post]
func (h *OrderingHandler) Publish(c *gin.Context) {
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

	preview, err := h.engine.PublishOrderingFromPreview(c.Request.Context(), req.PreviewID, hostID, req.Ref)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("排序挑战已发布",
		zap.String("community", preview.Community),
		zap.String("room", preview.Room),
		zap.Int("box", preview.Box))

	respondOK(c, preview)
}

// Submit 席位持有人提交排列
// 提交即判定，命中数即为本盒获得的翻牌次数。
// @Summary 提交排序
// @Tags Ordering
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body OrderingSubmitRequest true "五个字母的排列"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/ordering/submit [post]
func (h *OrderingHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req OrderingSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	turns, err := h.engine.SubmitOrdering(c.Request.Context(), req.Community, req.Room, userID, req.Letters)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"turns_awarded": turns})
}
