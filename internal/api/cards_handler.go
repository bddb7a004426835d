package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// CardsHandler 翻牌处理器
type CardsHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewCardsHandler 创建翻牌处理器
func NewCardsHandler(engine *game.Engine, log *zap.Logger) *CardsHandler {
	return &CardsHandler{engine: engine, log: log}
}

// RevealRequest 翻牌请求
type RevealRequest struct {
	SessionKeyRequest
	Index int `json:"index" binding:"required,min=1,max=10"`
}

// ResolvePendingRequest 处理特殊牌请求
type ResolvePendingRequest struct {
	SessionKeyRequest
	TargetUserID int64 `json:"target_user_id"`
	Box          int   `json:"box"`
}

// Reveal 席位持有人翻开一张牌
// @Summary 翻牌
// @Description 消耗一次翻牌机会;特殊牌会挂起待处理动作
// @Tags Cards
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body RevealRequest true "牌序号 1-10"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/cards/reveal [post]
func (h *CardsHandler) Reveal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.engine.RevealCard(c.Request.Context(), req.Community, req.Room, userID, req.Index)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result)
}

// ResolvePending 处理挂起的特殊牌
// PASS 需要 target_user_id;STEAL/DONATE 需要 box。
// @Summary 处理特殊牌
// @Tags Cards
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body ResolvePendingRequest true "处理选择"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/cards/pending/resolve [post]
func (h *CardsHandler) ResolvePending(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req ResolvePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	outcome, err := h.engine.ResolvePending(c.Request.Context(), req.Community, req.Room, userID, req.TargetUserID, req.Box)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, outcome)
}
