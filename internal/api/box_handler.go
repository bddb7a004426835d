package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// BoxHandler 盒子处理器
type BoxHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewBoxHandler 创建盒子处理器
func NewBoxHandler(engine *game.Engine, log *zap.Logger) *BoxHandler {
	return &BoxHandler{engine: engine, log: log}
}

// SetPrizeRequest 奖品登记请求
type SetPrizeRequest struct {
	SessionKeyRequest
	Box         int    `json:"box" binding:"required,min=1,max=6"`
	Title       string `json:"title" binding:"required,max=120"`
	Description string `json:"description" binding:"max=800"`
}

// OpenBoxRequest 开盒请求
// 奖品未提前登记时可在开盒时一并填写。
type OpenBoxRequest struct {
	SessionKeyRequest
	Title       string `json:"title" binding:"max=120"`
	Description string `json:"description" binding:"max=800"`
}

// SetPrize 登记盒子奖品
// @Summary 登记奖品
// @Description 同一盒子重复登记视为覆盖
// @Tags Boxes
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SetPrizeRequest true "奖品内容"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/boxes/prize [put]
func (h *BoxHandler) SetPrize(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req SetPrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	prize, err := h.engine.SetPrize(c.Request.Context(), req.Community, req.Room, req.Box, req.Title, req.Description, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, prize)
}

// Open 开出当前盒子
// @Summary 开盒
// @Description 短语解出且奖品就绪后开盒;盒子归解出者,第六个盒子开出即完局
// @Tags Boxes
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body OpenBoxRequest true "开盒请求"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/boxes/open [post]
func (h *BoxHandler) Open(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req OpenBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.engine.OpenBox(c.Request.Context(), req.Community, req.Room, userID, req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("盒子已开出",
		zap.String("community", req.Community),
		zap.String("room", req.Room),
		zap.Int("box", result.Box),
		zap.Int64("owner", result.OwnerID),
		zap.Bool("complete", result.SessionComplete))

	respondOK(c, result)
}
