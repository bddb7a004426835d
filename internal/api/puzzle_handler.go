package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
)

// PuzzleHandler 短语解谜处理器
type PuzzleHandler struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewPuzzleHandler 创建短语解谜处理器
func NewPuzzleHandler(engine *game.Engine, log *zap.Logger) *PuzzleHandler {
	return &PuzzleHandler{engine: engine, log: log}
}

// GuessRequest 三词猜测
type GuessRequest struct {
	SessionKeyRequest
	Words []string `json:"words" binding:"required"`
}

// Guess 玩家提交短语猜测
// @Summary 提交猜测
// @Description 三个词,大小写不敏感,判分前不公开命中情况
// @Tags Puzzle
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body GuessRequest true "猜测词"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/puzzle/guess [post]
func (h *PuzzleHandler) Guess(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	var req GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	attempt, err := h.engine.SubmitPuzzleGuess(c.Request.Context(), req.Community, req.Room, userID, req.Words)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, attempt)
}

// Check 主持人判分最新猜测
// @Summary 判分猜测
// @Description 判分最新未判猜测;未解出时按接近度轮转席位
// @Tags Puzzle
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SessionKeyRequest true "会话键"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/puzzle/check [post]
func (h *PuzzleHandler) Check(c *gin.Context) {
	var req SessionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	check, err := h.engine.CheckLatestPuzzleAttempt(c.Request.Context(), req.Community, req.Room)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, check)
}
