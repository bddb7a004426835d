package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/config"
	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	cfg        *config.Config
	log        *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtManager *utils.JWTManager, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		cfg:        cfg,
		log:        log,
	}
}

// TokenRequest 签发令牌请求
type TokenRequest struct {
	UserID      int64  `json:"user_id" binding:"required,min=1"`
	DisplayName string `json:"display_name" binding:"required,max=64"`
	HostKey     string `json:"host_key"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DisplayName  string `json:"display_name" binding:"required,max=64"`
	HostKey      string `json:"host_key"`
}

// IssueToken 签发JWT
// 默认签发玩家角色；携带正确主持人口令或user_id为服务所有者时签发主持人角色。
// @Summary 签发令牌
// @Description 按user_id签发访问令牌与刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "签发请求"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	role, err := h.resolveRole(req.UserID, req.HostKey)
	if err != nil {
		respondError(c, err)
		return
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(req.UserID, req.DisplayName, role)
	if err != nil {
		h.log.Error("生成访问令牌失败", zap.Int64("user_id", req.UserID), zap.Error(err))
		respondError(c, errors.Wrap(err, errors.ErrUnknown, "生成令牌失败"))
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(req.UserID)
	if err != nil {
		h.log.Error("生成刷新令牌失败", zap.Int64("user_id", req.UserID), zap.Error(err))
		respondError(c, errors.Wrap(err, errors.ErrUnknown, "生成令牌失败"))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         role,
		ExpiresIn:    int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}

// RefreshToken 刷新访问令牌
// @Summary 刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新请求"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrTokenInvalid, "刷新令牌无效"))
		return
	}

	role, err := h.resolveRole(claims.UserID, req.HostKey)
	if err != nil {
		respondError(c, err)
		return
	}

	accessToken, err := h.jwtManager.RefreshAccessToken(req.RefreshToken, req.DisplayName, role)
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrTokenInvalid, "刷新令牌失败"))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
		Role:         role,
		ExpiresIn:    int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}

// resolveRole 判定签发角色
func (h *AuthHandler) resolveRole(userID int64, hostKey string) (string, error) {
	// 服务所有者始终具备主持人权限
	if userID == h.cfg.Auth.OwnerID {
		return utils.RoleHost, nil
	}

	if hostKey == "" {
		return utils.RolePlayer, nil
	}

	if h.cfg.Auth.HostKeyHash == "" {
		return "", errors.New(errors.ErrAuthentication, "未配置主持人口令")
	}

	ok, err := utils.VerifyHostKey(hostKey, h.cfg.Auth.HostKeyHash)
	if err != nil {
		h.log.Error("校验主持人口令失败", zap.Error(err))
		return "", errors.Wrap(err, errors.ErrAuthentication, "校验主持人口令失败")
	}
	if !ok {
		return "", errors.New(errors.ErrAuthentication, "主持人口令错误")
	}

	return utils.RoleHost, nil
}
