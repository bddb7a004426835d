package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MugzLord/WIB/internal/utils"
)

// AuthMiddleware JWT认证中间件
// 平台身份与角色在签发令牌时确定，这里只做令牌校验与角色闸门；
// 领域前置条件（是否在册、是否席位持有人等）由引擎自行校验。
type AuthMiddleware struct {
	jwtManager *utils.JWTManager
	ownerID    int64
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *utils.JWTManager, ownerID int64) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		ownerID:    ownerID,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// RequireHost 需要主持人权限的中间件
// 配置的所有者ID始终视同主持人。
func (m *AuthMiddleware) RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		if !claims.IsHost() && claims.UserID != m.ownerID {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    "INSUFFICIENT_PERMISSION",
				"message": "需要主持人权限",
			})
			c.Abort()
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// RequireOwner 需要所有者权限的中间件
// 主持人身份不够用：开盒与奖品登记只认配置的所有者ID。
func (m *AuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		if claims.UserID != m.ownerID {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    "INSUFFICIENT_PERMISSION",
				"message": "需要所有者权限",
			})
			c.Abort()
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// OptionalAuth 可选认证的中间件（不强制要求令牌）
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := m.extractToken(c); token != "" {
			if claims, err := m.jwtManager.ValidateToken(token); err == nil {
				m.setContext(c, claims)
			}
		}

		c.Next()
	}
}

// authenticate 提取并校验令牌，失败时直接写响应并中止
func (m *AuthMiddleware) authenticate(c *gin.Context) (*utils.JWTClaims, bool) {
	token := m.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "NO_TOKEN",
			"message": "缺少认证令牌",
		})
		c.Abort()
		return nil, false
	}

	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_TOKEN",
			"message": "无效的令牌",
			"details": err.Error(),
		})
		c.Abort()
		return nil, false
	}

	if claims.TokenType != "access" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_TOKEN",
			"message": "需要访问令牌",
		})
		c.Abort()
		return nil, false
	}

	return claims, true
}

// setContext 将用户信息存入上下文
func (m *AuthMiddleware) setContext(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("userID", claims.UserID)
	c.Set("displayName", claims.DisplayName)
	c.Set("role", claims.Role)
	c.Set("isHost", claims.IsHost() || claims.UserID == m.ownerID)
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Query参数获取（WebSocket握手用）
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (int64, bool) {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(int64); ok {
			return id, true
		}
	}
	return 0, false
}

// GetDisplayName 从上下文获取显示名称
func GetDisplayName(c *gin.Context) (string, bool) {
	if name, exists := c.Get("displayName"); exists {
		if n, ok := name.(string); ok {
			return n, true
		}
	}
	return "", false
}

// IsHost 检查当前调用者是否具备主持人权限
func IsHost(c *gin.Context) bool {
	if v, exists := c.Get("isHost"); exists {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
