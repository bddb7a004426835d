package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MugzLord/WIB/internal/archive"
	"github.com/MugzLord/WIB/internal/config"
	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/middleware"
	"github.com/MugzLord/WIB/internal/utils"
	ws "github.com/MugzLord/WIB/internal/websocket"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger

	authHandler     *AuthHandler
	sessionHandler  *SessionHandler
	triviaHandler   *TriviaHandler
	orderingHandler *OrderingHandler
	cardsHandler    *CardsHandler
	puzzleHandler   *PuzzleHandler
	boxHandler      *BoxHandler
	archiveHandler  *ArchiveHandler
	wsHandler       *WebSocketHandler
}

// NewRouter 创建路由器
// archiveStore 可为nil，此时不挂载归档查询路由。
func NewRouter(db *gorm.DB, cfg *config.Config, gameEngine *game.Engine, hub *ws.Hub, archiveStore *archive.Store, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	jwtManager := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.RefreshExpiry)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, cfg.Auth.OwnerID)

	router := &Router{
		engine:          engine,
		db:              db,
		authMiddleware:  authMiddleware,
		log:             log,
		authHandler:     NewAuthHandler(jwtManager, cfg, log),
		sessionHandler:  NewSessionHandler(gameEngine, log),
		triviaHandler:   NewTriviaHandler(gameEngine, log),
		orderingHandler: NewOrderingHandler(gameEngine, log),
		cardsHandler:    NewCardsHandler(gameEngine, log),
		puzzleHandler:   NewPuzzleHandler(gameEngine, log),
		boxHandler:      NewBoxHandler(gameEngine, log),
		wsHandler:       NewWebSocketHandler(hub, log),
	}
	if archiveStore != nil {
		router.archiveHandler = NewArchiveHandler(archiveStore, log)
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// OpenAPI文档
	r.setupOpenAPIRoutes()
	r.setupSwaggerRoutes()

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/token", r.authHandler.IssueToken)
			auth.POST("/refresh", r.authHandler.RefreshToken)
		}

		// 会话相关路由
		sessions := v1.Group("/sessions")
		sessions.Use(r.authMiddleware.RequireAuth())
		{
			sessions.GET("/status", r.sessionHandler.Status)
			sessions.GET("/leaderboard", r.sessionHandler.Leaderboard)
			sessions.POST("/join", r.sessionHandler.Join)

			hostOnly := sessions.Group("")
			hostOnly.Use(r.authMiddleware.RequireHost())
			{
				hostOnly.POST("", r.sessionHandler.Create)
				hostOnly.POST("/lock", r.sessionHandler.Lock)
				hostOnly.GET("/elimination-eligible", r.sessionHandler.EliminationEligible)
			}
		}

		// 抢答题路由
		trivia := v1.Group("/trivia")
		trivia.Use(r.authMiddleware.RequireAuth())
		{
			trivia.POST("/submit", r.triviaHandler.Submit)

			hostOnly := trivia.Group("")
			hostOnly.Use(r.authMiddleware.RequireHost())
			{
				hostOnly.POST("/preview", r.triviaHandler.Preview)
				hostOnly.POST("/preview/regenerate", r.triviaHandler.RegeneratePreview)
				hostOnly.POST("/publish", r.triviaHandler.Publish)
				hostOnly.POST("/resolve", r.triviaHandler.Resolve)
			}
		}

		// 排序挑战路由
		ordering := v1.Group("/ordering")
		ordering.Use(r.authMiddleware.RequireAuth())
		{
			ordering.POST("/submit", r.orderingHandler.Submit)

			hostOnly := ordering.Group("")
			hostOnly.Use(r.authMiddleware.RequireHost())
			{
				hostOnly.POST("/preview", r.orderingHandler.Preview)
				hostOnly.POST("/preview/regenerate", r.orderingHandler.RegeneratePreview)
				hostOnly.POST("/publish", r.orderingHandler.Publish)
			}
		}

		// 翻牌路由（席位校验在引擎内）
		cards := v1.Group("/cards")
		cards.Use(r.authMiddleware.RequireAuth())
		{
			cards.POST("/reveal", r.cardsHandler.Reveal)
			cards.POST("/pending/resolve", r.cardsHandler.ResolvePending)
		}

		// 短语解谜路由
		puzzle := v1.Group("/puzzle")
		puzzle.Use(r.authMiddleware.RequireAuth())
		{
			puzzle.POST("/guess", r.puzzleHandler.Guess)
			puzzle.POST("/check", r.authMiddleware.RequireHost(), r.puzzleHandler.Check)
		}

		// 盒子路由（开盒与奖品登记只有所有者可以执行）
		boxes := v1.Group("/boxes")
		boxes.Use(r.authMiddleware.RequireAuth(), r.authMiddleware.RequireOwner())
		{
			boxes.POST("/open", r.boxHandler.Open)
			boxes.PUT("/prize", r.boxHandler.SetPrize)
		}

		// 归档查询路由
		if r.archiveHandler != nil {
			archives := v1.Group("/archive")
			archives.Use(r.authMiddleware.RequireAuth())
			{
				archives.GET("/sessions", r.archiveHandler.List)
				archives.GET("/sessions/:id", r.archiveHandler.Get)
			}
		}
	}

	// WebSocket路由（支持query token）
	r.engine.GET("/ws", r.authMiddleware.RequireAuth(), r.wsHandler.Connect)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试与外层http.Server）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
