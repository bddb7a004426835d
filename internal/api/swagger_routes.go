//go:build swagger

package api

import (
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// setupSwaggerRoutes 注册 Swagger 文档路由（仅在 -tags swagger 时启用）
func (r *Router) setupSwaggerRoutes() {
	// 使用 OpenAPI 路径作为文档数据源，避免强依赖本地生成包
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/openapi"),
		ginSwagger.DocExpansion("none"),
	))
}
