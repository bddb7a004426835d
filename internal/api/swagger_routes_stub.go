//go:build !swagger

package api

// setupSwaggerRoutes 是空实现，用于非 swagger 构建
func (r *Router) setupSwaggerRoutes() {}
