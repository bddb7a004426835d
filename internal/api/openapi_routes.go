package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// setupOpenAPIRoutes 提供 /openapi 与 /docs/redoc
func (r *Router) setupOpenAPIRoutes() {
	r.engine.GET("/openapi", serveOpenAPI)
	r.engine.GET("/openapi.yaml", serveOpenAPI)
	r.engine.GET("/docs/redoc", serveRedoc)
}

func serveOpenAPI(c *gin.Context) {
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.File("docs/api/openapi.yaml")
}

func serveRedoc(c *gin.Context) {
	// 优先使用本地 redoc 资源，离线可用；否则回退到 CDN
	scriptTag := `<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>`
	if _, err := os.Stat("static/vendors/redoc/redoc.standalone.js"); err == nil {
		scriptTag = `<script src="/static/vendors/redoc/redoc.standalone.js"></script>`
	}

	html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>WIB API - Redoc</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc spec-url="/openapi" expand-responses="200,201"></redoc>
    ` + scriptTag + `
  </body>
</html>`
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
