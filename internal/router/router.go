package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/handler"
)

const sessionName = "petallog_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(sessionSecret string, api *handler.API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		secret = "petallog-dev-secret"
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(api.LocaleMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/api")
	{
		public.POST("/login", api.Login)
		public.POST("/logout", api.Logout)
	}

	auth := r.Group("/api")
	auth.Use(api.AuthRequired())
	{
		auth.GET("/settings", api.GetSettings)
		auth.PUT("/settings", api.UpdateSettings)

		auth.GET("/tables", api.ListTables)
		auth.POST("/tables", api.CreateTable)

		table := auth.Group("/tables/:id")
		{
			table.GET("/categories", api.ListCategories)
			table.POST("/categories", api.CreateCategory)
			table.PUT("/categories/order", api.ReorderCategories)
			table.PUT("/categories/:cid", api.UpdateCategory)
			table.DELETE("/categories/:cid", api.DeleteCategory)
			table.POST("/categories/:cid/delta", api.ApplyDelta)

			table.GET("/progress", api.GetProgress)
			table.GET("/journal", api.GetJournal)

			table.GET("/chart.svg", api.GetChartSVG)
			table.GET("/chart.png", api.GetChartPNG)
			table.POST("/chart/click", api.ClickChart)
			table.POST("/chart/petals/:cid/click", api.ClickPetal)
			table.POST("/chart/petals/:cid/dblclick", api.DoubleClickPetal)
		}
	}

	return r
}
