// Package web assembles the HTTP surface: middleware, API routes and the
// single page app.
package web

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"itpulse/internal/articles"
	"itpulse/internal/auth"
	"itpulse/internal/drafts"
	"itpulse/internal/metrics"
	"itpulse/internal/prefs"
	"itpulse/internal/session"
)

type Deps struct {
	Sessions  *session.Manager
	Tokens    auth.TokenService
	Prefs     *prefs.Service
	DB        *sql.DB
	StaticDir string
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(), metrics.Middleware(), ClientHints())

	// Only a local reverse proxy may set forwarded headers.
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": d.Sessions.Count()})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authHandler := auth.NewHandler(d.Sessions, d.Tokens, d.Prefs)
	authHandler.RegisterRoutes(router.Group("/auth"))

	public := router.Group("/api")
	authHandler.RegisterSessionRoutes(public)

	// Session routes
	api := router.Group("/api")
	api.Use(auth.SessionMiddleware(d.Tokens, d.Sessions))

	articles.NewHandler().RegisterRoutes(api)
	drafts.NewHandler().RegisterRoutes(api)
	prefs.NewHandler(d.Prefs).RegisterRoutes(api)

	router.NoRoute(SPA(d.StaticDir))
	return router
}
