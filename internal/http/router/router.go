// Package router builds the gin engine from the application's modules.
package router

import (
	"net/http"
	"time"

	apphttp "marketplace_search_backend/internal/http"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New creates the HTTP handler with global middleware and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.NoRoute(func(c *gin.Context) {
		httpkit.Error(c, http.StatusNotFound, apperr.KindNotFound.String(), "route not found", nil)
	})

	limiter := httpkit.NewIPRateLimiter(
		rate.Limit(app.Config.GetRateLimitRPS()),
		app.Config.GetRateLimitBurst(),
		app.Logger,
	)

	api := engine.Group("/api")
	api.Use(limiter.RateLimit())

	routerCtx := &apphttp.RouterContext{
		Engine:      engine,
		API:         api,
		RateLimiter: limiter,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", httpkit.RequestIDHeader},
		ExposeHeaders: []string{httpkit.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.GetCORSOrigins()
	if cfg.GetCORSAllowAll() || len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
