package api

import (
	"context"
	"net/http"
	"time"

	"plate-recipe-api/internal/api/handlers/health"
	recipeHandler "plate-recipe-api/internal/api/handlers/recipe"
	"plate-recipe-api/internal/api/middleware"
	recipeService "plate-recipe-api/internal/core/recipe"
	"plate-recipe-api/internal/infrastructure/config"
	"plate-recipe-api/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generation calls can take a while; give each request room for the
// full retry budget.
const requestTimeout = 120 * time.Second

// SetupRouter wires middleware, probes and the recipe API.
func SetupRouter(cfg *config.Config, svc *recipeService.Service, store health.Pinger) *gin.Engine {
	common.LogInfo("starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.MaxBodySize))
	router.Use(middleware.Deduplication(cfg.DedupWindow))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
			})
		}
	})

	healthHandler := health.NewHandler(cfg.App.Version, store)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	api := router.Group("/api/v1")
	{
		handler := recipeHandler.NewHandler(svc)

		recipes := api.Group("/recipes")
		{
			recipes.POST("/ingredients", handler.HandleIngredients)
			recipes.POST("/dish", handler.HandleDish)
			recipes.POST("/:id/vote", handler.HandleVote)
			recipes.PUT("/:id/favorite", handler.HandleAddFavorite)
			recipes.DELETE("/:id/favorite", handler.HandleRemoveFavorite)
			recipes.GET("/top", handler.HandleTop)
		}

		api.POST("/plate/analysis", handler.HandlePlateAnalysis)

		users := api.Group("/users")
		{
			users.GET("/:user_id/settings", handler.HandleGetSettings)
			users.PUT("/:user_id/settings", handler.HandleSaveSettings)
		}
	}

	common.LogInfo("router setup completed")
	return router
}
