package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers"
	"github.com/ignatzorin/marketplace-backend/internal/http/middleware"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Handlers собирает все HTTP хэндлеры приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Categories    *handlers.CategoryHandler
	Services      *handlers.ServiceHandler
	Media         *handlers.MediaHandler
	Reviews       *handlers.ReviewHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
	// Seed регистрируется только вне production.
	Seed *handlers.SeedHandler
}

// SetupRouter регистрирует маршруты и middleware.
func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	auth := middleware.AuthMiddleware(tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	idParam := middleware.UUIDValidator("id")

	r.GET("/health", h.Health.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	// Долгоживущее соединение, без дедлайна запроса.
	r.GET("/api/ws", auth, h.WS.Handle)

	api := r.Group("/api", middleware.RequestTimeout(cfg.RequestTimeout))

	if h.Seed != nil && !cfg.IsProduction() {
		api.POST("/seed", h.Seed.Seed)
	}

	authGroup := api.Group("/auth", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}
	api.GET("/profile", auth, h.Auth.Profile)

	categories := api.Group("/categories")
	{
		categories.GET("", h.Categories.List)
		categories.GET("/roots", h.Categories.Roots)
		categories.GET("/search", h.Categories.Search)
		categories.GET("/slug-suggestion", h.Categories.SuggestSlug)
		categories.GET("/slug/:slug", h.Categories.GetBySlug)
		categories.GET("/:id", idParam, h.Categories.Get)
		categories.GET("/:id/hierarchy", idParam, h.Categories.Hierarchy)

		categories.POST("", auth, adminOnly, h.Categories.Create)
		categories.PATCH("/:id", auth, adminOnly, idParam, h.Categories.Update)
		categories.DELETE("/:id", auth, adminOnly, idParam, h.Categories.Delete)
	}

	services := api.Group("/services")
	{
		services.GET("", h.Services.List)
		services.GET("/:id", idParam, h.Services.Get)

		services.POST("", auth, h.Services.Create)
		services.PATCH("/:id", auth, idParam, h.Services.Update)
		services.POST("/:id/deactivate", auth, idParam, h.Services.Deactivate)
		services.DELETE("/:id", auth, idParam, h.Services.Delete)
		services.POST("/:id/images", auth, idParam, h.Media.UploadServiceImage)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("/stats/:targetId", middleware.UUIDValidator("targetId"), h.Reviews.Stats)
		reviews.GET("/:id", idParam, h.Reviews.Get)

		reviews.POST("", auth, middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), h.Reviews.Submit)
		reviews.DELETE("/:id", auth, idParam, h.Reviews.Delete)
	}
	api.GET("/users/:id/reviews/given", idParam, h.Reviews.ListGiven)
	api.GET("/users/:id/reviews/received", idParam, h.Reviews.ListReceived)

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread/count", h.Notifications.UnreadCount)
		notifications.PUT("/:id/read", idParam, h.Notifications.MarkAsRead)
	}

	return r
}
