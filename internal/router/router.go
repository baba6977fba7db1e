package router

import (
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/rilaconsulting/pmpulse/internal/config"
	"github.com/rilaconsulting/pmpulse/internal/handler"
	"github.com/rilaconsulting/pmpulse/internal/middleware"
	"github.com/rilaconsulting/pmpulse/internal/repository"
	"github.com/rilaconsulting/pmpulse/internal/service"
	"github.com/rilaconsulting/pmpulse/internal/worker"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	vendorSvc := service.NewVendorService(vendorRepo)
	dedupSvc := service.NewDedupService(vendorRepo, analysisRepo, dispatcher, cfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	vendorsH := handler.NewVendorsHandler(vendorSvc)
	duplicatesH := handler.NewDuplicatesHandler(dedupSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: staff, manager, admin — declared per-endpoint.
		// Reads are open to all authenticated roles; link mutations and
		// analysis creation are reserved to manager/admin.
		v1.GET("/vendors", middleware.RequireRole("staff", "manager", "admin"), vendorsH.List)
		v1.GET("/vendors/:id", middleware.RequireRole("staff", "manager", "admin"), vendorsH.Get)
		v1.GET("/vendors/:id/duplicates", middleware.RequireRole("staff", "manager", "admin"), vendorsH.ListDuplicates)

		v1.POST("/vendors/:id/mark-duplicate", middleware.RequireRole("manager", "admin"), vendorsH.MarkDuplicate)
		v1.POST("/vendors/:id/mark-canonical", middleware.RequireRole("manager", "admin"), vendorsH.MarkCanonical)

		dup := v1.Group("/vendors/duplicates")
		{
			dup.POST("/scan", middleware.RequireRole("staff", "manager", "admin"), duplicatesH.Scan)
			dup.POST("/analyses", middleware.RequireRole("manager", "admin"), duplicatesH.StartAnalysis)
			dup.GET("/analyses/latest", middleware.RequireRole("staff", "manager", "admin"), duplicatesH.GetLatestAnalysis)
			dup.GET("/analyses/:id", middleware.RequireRole("staff", "manager", "admin"), duplicatesH.GetAnalysis)
		}

		users := v1.Group("/users", middleware.RequireRole("admin"))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.DELETE("/:id", usersH.Deactivate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
