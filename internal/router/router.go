package router

import (
	"time"

	"atmricky/internal/config"
	"atmricky/internal/handler"
	"atmricky/internal/middleware"
	"atmricky/internal/repository"
	"atmricky/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// New wires the identity service and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB. rdb may be nil; pub
// may be nil when nobody listens for user mutations.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, pub service.MutationPublisher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	usuarioRepo := repository.NewUsuarioRepository(db)
	usuarioSvc := service.NewUsuarioService(usuarioRepo, cfg, pub)
	usuariosH := handler.NewUsuariosHandler(usuarioSvc)

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Actor(usuarioSvc))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	r.GET("/health", handler.Health(db, rdb))

	usuarios := r.Group("/usuarios")
	{
		usuarios.GET("", usuariosH.Listar)
		usuarios.POST("", usuariosH.Crear)
		usuarios.PUT("/:username", usuariosH.Actualizar)
		usuarios.DELETE("/:username", usuariosH.Eliminar)
	}
	r.POST("/login", middleware.LoginRateLimiter(cfg.LoginRateLimit), usuariosH.Login)

	if handler.DistAvailable(cfg.FrontendDistDir) {
		log.Info().Str("dir", cfg.FrontendDistDir).Msg("serving frontend bundle")
		r.NoRoute(handler.SPA(cfg.FrontendDistDir))
	}

	return r
}
