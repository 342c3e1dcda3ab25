package main

import (
	"os"

	_ "github.com/MohammedAlanizy/PatientPortal/api/swagger" // swagger docs
	"github.com/MohammedAlanizy/PatientPortal/internal/config"
	"github.com/MohammedAlanizy/PatientPortal/internal/database"
	"github.com/MohammedAlanizy/PatientPortal/internal/handler"
	"github.com/MohammedAlanizy/PatientPortal/internal/logger"
	"github.com/MohammedAlanizy/PatientPortal/internal/middleware"
	"github.com/MohammedAlanizy/PatientPortal/internal/repository"
	"github.com/MohammedAlanizy/PatientPortal/internal/service"
	"github.com/MohammedAlanizy/PatientPortal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Patient Portal API
// @version         1.0
// @description     Patient queue management: registration requests, verification, assignees and the serving counter.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Seed(db, os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatal().Err(err).Msg("database seed failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.Env)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	requestRepo := repository.NewRequestRepository(db)
	userRepo := repository.NewUserRepository(db)
	assigneeRepo := repository.NewAssigneeRepository(db)
	counterRepo := repository.NewCounterRepository(db)

	requestService := service.NewRequestService(requestRepo, userRepo, counterRepo, wsHub, log)
	userService := service.NewUserService(userRepo, auth)
	assigneeService := service.NewAssigneeService(assigneeRepo)
	counterService := service.NewCounterService(counterRepo)

	requestHandler := handler.NewRequestHandler(requestService, auth, cfg.MaxFetchLimit)
	userHandler := handler.NewUserHandler(userService, auth, cfg.MaxFetchLimit)
	assigneeHandler := handler.NewAssigneeHandler(assigneeService, auth, cfg.MaxFetchLimit)
	counterHandler := handler.NewCounterHandler(counterService)

	// Set up Gin Router
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	// Register API Routes
	api := router.Group("/api/v1")
	requestHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	assigneeHandler.RegisterRoutes(api)
	counterHandler.RegisterRoutes(api)

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
