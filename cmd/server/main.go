package main

import (
	"context"
	"document-vault/internal/access"
	"document-vault/internal/blob"
	"document-vault/internal/config"
	"document-vault/internal/db"
	"document-vault/internal/hub"
	"document-vault/internal/logger"
	"document-vault/internal/middleware"
	"document-vault/internal/notification"
	"document-vault/internal/resource"
	"document-vault/internal/user"
	"document-vault/internal/worker"
	"document-vault/redis"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	config.LoadConfig()

	logger.Init(config.AppConfig.Environment)
	defer logger.Sync()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	db.SeedData()

	// Initialize Redis
	redis.InitRedis()
	cache := redis.NewCache(redis.RedisClient)

	// Blob store for file content
	blobStore, err := blob.Connect(
		config.AppConfig.MinioEndpoint,
		config.AppConfig.MinioAccessKey,
		config.AppConfig.MinioSecretKey,
		config.AppConfig.MinioBucket,
	)
	if err != nil {
		logger.Log.Fatal("failed to connect to blob store", zap.Error(err))
	}

	// Background pool for cache invalidation and hub notifies
	pool := worker.NewPool(4)
	defer pool.Shutdown()

	hubClient := hub.NewHubClient(config.AppConfig.HubAddress, config.AppConfig.InternalSecret)

	// Initialize repositories
	userRepo := user.NewRepository(db.AppDb)
	resourceRepo := resource.NewRepository(db.AppDb)
	assignmentRepo := access.NewAssignmentRepository(db.AppDb)
	notificationRepo := notification.NewRepository(db.AppDb)

	// Initialize services
	userService := user.NewService(userRepo)
	resolver := access.NewResolver(resourceRepo, assignmentRepo)
	accessService := access.NewService(resolver, resourceRepo, assignmentRepo, userService, hubClient, cache, pool)
	resourceService := resource.NewService(resourceRepo, resolver, blobStore, hubClient, cache, pool)
	notificationService := notification.NewService(notificationRepo, resourceRepo, hubClient, cache, pool)

	// Initialize handlers
	userHandler := user.NewHandler(userService)
	resourceHandler := resource.NewHandler(resourceService)
	accessHandler := access.NewHandler(accessService)
	notificationHandler := notification.NewHandler(notificationService)

	authMiddleware := &middleware.Auth{
		UserService:    userService,
		InternalSecret: config.AppConfig.InternalSecret,
	}

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	requireAuth := authMiddleware.Required()
	optionalAuth := authMiddleware.Optional()

	// User routes
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)
	router.DELETE("/logout", requireAuth, userHandler.Logout)
	router.GET("/profile", requireAuth, userHandler.GetProfile)
	router.GET("/users", requireAuth, userHandler.SearchUsers)
	router.GET("/admin/users", requireAuth, userHandler.ListUsers)
	router.DELETE("/admin/users/:id", requireAuth, userHandler.DeactivateUser)

	// Resource routes; reads are optionally authenticated so public
	// resources stay reachable without a session
	router.POST("/repositories", requireAuth, resourceHandler.CreateRepository)
	router.POST("/resources", requireAuth, resourceHandler.Create)
	router.GET("/resources", optionalAuth, accessHandler.ListAccessible)
	router.GET("/resources/:id", optionalAuth, resourceHandler.Show)
	router.DELETE("/resources/:id", requireAuth, resourceHandler.Delete)
	router.GET("/resources/:id/content", optionalAuth, resourceHandler.DownloadContent)
	router.PUT("/resources/:id/content", requireAuth, resourceHandler.UploadContent)

	// Access routes
	router.GET("/resources/:id/access", optionalAuth, accessHandler.Check)
	router.POST("/resources/:id/assignments", requireAuth, accessHandler.Grant)
	router.DELETE("/resources/:id/assignments/:userId", requireAuth, accessHandler.Revoke)

	// Access-request routes
	router.POST("/resources/:id/access-requests", requireAuth, notificationHandler.RequestAccess)
	router.GET("/notifications", requireAuth, notificationHandler.List)
	router.POST("/notifications/:id/resolve", requireAuth, notificationHandler.Resolve)
	router.DELETE("/notifications/:id", requireAuth, notificationHandler.Dismiss)

	// internal use routes
	router.GET("/internal/resources/:id/access", authMiddleware.InternalAuthMiddleware(), accessHandler.InternalCheck)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		logger.Log.Info("Server listening", zap.String("port", serverPort))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("Server shutdown error", zap.Error(err))
	}

	<-ctx.Done()
	logger.Log.Info("Server shutdown complete")
}
