package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/devicelink/internal/config"
	"github.com/quocanhngo/devicelink/internal/handler"
	"github.com/quocanhngo/devicelink/internal/middleware"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/repository"
	"github.com/quocanhngo/devicelink/internal/scheduler"
	"github.com/quocanhngo/devicelink/internal/service"
	"github.com/quocanhngo/devicelink/internal/ws"
	"github.com/quocanhngo/devicelink/migrations"
	"github.com/quocanhngo/devicelink/pkg/auth"
	"github.com/quocanhngo/devicelink/pkg/notification"
	"github.com/quocanhngo/devicelink/pkg/qr"
	"github.com/quocanhngo/devicelink/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           DeviceLink API
// @version         1.0
// @description     QR pairing, device registry and realtime WebSocket channel for the companion phone app.

// @contact.name   API Support
// @contact.email  support@devicelink.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting DeviceLink server [env=%s]", cfg.App.Env)

	ctx := context.Background()

	// ==================== Device Store ====================
	var deviceStore service.DeviceStore = repository.NewMemoryDeviceRepository()
	if cfg.DB.Enabled {
		deviceStore = openDeviceRepository(cfg)
	} else {
		log.Println("⚠️  DB_ENABLED=false, devices are kept in memory")
	}

	// ==================== Task Store (Redis) ====================
	var taskStore service.TaskStore = repository.NewMemoryTaskRepository()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("✅ Connected to Redis")
		taskStore = repository.NewRedisTaskRepository(rdb)
	}

	// ==================== Optional Integrations ====================
	var opts service.DispatcherOptions

	if cfg.MinIO.Enabled {
		minioStorage, err := storage.NewMinIO(ctx, storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			PublicURL: cfg.MinIO.PublicURL,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Printf("⚠️  MinIO not available: %v (artifact upload disabled)", err)
		} else {
			log.Println("✅ Connected to MinIO")
			opts.Artifacts = minioStorage
		}
	}

	var push service.PushSender
	if fcm := notification.NewFCMService(ctx, cfg.Firebase.CredentialsFile); fcm != nil {
		push = fcm
		opts.Push = fcm
	}

	var jwtManager *auth.JWTManager
	if cfg.JWT.Secret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	} else {
		log.Println("⚠️  JWT_SECRET is empty, operator routes are unauthenticated")
	}

	// ==================== Initialize Layers ====================
	codec := qr.NewCodec()
	registry := service.NewDeviceRegistry(deviceStore, nil)
	pairing := service.NewPairingService(repository.NewSessionRepository(), registry, codec, nil, cfg.App.ServerURL)
	hub := ws.NewHub(registry, pairing, taskStore, nil)
	dispatcher := service.NewDispatcher(registry, taskStore, nil, hub, opts)

	sweeper, err := scheduler.New(cfg.Sweep.Schedule, pairing, hub, cfg.Sweep.IdleTimeout)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	sweeper.Start()

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "devicelink",
			"connections": len(hub.ConnectedDevices()),
			"time":        time.Now().Format(time.RFC3339),
		})
	})

	handler.Routes{
		Pairing:      handler.NewPairingHandler(pairing, registry, codec, hub, cfg.App.ServerURL),
		Devices:      handler.NewDeviceHandler(registry, hub, push),
		Commands:     handler.NewCommandHandler(dispatcher, hub),
		WS:           handler.NewWSHandler(hub),
		OperatorAuth: middleware.OperatorAuth(jwtManager),
	}.Register(router)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 DeviceLink running on http://0.0.0.0:%s (public URL %s)", cfg.App.Port, cfg.App.ServerURL)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?deviceId=<id>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	sweeper.Stop()
	hub.CloseAll()

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	dispatcher.Wait()
	log.Println("✅ Server exited gracefully")
}

func openDeviceRepository(cfg *config.Config) *repository.DeviceRepository {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(&model.Device{}); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	return repository.NewDeviceRepository(db)
}
