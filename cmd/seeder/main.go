package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/quocanhngo/devicelink/internal/config"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/repository"
	"github.com/quocanhngo/devicelink/internal/service"
	"github.com/quocanhngo/devicelink/migrations"
	"github.com/quocanhngo/devicelink/pkg/auth"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the schema before seeding")
	operator := flag.String("operator", "admin", "operator name for the printed token")
	flag.Parse()

	cfg := config.Load()

	if *reset {
		if err := migrations.Rollback(cfg.DB.URL()); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	registry := service.NewDeviceRegistry(repository.NewDeviceRepository(db), nil)

	log.Println("🌱 Seeding demo devices...")
	platforms := []model.Platform{model.PlatformAndroid, model.PlatformIOS, model.PlatformWeb}
	for i := 1; i <= 6; i++ {
		req := model.RegisterDeviceRequest{
			DeviceID:   fmt.Sprintf("demo-device-%d", i),
			DeviceName: fmt.Sprintf("Demo Device %d", i),
			Platform:   platforms[i%len(platforms)],
			Version:    "1.0.0",
		}
		if _, err := registry.Register(req); err != nil {
			log.Printf("❌ Failed to register %s: %v", req.DeviceID, err)
			continue
		}
		// every third device looks recently active
		if i%3 == 0 {
			registry.Touch(req.DeviceID)
		}
		log.Printf("✅ Registered %s (%s)", req.DeviceID, req.Platform)
	}

	if err := registry.Disable("demo-device-6"); err != nil {
		log.Printf("⚠️  Failed to disable demo-device-6: %v", err)
	}

	if cfg.JWT.Secret == "" {
		log.Println("⚠️  JWT_SECRET is empty, operator routes are open; no token printed")
	} else {
		token, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry).GenerateToken(*operator)
		if err != nil {
			log.Fatalf("❌ Failed to sign operator token: %v", err)
		}
		log.Printf("🔑 Operator token for %s:\n%s", *operator, token)
	}

	log.Println("🎉 Seeding completed!")
}
