package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"khatam-tracker/config"
	"khatam-tracker/handlers"
	"khatam-tracker/models"
	"khatam-tracker/services"
	"khatam-tracker/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // covers are the only upload
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
	// which the slug retry loop depends on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Khatam{},
		&models.KhatamItem{},
		&models.Pledge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.InitR2(cfg.CloudflareAccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket, cfg.CDNBaseURL); err != nil {
		log.Println("⚠️  R2 not available, cover uploads disabled:", err)
	}

	captcha := services.NewCaptchaClient(cfg.TurnstileSecretKey, cfg.TurnstileVerifyURL)
	email := services.NewEmailClient(cfg.ResendAPIKey, cfg.EmailFrom)

	khatamService := services.NewKhatamService(db, captcha)
	pledgeService := services.NewPledgeService(db, captcha, email, cfg.AppBaseURL)

	khatamService.StartDeadlineSweep()

	handlers.SetupKhatamRoutes(app, khatamService)
	handlers.SetupPledgeRoutes(app, pledgeService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ Deadline sweep running (every 1m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
