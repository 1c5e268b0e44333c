package main // Entry point package

import (
	"context"
	"log" // Logging library
	"time"

	"github.com/joho/godotenv"    // loads .env into the process environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/database"
	"github.com/iliyamo/user-account-service/internal/handler"
	"github.com/iliyamo/user-account-service/internal/notify"
	"github.com/iliyamo/user-account-service/internal/queue"
	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/router"
	"github.com/iliyamo/user-account-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	rdb := config.NewRedisClient() // nil disables the OTP mirror and rate limiting
	if rdb == nil {
		log.Printf("redis unavailable, continuing without cache and rate limiting")
	}

	users := repository.NewUserRepo(db)
	otps := repository.NewOTPRepo(db, rdb)
	managers := repository.NewManagerRepo(db)
	accounts := service.NewAccountService(users, otps, managers, notify.NewMailer(cfg), notify.NewPusher(cfg), cfg)

	// Seed admin accounts before accepting traffic. Idempotent.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	service.SeedAdmins(ctx, users, cfg)
	cancel()

	// Drain realtime notification events into logs/notifications.log.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notify-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts), handler.NewUserHandler(cfg, users), cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
