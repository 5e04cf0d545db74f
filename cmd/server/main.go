package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/config"
	"github.com/iliyamo/lab-seat-reservation/internal/database"
	"github.com/iliyamo/lab-seat-reservation/internal/handler"
	"github.com/iliyamo/lab-seat-reservation/internal/middleware"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/router"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "lab-seat-reservation").Logger()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repoStore := repository.NewStore(db)
	store := service.NewStore(repoStore)
	publisher := notify.NewPublisher(cfg.RabbitURL, log)

	labs := service.NewLabService(store, repoStore.Labs, log)
	sessions := service.NewSessionService(store, log)
	bookings := service.NewBookingService(store, publisher, log)
	equipment := service.NewEquipmentService(store, repoStore.Equipment, log)
	attendance := service.NewAttendanceService(store, repoStore.Attendance, log)
	reminders := service.NewReminderService(repoStore.Sessions, publisher, log)

	go reminders.Run(ctx, cfg.ReminderInterval)

	consumer := notify.NewConsumer(cfg.RabbitURL, notify.LogSender{Log: log}, log)
	go consumer.Run(ctx)

	// Rate limiting degrades to a pass-through when Redis is unreachable.
	var rateLimit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Labs:       handler.NewLabHandler(labs, repoStore.Labs),
		Sessions:   handler.NewSessionHandler(sessions, repoStore.Sessions, repoStore.Labs, repoStore.Bookings),
		Bookings:   handler.NewBookingHandler(bookings, repoStore.Bookings),
		Equipment:  handler.NewEquipmentHandler(equipment, repoStore.Equipment),
		Attendance: handler.NewAttendanceHandler(attendance, repoStore.Attendance),
	}, cfg.JWTSecret, rateLimit)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
