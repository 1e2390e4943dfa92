package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/config"
	"github.com/rutasur/tour-reservation/internal/database"
	"github.com/rutasur/tour-reservation/internal/handler"
	"github.com/rutasur/tour-reservation/internal/middleware"
	"github.com/rutasur/tour-reservation/internal/notify"
	"github.com/rutasur/tour-reservation/internal/queue"
	"github.com/rutasur/tour-reservation/internal/repository"
	"github.com/rutasur/tour-reservation/internal/router"
	"github.com/rutasur/tour-reservation/internal/scheduler"
	queue_publisher "github.com/rutasur/tour-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // best effort, real env wins

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable, middleware degrades

	// Repositories. ReservationRepo owns the seat accounting and writes
	// timeline entries through TimelineRepo inside its transactions.
	tours := repository.NewTourRepo(db)
	departures := repository.NewDepartureRepo(db)
	timeline := repository.NewTimelineRepo(db)
	reservations := repository.NewReservationRepo(db, departures, timeline)
	passengers := repository.NewPassengerRepo(db)
	installments := repository.NewInstallmentRepo(db, timeline)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rules := repository.NewReminderRuleRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := queue_publisher.NewPublisher(cfg.AMQPURL)

	// Background automation: reminders, auto-cancellation and alerts.
	store := repository.NewAutomationStore(reservations, installments, rules, users)
	store.FallbackAdmin = cfg.AdminMail
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	sched := scheduler.New(store, mailer, scheduler.Options{
		Tick:             cfg.SchedulerTick,
		AdminAlertDays:   cfg.AdminAlertDays,
		TripReminderDays: cfg.TripReminderDays,
		Events:           events,
	})
	go sched.Run(ctx)

	go func() {
		if err := queue.StartReservationConsumer(cfg.AMQPURL); err != nil {
			log.Printf("reservation-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(tours, departures)
	bookingH := handler.NewBookingHandler(cfg, tours, departures, reservations, passengers, events)
	adminResH := handler.NewAdminReservationHandler(reservations, passengers, timeline, events)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBooking(e, bookingH, adminResH, cfg.JWTSecret, rateMW)
	router.RegisterAdmin(e, router.AdminHandlers{
		Tours:        handler.NewAdminTourHandler(tours, departures),
		Departures:   handler.NewAdminDepartureHandler(tours, departures),
		Reservations: adminResH,
		Rules:        handler.NewAdminReminderRuleHandler(rules),
		Installments: handler.NewAdminInstallmentHandler(reservations, installments),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()

	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
