package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ksrnb/reunion-ticketing/internal/config"
	"github.com/ksrnb/reunion-ticketing/internal/database"
	"github.com/ksrnb/reunion-ticketing/internal/handler"
	"github.com/ksrnb/reunion-ticketing/internal/notifier"
	"github.com/ksrnb/reunion-ticketing/internal/payment"
	"github.com/ksrnb/reunion-ticketing/internal/queue"
	"github.com/ksrnb/reunion-ticketing/internal/repository"
	"github.com/ksrnb/reunion-ticketing/internal/router"
	"github.com/ksrnb/reunion-ticketing/internal/service"
	"github.com/ksrnb/reunion-ticketing/internal/storage"
	"github.com/ksrnb/reunion-ticketing/internal/ticket"
)

func main() {
	// .env is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db, "migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable

	userRepo := repository.NewUserRepo(db)
	eventRepo := repository.NewEventRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	receipts, err := storage.NewDiskStore(cfg.UploadDir, cfg.BackendURL+"/uploads/receipts")
	if err != nil {
		log.Fatalf("receipt store: %v", err)
	}

	signer := ticket.NewSigner(cfg.QRSecret)
	mailer := notifier.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	var gateway *payment.GatewayStrategy
	var strategy payment.Strategy
	switch cfg.PaymentMode {
	case config.PaymentModeGateway:
		gateway = &payment.GatewayStrategy{
			MerchantID: cfg.MerchantID,
			Key:        cfg.MerchantKey,
			PaymentURL: cfg.PaymentURL,
			ReturnURL:  cfg.FrontendURL + "/payment/return",
		}
		strategy = *gateway
	case config.PaymentModeManual:
		strategy = payment.ManualStrategy{Details: payment.BankDetails{
			BankName:      cfg.BankName,
			AccountName:   cfg.BankAccountName,
			AccountNumber: cfg.BankAccountNumber,
			Branch:        cfg.BankBranch,
		}}
	default:
		strategy = payment.DevStrategy{FrontendURL: cfg.FrontendURL}
	}

	svc := service.NewBookingService(bookingRepo, eventRepo, userRepo, receipts,
		signer, mailer, queue.PublishTicketIssued)

	// Drains ticket.issued into the issuance audit log; reconnects
	// on its own and stops when the worker context is cancelled.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go func() {
		if err := queue.StartTicketConsumer(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{cfg.FrontendURL}}))
	e.Static("/uploads/receipts", cfg.UploadDir)

	cacheCfg := config.LoadCacheConfig()
	router.Register(e, db, rdb, cfg.JWTSecret, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, userRepo),
		Event:   handler.NewEventHandler(eventRepo, cacheCfg, rdb),
		Booking: handler.NewBookingHandler(svc),
		Payment: handler.NewPaymentHandler(svc, strategy, gateway, cfg.PaymentMode),
		Admin:   handler.NewAdminHandler(svc, userRepo),
	})

	addr := ":" + cfg.Port
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (env=%s, payment=%s)", addr, cfg.Env, cfg.PaymentMode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-serverErr:
		log.Printf("server error: %v", err)
	}

	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
