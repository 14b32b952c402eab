package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	pkgdb "github.com/fooddash/platform/pkg/db"
	pkgkafka "github.com/fooddash/platform/pkg/kafka"
	"github.com/fooddash/platform/pkg/logging"
	loggingmw "github.com/fooddash/platform/pkg/middleware/logging"
	"github.com/fooddash/platform/pkg/observability"

	ordercfg "github.com/fooddash/platform/services/order/internal/config"
	"github.com/fooddash/platform/services/order/internal/httpserver"
	"github.com/fooddash/platform/services/order/internal/models"
	"github.com/fooddash/platform/services/order/internal/productclient"
	"github.com/fooddash/platform/services/order/internal/repo"
	"github.com/fooddash/platform/services/order/internal/service"
)

func main() {
	if err := godotenv.Load("services/order/.env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := ordercfg.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	var producer *pkgkafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
	}

	orderRepo := &repo.GormRepo{DB: db}
	svc := &service.OrderService{
		Repo:            orderRepo,
		Products:        productclient.NewClient(cfg.ProductServiceURL),
		Metrics:         observability.NewPrometheusMetrics("order_service"),
		MaxItemQuantity: cfg.MaxItemQuantity,
		MinOrderAmount:  cfg.MinOrderAmount,
	}
	if producer != nil {
		svc.Producer = producer
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: &httpserver.OrderHTTP{Svc: svc},
	})
	e.GET("/metrics", echo.WrapHandler(observability.Handler()))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("order listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if producer != nil {
		_ = producer.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("order stopped")
}
