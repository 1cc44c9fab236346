package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
	"github.com/iliyamo/flight-seat-reservation/internal/router"
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
	"github.com/iliyamo/flight-seat-reservation/internal/stream"
)

func main() {
	cfg := config.Load()
	holdCfg := config.LoadHoldConfig()

	e := echo.New()
	e.HideBanner = true
	if cfg.Env == "dev" {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		e.Logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		e.Logger.Fatalf("database schema: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, middleware.FlightParamScope("flightID"))

	hub := stream.NewHub(e.Logger)
	go hub.Run(ctx)

	var pub service.Publisher
	if cfg.BrokerURL != "" {
		amqpPub := queue.NewAMQPPublisher(cfg.BrokerURL, e.Logger)
		defer amqpPub.Close()
		pub = amqpPub
		go func() {
			if err := queue.StartOrderConsumer(ctx, cfg.BrokerURL, hub.Publish, e.Logger); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("order consumer stopped: %v", err)
			}
		}()
	} else {
		e.Logger.Warn("no RABBITMQ_URL set, order updates stay on this instance")
		pub = queue.NewLocalPublisher(hub.Publish)
	}

	orders := service.NewOrders(service.OrdersConfig{
		Store:     repository.NewStore(db),
		Publisher: pub,
		Cache:     cache,
		Layout:    seat.Layout{Rows: cfg.SeatRows, Cols: cfg.SeatCols},
		HoldTTL:   holdCfg.TTL,
		Logger:    e.Logger,
	})
	go orders.RunSweeper(ctx, holdCfg.SweepInterval)

	router.RegisterRoutes(e)
	router.RegisterOrders(e, router.OrderRoutes{
		Orders:    handler.NewOrderHandler(orders, cfg.JWTSecret, time.Duration(cfg.OrderTokenTTLMin)*time.Minute),
		Streams:   handler.NewStreamHandler(orders, hub),
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, nil),
		Cache:     cache,
	})

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
}
