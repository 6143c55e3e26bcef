package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mimercado/marketplace/internal/aiclient"
	"github.com/mimercado/marketplace/internal/assistant"
	"github.com/mimercado/marketplace/internal/auth"
	"github.com/mimercado/marketplace/internal/cartops"
	"github.com/mimercado/marketplace/internal/catalog"
	"github.com/mimercado/marketplace/internal/config"
	"github.com/mimercado/marketplace/internal/events"
	"github.com/mimercado/marketplace/internal/favorites"
	"github.com/mimercado/marketplace/internal/httpserver"
	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/middleware/loggingmw"
	"github.com/mimercado/marketplace/internal/payments"
	"github.com/mimercado/marketplace/internal/recommend"
	"github.com/mimercado/marketplace/internal/search"
	"github.com/mimercado/marketplace/internal/sweeper"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	if producer == nil {
		logger.Warn("KAFKA_BROKERS not set, events disabled")
	}

	ai := aiclient.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.ChatModel, cfg.EmbeddingModel)
	payClient := payments.NewClient(cfg.PaymentURL, cfg.PaymentToken)

	cartRepo := &cartops.GormRepo{DB: db}
	cartService := &cartops.CartService{
		Repo:           cartRepo,
		Payments:       payClient,
		ReservationTTL: cfg.ReservationTTL,
	}

	recommendService := &recommend.Service{
		Repo:     &recommend.GormRepo{DB: db},
		AI:       ai,
		Backfill: cfg.RecommendBackfill,
	}

	catalogService := &catalog.Service{
		Repo:  &catalog.GormRepo{DB: db},
		Cache: recommendService,
	}

	authService := &auth.Service{DB: db, JWTSecret: cfg.JWTSecret}
	assistantService := assistant.New(ai)

	searchHandler := &httpserver.SearchHTTP{Index: cfg.ESIndex, Catalog: catalogService}
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search falls back to db", "error", err)
		} else {
			searchHandler.ES = es
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: authService},
		Catalog: &httpserver.CatalogHTTP{
			Svc:       catalogService,
			Producer:  producer,
			JWTSecret: cfg.JWTSecret,
		},
		Cart: &httpserver.CartHTTP{
			Svc:       cartService,
			Users:     authService,
			Producer:  producer,
			JWTSecret: cfg.JWTSecret,
			CheckoutURLs: payments.CallbackURLs{
				Success: config.EnvDefault("CHECKOUT_SUCCESS_URL", "/checkout/success"),
				Failure: config.EnvDefault("CHECKOUT_FAILURE_URL", "/checkout/failure"),
				Pending: config.EnvDefault("CHECKOUT_PENDING_URL", "/checkout/pending"),
			},
		},
		Favorites: &httpserver.FavoritesHTTP{
			Repo:      &favorites.GormRepo{DB: db},
			JWTSecret: cfg.JWTSecret,
		},
		Recommend: &httpserver.RecommendHTTP{Svc: recommendService},
		Assistant: &httpserver.AssistantHTTP{Svc: assistantService, JWTSecret: cfg.JWTSecret},
		Search:    searchHandler,
	})

	sw := sweeper.New(cartRepo, logger)
	if err := sw.Start(cfg.SweepSpec); err != nil {
		log.Fatalf("sweeper start: %v", err)
	}

	go func() {
		addr := ":" + strconv.Itoa(cfg.ServerPort)
		logger.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	sw.Stop()
	if err := producer.Close(); err != nil {
		logger.Error("kafka close", "error", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
