package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/wood_market/internal/config"
	"github.com/Skotchmaster/wood_market/internal/es"
	"github.com/Skotchmaster/wood_market/internal/handlers"
	"github.com/Skotchmaster/wood_market/internal/logging"
	loggingmw "github.com/Skotchmaster/wood_market/internal/middleware/logging"
	"github.com/Skotchmaster/wood_market/internal/mykafka"
	"github.com/Skotchmaster/wood_market/internal/service/auth"
	"github.com/Skotchmaster/wood_market/internal/service/cart"
	"github.com/Skotchmaster/wood_market/internal/service/order"
	"github.com/Skotchmaster/wood_market/internal/service/token"
	"github.com/Skotchmaster/wood_market/internal/store"
	httpserver "github.com/Skotchmaster/wood_market/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	st := store.NewGorm(db)
	if err := st.SeedCategories(context.Background()); err != nil {
		log.Fatalf("category seed error: %v", err)
	}

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	tokens := &token.Service{Store: st, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}
	authSvc := &auth.Service{Store: st}
	ledger := &cart.Ledger{Store: st}
	converter := &order.Converter{Store: st}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{Auth: authSvc, Tokens: tokens, Store: st, Producer: prod},
		ProductHandler: &handlers.ProductHandler{Store: st, Producer: prod},
		CartHandler:    &handlers.CartHandler{Ledger: ledger, Store: st, Producer: prod},
		OrderHandler:   &handlers.OrderHandler{Converter: converter, Producer: prod},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "product"},
		Tokens:         tokens,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db handle error", "error", err)
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
