package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quyennx102/storefront-bff/internal/backend"
	"github.com/quyennx102/storefront-bff/internal/httpapi"
	"github.com/quyennx102/storefront-bff/internal/messaging"
	"github.com/quyennx102/storefront-bff/internal/notify"
	"github.com/quyennx102/storefront-bff/internal/session"
	"github.com/quyennx102/storefront-bff/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	providers, err := telemetry.Setup(ctx, "storefront-bff", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		logger.Error("BACKEND_URL is required")
		os.Exit(1)
	}

	momoURL := os.Getenv("MOMO_URL")
	if momoURL == "" {
		logger.Error("MOMO_URL is required")
		os.Exit(1)
	}

	zalopayURL := os.Getenv("ZALOPAY_URL")
	if zalopayURL == "" {
		logger.Error("ZALOPAY_URL is required")
		os.Exit(1)
	}

	store, err := newSessionStore(logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	base := backend.NewClient(backendURL, httpClient, logger)
	payments := backend.NewPaymentClient(momoURL, zalopayURL, httpClient, logger)
	registry := httpapi.NewRegistry(base, payments, store, logger)
	hub := notify.NewHub(logger)

	pollInterval := 30 * time.Second
	if raw := os.Getenv("NOTIFY_POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid NOTIFY_POLL_INTERVAL", "error", err)
			os.Exit(1)
		}
		pollInterval = parsed
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	pushEnabled := false
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		pushEnabled = true
		consumer := messaging.NewConsumer(strings.Split(brokers, ","), notify.Topic, "storefront-bff")
		defer consumer.Close()

		go func() {
			if err := hub.RunConsumer(consumerCtx, consumer); err != nil && consumerCtx.Err() == nil {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Info("KAFKA_BROKERS not set, notification streams fall back to polling")
	}

	handler := httpapi.NewHandler(registry, hub, store, pushEnabled, pollInterval, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleGetCart))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleAddItem))
	mux.HandleFunc("PUT /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleUpdateItem))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleRemoveItem))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(handler.HandleClearCart))
	mux.HandleFunc("POST /discount", telemetry.WithHTTPRoute(handler.HandleApplyDiscount))
	mux.HandleFunc("DELETE /discount", telemetry.WithHTTPRoute(handler.HandleRemoveDiscount))
	mux.HandleFunc("POST /discount/handoff", telemetry.WithHTTPRoute(handler.HandleDiscountHandoff))
	mux.HandleFunc("GET /checkout", telemetry.WithHTTPRoute(handler.HandleCheckoutPage))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleSubmitCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleListOrders))
	mux.HandleFunc("GET /notifications", telemetry.WithHTTPRoute(handler.HandleListNotifications))
	mux.HandleFunc("GET /notifications/stream", handler.HandleNotificationStream)
	mux.HandleFunc("PUT /session/email", telemetry.WithHTTPRoute(handler.HandleRememberEmail))
	mux.HandleFunc("GET /session/email", telemetry.WithHTTPRoute(handler.HandleRememberedEmail))
	mux.Handle("GET /metrics", providers.Metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "storefront-bff",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout: 10 * time.Second,
		// Intentionally no WriteTimeout: the notification stream holds its
		// response open for the life of the connection.
	}

	go func() {
		logger.Info("starting storefront bff", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// newSessionStore picks the session backend from SESSION_STORE: redis
// (default), postgres or memory.
func newSessionStore(logger *slog.Logger) (session.Store, error) {
	switch kind := os.Getenv("SESSION_STORE"); kind {
	case "", "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		logger.Info("using redis session store", "addr", addr)
		return session.NewRedisStore(client), nil
	case "postgres":
		dsn := os.Getenv("POSTGRES_URL")
		if dsn == "" {
			logger.Error("POSTGRES_URL is required when SESSION_STORE=postgres")
			os.Exit(1)
		}
		db, err := telemetry.OpenDB("postgres", dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres session store")
		return session.NewPostgresStore(db), nil
	case "memory":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	default:
		logger.Error("unknown SESSION_STORE", "value", kind)
		os.Exit(1)
		return nil, nil
	}
}
