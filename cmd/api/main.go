package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"caresign/agreement"
	"caresign/auth"
	"caresign/config"
	"caresign/db"
	"caresign/notification"
	"caresign/party"
	"caresign/review"
	"caresign/schedule"
	"caresign/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		logger.Fatal("bootstrap database pool", zap.Error(err))
	}
	defer pool.Close()

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap object store", zap.Error(err))
	}

	router := newRouter(pool, store, cfg, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	addr := ":" + cfg.Server.Port
	logger.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newObjectStore prefers the configured GCS bucket and falls back to the
// in-memory store for local development.
func newObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	if cfg.Storage.Bucket == "" {
		logger.Warn("no storage bucket configured, signature files are kept in memory")
		return storage.NewMemoryStore(), nil
	}
	return storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsPath)
}

func newRouter(pool *pgxpool.Pool, store storage.ObjectStore, cfg *config.Config, logger *zap.Logger) http.Handler {
	authService := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret)
	authHandler := auth.NewHandler(authService)

	notifier := notification.NewService(notification.NewRepository(pool), logger)

	agreementRepo := agreement.NewRepository(pool)
	parties := party.NewRepository(pool)
	conversions := agreement.NewConversionService(agreementRepo, parties, logger)
	signings := agreement.NewSigningService(agreementRepo, store, notifier, logger)
	agreementHandler := agreement.NewHandler(conversions, signings)

	scheduleHandler := schedule.NewHandler(schedule.NewService(pool, schedule.NewRepository(pool)))
	reviewHandler := review.NewHandler(review.NewService(review.NewRepository(pool)))

	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(auth.Middleware(authService))

	protected.HandleFunc("/agreements/{id}/signers/{signerID}/sign", agreementHandler.Sign).Methods(http.MethodPost)

	admin := protected.NewRoute().Subrouter()
	admin.Use(auth.RequireRole(auth.RoleAdmin))

	admin.HandleFunc("/scheduled-agreements", scheduleHandler.Create).Methods(http.MethodPost)
	admin.HandleFunc("/scheduled-agreements", scheduleHandler.List).Methods(http.MethodGet)
	admin.HandleFunc("/scheduled-agreements/{id}/cancel", scheduleHandler.Cancel).Methods(http.MethodPost)
	admin.HandleFunc("/scheduled-agreements/{id}/convert", agreementHandler.Convert).Methods(http.MethodPost)
	admin.HandleFunc("/agreements/pending-review", reviewHandler.ListPending).Methods(http.MethodGet)
	admin.HandleFunc("/agreements/{id}/approve", reviewHandler.Approve).Methods(http.MethodPost)

	return r
}
