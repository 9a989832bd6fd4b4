package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/config"
	"github.com/tutorbook/tutorbook/internal/database"
)

// Application wires configuration, database, search cache, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	db     *pgxpool.Pool
	redis  *redis.Client
	router *mux.Router
	deps   *Dependencies
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// DB + migrations
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		db.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Pass,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	r := mux.NewRouter()

	deps := BuildDependencies(db, redisClient, cfg)
	SetupMiddleware(r, deps)
	RegisterRoutes(r, deps)

	srv := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, db: db, redis: redisClient, router: r, deps: deps, srv: srv}, nil
}

// Run starts the HTTP server and blocks. Connections are released when it stops.
func (a *Application) Run() error {
	defer a.db.Close()
	defer func() {
		if err := a.redis.Close(); err != nil {
			log.Errorf("failed to close redis client: %v", err)
		}
	}()

	go func() {
		if err := a.deps.Refresher.RefreshAll(context.Background()); err != nil {
			log.Errorf("initial search index refresh failed: %v", err)
		}
	}()
	if err := a.deps.Refresher.Start(a.cfg.Scheduling.Refresh); err != nil {
		return err
	}
	defer a.deps.Refresher.Stop()

	log.Infof("Starting server on %s", a.srv.Addr)
	return a.srv.ListenAndServe()
}
