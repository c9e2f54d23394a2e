package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/config"
	"github.com/enem-practice/backend/internal/database"
	"github.com/enem-practice/backend/internal/history"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/questions"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db := openStore(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	var source questions.Source = questions.NewHTTPSource(cfg.QuestionAPIURL, cfg.QuestionAPITimeout, log)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, question cache will retry per request", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		cached := questions.NewCachedSource(source, rdb, cfg.QuestionCacheTTL, log)
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go invalidateOnSignal(ctx, cached, hup, log)
		source = cached
		log.Info("question cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.QuestionCacheTTL.String())
	}

	handler := newRouter(routerDeps{
		log:            log,
		verifier:       auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		history:        history.NewService(store, log),
		questions:      source,
		allowedOrigins: cfg.CORSAllowedOrigins,
		ready:          readiness(db),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// invalidateOnSignal empties the question cache each time sig fires until
// ctx ends.
func invalidateOnSignal(ctx context.Context, cache *questions.CachedSource, sig <-chan os.Signal, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := cache.Invalidate(ctx); err != nil {
				log.Error("question cache invalidation failed", "error", err)
				continue
			}
			log.Info("question cache invalidated")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (history.Store, *sql.DB) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory history store; data is lost on restart")
		return history.NewMemoryStore(), nil
	}

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			log.Fatal("failed to run migrations", "error", err)
		}
		log.Info("migrations applied")
	}
	return history.NewPostgresStore(db), db
}

func readiness(db *sql.DB) func(context.Context) error {
	if db == nil {
		return nil
	}
	return db.PingContext
}
