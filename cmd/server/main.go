package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/coursehub/internal/config"
	"github.com/Skotchmaster/coursehub/internal/db"
	"github.com/Skotchmaster/coursehub/internal/events"
	"github.com/Skotchmaster/coursehub/internal/httpserver"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/mailer"
	"github.com/Skotchmaster/coursehub/internal/middleware/csrf"
	"github.com/Skotchmaster/coursehub/internal/middleware/metrics"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/ratelimit"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/reset"
	"github.com/Skotchmaster/coursehub/internal/search"
	"github.com/Skotchmaster/coursehub/internal/service"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/storage"
	"github.com/Skotchmaster/coursehub/internal/tokens"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	gdb, err := db.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB(logger, gdb)
	if err := db.Migrate(startCtx, gdb); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(startCtx).Err(); err != nil {
		// login throttling and password reset degrade, the rest keeps working
		logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := events.NewProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := prod.Close(); err != nil {
				logger.Error("kafka_close_failed", "error", err)
			}
		}()
		publisher = prod
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var (
		indexer  search.Indexer  = search.Disabled{}
		searcher search.Searcher = search.Disabled{}
		esClient *search.Client
	)
	if cfg.ESURL != "" {
		esClient, err = search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESIndex)
		if err != nil {
			return err
		}
		indexer, searcher = esClient, esClient
	} else {
		logger.Warn("search_disabled", "reason", "ES_URL is empty")
	}

	var store storage.ObjectStore
	if cfg.StorageEndpoint != "" {
		store, err = storage.NewMinio(startCtx, storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			PublicURL: cfg.StoragePublicURL,
			UseSSL:    cfg.StorageUseSSL,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("storage_in_memory", "reason", "STORAGE_ENDPOINT is empty")
		store = storage.NewMemory(cfg.PublicBaseURL + "/files")
	}

	codec, err := tokens.NewCodec(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return err
	}

	r := repo.New(gdb)
	m := metrics.New(cfg.ServiceName)
	resolver := session.NewResolver(codec, r)
	guard := &httpserver.Guard{Repo: r, Perms: permission.NewEvaluator()}
	csrfGuard := csrf.New(csrf.Config{Secure: cfg.CookieSecure, EnforceSameOrigin: cfg.CSRFSameOrigin})

	authSvc := &service.AuthService{
		Repo:    r,
		Codec:   codec,
		Limiter: ratelimit.New(rdb, ratelimit.Config{MaxAttempts: cfg.LoginMaxAttempts, Cooldown: cfg.LoginCooldown}),
		Resets:  reset.NewStore(rdb, cfg.ResetTTL),
		Mailer:  mailer.New(publisher, cfg.PublicBaseURL),
		Events:  publisher,
		Metrics: m,
	}
	courseSvc := &service.CourseService{
		Repo:           r,
		Index:          indexer,
		Events:         publisher,
		Store:          store,
		UploadMaxBytes: cfg.UploadMaxBytes,
	}

	e := echo.New()
	e.HideBanner = true
	httpserver.Register(e, &httpserver.Deps{
		Logger:         logger,
		Metrics:        m,
		CSRF:           csrfGuard,
		Session:        resolver,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Ready: func(ctx context.Context) error {
			if err := db.Ping(ctx, gdb); err != nil {
				return err
			}
			if esClient != nil {
				return esClient.Ping(ctx)
			}
			return nil
		},
		Auth:      &httpserver.AuthHTTP{Svc: authSvc, Sessions: resolver, CSRF: csrfGuard, CookieSecure: cfg.CookieSecure},
		Courses:   &httpserver.CourseHTTP{Svc: courseSvc, Repo: r, Guard: guard, Search: searcher},
		Materials: &httpserver.MaterialHTTP{Svc: courseSvc, Repo: r, Guard: guard},
		Schedule:  &httpserver.ScheduleHTTP{Repo: r, Guard: guard},
		Forum:     &httpserver.ForumHTTP{Repo: r, Guard: guard},
		Checklist: &httpserver.ChecklistHTTP{Repo: r, Guard: guard},
		Admin:     &httpserver.AdminHTTP{Repo: r, Guard: guard},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	go func() {
		<-quit
		logger.Error("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func closeDB(logger *slog.Logger, gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("db_handle_failed", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
}
