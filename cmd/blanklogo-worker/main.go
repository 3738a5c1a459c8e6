// Command blanklogo-worker runs the BlankLogo job processing worker and,
// optionally, the management HTTP API.
//
// Configuration is read from the environment (a .env file is loaded if
// present). The storage backend is selected from the connection strings
// provided: BLANKLOGO_DATABASE_URL picks Postgres, BLANKLOGO_MONGO_URL
// picks MongoDB, BLANKLOGO_REDIS_URL picks Redis, and with none set an
// in-memory store is used (useful for local development only; jobs do
// not survive a restart). Setting BLANKLOGO_API_ADDR serves the
// management API on that address.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/api"
	"github.com/IsaiahDupree/BlankLogo-sub004/engine"
	"github.com/IsaiahDupree/BlankLogo-sub004/storage"
	"github.com/IsaiahDupree/BlankLogo-sub004/store"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/memory"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/mongo"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/postgres"
	"github.com/IsaiahDupree/BlankLogo-sub004/store/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blanklogo-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := newLogger()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	opts := []engine.Option{
		engine.WithUploader(newUploader()),
	}
	if inpaintURL := os.Getenv("BLANKLOGO_INPAINT_URL"); inpaintURL != "" {
		opts = append(opts, engine.WithInpaintService(inpaintURL))
	}

	eng, err := engine.Build(st, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info("worker started",
		slog.Int("concurrency", cfg.Concurrency),
		slog.Any("queues", cfg.Queues),
	)

	var apiServer *http.Server
	if addr := os.Getenv("BLANKLOGO_API_ADDR"); addr != "" {
		apiServer = &http.Server{
			Addr:              addr,
			Handler:           api.New(eng, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("management api listening", slog.String("addr", addr))
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api server failed", slog.String("error", err.Error()))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown error", slog.String("error", err.Error()))
		}
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("BLANKLOGO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func loadConfig() blanklogo.Config {
	cfg := blanklogo.DefaultConfig()
	cfg.Concurrency = getenvInt("BLANKLOGO_CONCURRENCY", cfg.Concurrency)
	cfg.MaxAttempts = getenvInt("BLANKLOGO_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.PollInterval = getenvDuration("BLANKLOGO_POLL_INTERVAL", cfg.PollInterval)
	cfg.LeaseDuration = getenvDuration("BLANKLOGO_LEASE_DURATION", cfg.LeaseDuration)
	cfg.HeartbeatInterval = getenvDuration("BLANKLOGO_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	cfg.ProcessingTimeout = getenvDuration("BLANKLOGO_PROCESSING_TIMEOUT", cfg.ProcessingTimeout)
	cfg.ShutdownTimeout = getenvDuration("BLANKLOGO_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	return cfg
}

// openStore selects a backend from the environment.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	if dsn := os.Getenv("BLANKLOGO_DATABASE_URL"); dsn != "" {
		logger.Info("using postgres store")
		return postgres.New(ctx, dsn)
	}
	if uri := os.Getenv("BLANKLOGO_MONGO_URL"); uri != "" {
		logger.Info("using mongo store")
		client, err := mongod.Connect(mongoopts.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		dbName := getenv("BLANKLOGO_MONGO_DATABASE", "blanklogo")
		return mongo.New(client.Database(dbName), mongo.WithLogger(logger)), nil
	}
	if addr := os.Getenv("BLANKLOGO_REDIS_URL"); addr != "" {
		logger.Info("using redis store")
		redisOpts, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := goredis.NewClient(redisOpts)
		return redis.New(client, redis.WithLogger(logger)), nil
	}
	logger.Warn("no backend configured, using in-memory store")
	return memory.New(), nil
}

func newUploader() storage.Uploader {
	return storage.NewSupabase(
		os.Getenv("SUPABASE_URL"),
		os.Getenv("SUPABASE_SERVICE_KEY"),
		getenv("SUPABASE_BUCKET", "processed-videos"),
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
