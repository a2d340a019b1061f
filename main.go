package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/employees/handlers"
	"github.com/gogotex/employees/internal/config"
	"github.com/gogotex/employees/internal/database"
	"github.com/gogotex/employees/internal/employee/handler"
	"github.com/gogotex/employees/internal/employee/service"
	"github.com/gogotex/employees/internal/export"
	"github.com/gogotex/employees/internal/storage"
	"github.com/gogotex/employees/pkg/logger"
	"github.com/gogotex/employees/pkg/metrics"
	"github.com/gogotex/employees/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL may come from .env, so re-init once config is loaded
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
	logger.Infof("config loaded: mongo=%s/%s redis=%v minio=%v prefix=%q",
		cfg.MongoDB.Database, cfg.MongoDB.Collection, cfg.Redis.Enabled(), cfg.MinIO.Enabled(), cfg.Server.APIPrefix)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()
	var checks []handlers.Check

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
		defer func() { _ = rdb.Close() }()
		checks = append(checks, handlers.Check{
			Name:     "redis",
			Optional: !cfg.RateLimit.UseRedis,
			Ping:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
			logger.Infof("rate limiter: redis (rps=%.2f window=%s)", cfg.RateLimit.RPS, win)
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter: memory (rps=%.2f burst=%d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	client := connectMongo(ctx, cfg)
	var svc service.Service
	if client != nil {
		defer func() { _ = client.Disconnect(context.Background()) }()
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		ictx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
		names, err := database.EnsureEmployeeIndexes(ictx, col)
		cancel()
		if err != nil {
			logger.Warnf("failed to ensure employee indexes: %v", err)
		} else {
			logger.Infof("employee indexes ready: %v", names)
		}
		svc = service.NewMongoService(col)
		checks = append(checks, handlers.Check{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		})
	} else {
		logger.Warnf("MongoDB unavailable: using memory-backed employee store")
		svc = service.NewMemoryService()
	}

	var exp handler.Exporter
	if cfg.MinIO.Enabled() {
		st, err := storage.NewMinIOStorage(ctx, &cfg.MinIO)
		if err != nil {
			logger.Warnf("export disabled: %v", err)
		} else {
			exp = export.New(svc, st, cfg.Export.URLTTL)
			checks = append(checks, handlers.Check{Name: "minio", Optional: true, Ping: st.Ping})
			logger.Infof("export enabled: bucket=%s", cfg.MinIO.Bucket)
		}
	}

	handlers.RegisterHealth(r, startTime, checks...)
	handlers.RegisterSwagger(r, cfg.Server.APIPrefix)
	handler.NewHandler(svc, exp).Register(r.Group(cfg.Server.APIPrefix))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting employee service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// connectMongo retries with backoff to tolerate startup races. It returns nil
// when every attempt fails.
func connectMongo(ctx context.Context, cfg *config.Config) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB")
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil
}
