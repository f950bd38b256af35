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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-service/config"
	"github.com/oksasatya/user-service/internal/application"
	"github.com/oksasatya/user-service/internal/container"
	"github.com/oksasatya/user-service/internal/domain/repository"
	"github.com/oksasatya/user-service/internal/infrastructure/cache"
	"github.com/oksasatya/user-service/internal/infrastructure/events"
	"github.com/oksasatya/user-service/internal/infrastructure/memory"
	"github.com/oksasatya/user-service/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/user-service/internal/infrastructure/search"
	"github.com/oksasatya/user-service/internal/infrastructure/telemetry"
	"github.com/oksasatya/user-service/internal/interface/middleware"
	"github.com/oksasatya/user-service/internal/router"
	"github.com/oksasatya/user-service/pkg/helpers"
	"github.com/oksasatya/user-service/pkg/i18n"
	"github.com/oksasatya/user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	_, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, cfg.AppName)
	if err != nil {
		logger.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	repo := buildRepository(ctx, cfg, logger)
	userCache := buildCache(cfg)
	publisher := buildPublisher(ctx, cfg, logger)
	defer container.GetRabbitQueue().Close()

	if cfg.JWTSecret != "" {
		container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL))
	} else {
		logger.Warn("JWT_SECRET is empty; service authentication disabled")
	}

	svc := application.NewService(repo, userCache, helpers.NewBcryptHasher(cfg.BcryptCost), publisher, logger)
	container.SetUserService(svc)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(), middleware.RealIP(), middleware.Tracing(cfg.AppName))
	r.Use(middleware.Locale(i18n.ParseLocale(cfg.Locale)))
	// CORS
	corsCfg := cors.Config{
		AllowOrigins:  cfg.CORSOrigins(),
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Location", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.IsDevelopment() {
		r.Use(middleware.AccessLog(logger))
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	if pool := container.GetPGPool(); pool != nil {
		pool.Close()
	}
	if rdb := container.GetRedis(); rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("server exited properly")
}

func buildRepository(ctx context.Context, cfg *config.Config, logger *logrus.Logger) repository.UserRepository {
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn("DB_DRIVER=memory; users are lost on restart")
		return memory.NewUserRepository()
	}

	if err := pginfra.Migrate(cfg.PostgresDSN()); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
		AppName:     cfg.AppName,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	container.SetPGPool(pool)
	return pginfra.NewUserRepository(pool)
}

func buildCache(cfg *config.Config) application.Cache {
	if cfg.CacheDriver == config.DriverMemory {
		return cache.NewLRU[application.UserDTO](cfg.CacheSize, cfg.CacheTTL)
	}
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	container.SetRedis(rdb)
	return cache.NewRedis[application.UserDTO](rdb, cfg.AppName+":", cfg.CacheTTL)
}

// buildPublisher wires the optional event consumers. A consumer whose
// backend is unreachable at startup is skipped.
func buildPublisher(ctx context.Context, cfg *config.Config, logger *logrus.Logger) application.EventPublisher {
	var pubs []application.EventPublisher

	if cfg.RabbitMQURL != "" && cfg.RabbitMQEmailQueue != "" {
		q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; email notifications disabled")
		} else {
			container.SetRabbitQueue(q)
			pubs = append(pubs, notify.NewEmailNotifier(q, cfg.AppName, cfg.SupportURL))
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client; search disabled")
		} else {
			idx := search.NewUserIndex(es, cfg.ESUsersIndex)
			if err := idx.EnsureIndex(ctx); err != nil {
				logger.WithError(err).Warn("elasticsearch index; search disabled")
			} else {
				container.SetES(es)
				container.SetUserIndex(idx)
				pubs = append(pubs, idx)
			}
		}
	}

	return events.New(pubs...)
}
