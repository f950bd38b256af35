package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-service/internal/container"
	"github.com/oksasatya/user-service/internal/domain/apperror"
	handlers "github.com/oksasatya/user-service/internal/interface/http"
	"github.com/oksasatya/user-service/internal/interface/middleware"
	"github.com/oksasatya/user-service/internal/interface/problem"
	"github.com/oksasatya/user-service/internal/router/modules"
)

func buildUserHandler(problems *problem.Writer) *handlers.UserHandler {
	// keep the interface nil when search is not configured
	var searcher handlers.UserSearcher
	if idx := container.GetUserIndex(); idx != nil {
		searcher = idx
	}
	return handlers.NewUserHandler(container.GetUserService(), searcher, problems)
}

// limiter returns the shared Redis limiter when Redis is configured and a
// per-process one otherwise.
func limiter(max int, window time.Duration, keyFn middleware.KeyFunc, problems *problem.Writer) gin.HandlerFunc {
	if rdb := container.GetRedis(); rdb != nil {
		return middleware.RateLimit(rdb, max, window, keyFn, problems, container.GetLogger())
	}
	return middleware.LocalRateLimit(max, window, keyFn, problems)
}

func readinessChecks() map[string]modules.Check {
	checks := map[string]modules.Check{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	problems := problem.NewWriter(container.GetLogger())

	r.Add(modules.NewUserModule(
		buildUserHandler(problems),
		middleware.ServiceAuth(container.GetJWT(), problems),
		limiter(cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByService(), problems),
	))
	r.Add(modules.NewHealthModule(readinessChecks(), problems))
	r.NoRoute(func(c *gin.Context) { problems.Write(c, apperror.ErrNotFound) })
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limiter(120, time.Minute, middleware.KeyByIP(), problems)))
	}
}
