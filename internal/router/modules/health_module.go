package modules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/interface/problem"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

const readyTimeout = 2 * time.Second

type HealthModule struct {
	Checks   map[string]Check
	Problems *problem.Writer
}

func NewHealthModule(checks map[string]Check, problems *problem.Writer) *HealthModule {
	return &HealthModule{Checks: checks, Problems: problems}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	rg.GET("/ready", m.ready)
}

func (m *HealthModule) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(m.Checks))
	for name := range m.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := gin.H{}
	for _, name := range names {
		if err := m.Checks[name](ctx); err != nil {
			m.Problems.Write(c, errors.Join(apperror.ErrServiceUnavailable, fmt.Errorf("%s: %w", name, err)))
			return
		}
		status[name] = "up"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": status})
}
