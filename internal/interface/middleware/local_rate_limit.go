package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/interface/problem"
)

const maxTrackedClients = 10000

// LocalRateLimit is a per-process token bucket used when Redis is not
// configured. Each key refills max tokens per window.
func LocalRateLimit(max int, window time.Duration, keyFn KeyFunc, problems *problem.Writer) gin.HandlerFunc {
	if max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	every := window / time.Duration(max)
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	var mu sync.Mutex

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := clients.Get(key); ok {
			return l
		}
		l := rate.NewLimiter(rate.Every(every), max)
		clients.Add(key, l)
		return l
	}

	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}
		lim := limiterFor(keyFn(c))
		allowed := lim.Allow()
		setRateHeaders(c, max, int(lim.Tokens()), every)
		if !allowed {
			problems.Write(c, &apperror.RateLimitedError{RetryAfter: every})
			return
		}
		c.Next()
	}
}
