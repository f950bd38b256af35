package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/interface/problem"
)

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and route
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByService limits authenticated callers by token subject and everyone else by IP.
func KeyByService() KeyFunc {
	return func(c *gin.Context) string {
		if svc := c.GetString(ServiceKey); svc != "" {
			return "rl:svc:" + svc
		}
		return "rl:ip:" + ipFromCtx(c)
	}
}

// atomic INCR, starting the window on the first hit
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimit is a fixed-window limiter shared through Redis:
// - atomic redis (lua)
// - standard headers (limit/remaining/reset)
// - fail-open when Redis is unavailable
func RateLimit(rdb redis.Scripter, max int, window time.Duration, keyFn KeyFunc, problems *problem.Writer, logger *logrus.Logger) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		key := keyFn(c)
		res, err := incrExpireScript.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			if logger != nil {
				logger.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
			}
			c.Next()
			return
		}
		count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
		if ttl < 0 {
			ttl = window
		}

		setRateHeaders(c, max, max-count, ttl)
		if count > max {
			problems.Write(c, &apperror.RateLimitedError{RetryAfter: ttl})
			return
		}
		c.Next()
	}
}

func setRateHeaders(c *gin.Context, limit, remaining int, reset time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int((reset+time.Second-1)/time.Second)))
}
