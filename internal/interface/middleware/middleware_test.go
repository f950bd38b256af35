package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/oksasatya/user-service/internal/interface/problem"
	"github.com/oksasatya/user-service/pkg/helpers"
	"github.com/oksasatya/user-service/pkg/i18n"
	"github.com/oksasatya/user-service/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func do(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newEngine(RealIP(), RateLimit(rdb, 2, time.Minute, KeyByIP(), problem.NewWriter(nil), nil))

	for i := 0; i < 2; i++ {
		if rec := do(r, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(r, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if ct := rec.Header().Get("Content-Type"); ct != response.ProblemContentType {
		t.Fatalf("content type = %q", ct)
	}

	// another client has its own window
	if rec := do(r, map[string]string{"X-Forwarded-For": "192.0.2.7"}); rec.Code != http.StatusOK {
		t.Fatalf("other ip: status %d", rec.Code)
	}

	mr.FastForward(time.Minute)
	if rec := do(r, nil); rec.Code != http.StatusOK {
		t.Fatalf("after window: status %d", rec.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	r := newEngine(RateLimit(rdb, 1, time.Minute, KeyByIP(), problem.NewWriter(nil), nil))
	for i := 0; i < 3; i++ {
		if rec := do(r, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestLocalRateLimit(t *testing.T) {
	r := newEngine(LocalRateLimit(2, time.Hour, KeyByIP(), problem.NewWriter(nil)))
	for i := 0; i < 2; i++ {
		if rec := do(r, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(r, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestServiceAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", "user-service", time.Minute)
	token, _, err := jwt.GenerateToken("billing")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	other, _, _ := helpers.NewJWTManager("other", "user-service", time.Minute).GenerateToken("billing")

	var seen string
	r := gin.New()
	r.Use(ServiceAuth(jwt, problem.NewWriter(nil)))
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(ServiceKey)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"wrong key", "Bearer " + other, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, map[string]string{"Authorization": tt.header})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	if seen != "billing" {
		t.Fatalf("subject = %q", seen)
	}
}

func TestServiceAuthDisabled(t *testing.T) {
	r := newEngine(ServiceAuth(nil, problem.NewWriter(nil)))
	if rec := do(r, nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	rec := do(r, nil)
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("generated id not a uuid: %q", rec.Header().Get(RequestIDHeader))
	}

	id := uuid.NewString()
	if got := do(r, map[string]string{RequestIDHeader: id}).Header().Get(RequestIDHeader); got != id {
		t.Fatalf("incoming id not kept: %q", got)
	}
	if got := do(r, map[string]string{RequestIDHeader: "<script>"}).Header().Get(RequestIDHeader); got == "<script>" {
		t.Fatal("malformed id echoed")
	}
}

func TestLocale(t *testing.T) {
	var tag language.Tag
	r := gin.New()
	r.Use(Locale(language.English))
	r.GET("/ping", func(c *gin.Context) {
		tag = problem.Localizer(c).Tag()
		c.Status(http.StatusOK)
	})

	do(r, map[string]string{"Accept-Language": "ru-RU,ru;q=0.9"})
	if tag != language.Russian {
		t.Fatalf("tag = %v", tag)
	}
	do(r, map[string]string{"Accept-Language": "ja"})
	if tag != language.English {
		t.Fatalf("fallback tag = %v", tag)
	}
	if i18n.New(tag).T(i18n.TitleNotFound) != "Not found" {
		t.Fatal("unexpected English title")
	}
}

func TestRealIPPrefersCloudflare(t *testing.T) {
	var ip string
	r := gin.New()
	r.Use(RealIP())
	r.GET("/ping", func(c *gin.Context) { ip = ipFromCtx(c) })

	do(r, map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"})
	if ip != "203.0.113.9" {
		t.Fatalf("ip = %q", ip)
	}
	do(r, map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"})
	if ip != "198.51.100.1" {
		t.Fatalf("ip = %q", ip)
	}
}
