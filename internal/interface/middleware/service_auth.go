package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/interface/problem"
	"github.com/oksasatya/user-service/pkg/helpers"
)

// ServiceKey holds the calling service's token subject.
const ServiceKey = "service"

// ServiceAuth requires a bearer token issued by jwt. A nil manager
// disables the check.
func ServiceAuth(jwt *helpers.JWTManager, problems *problem.Writer) gin.HandlerFunc {
	if jwt == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			problems.Write(c, apperror.ErrUnauthorized)
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(token))
		if err != nil {
			problems.Write(c, apperror.ErrUnauthorized)
			return
		}
		c.Set(ServiceKey, claims.Subject)
		c.Next()
	}
}
