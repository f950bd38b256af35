package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/oksasatya/user-service/pkg/i18n"
)

// Locale picks the response language from Accept-Language.
func Locale(fallback language.Tag) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := i18n.FromAcceptLanguage(c.GetHeader("Accept-Language"), fallback)
		c.Set(i18n.ContextKey, l)
		c.Header("Content-Language", l.Tag().String())
		c.Next()
	}
}
