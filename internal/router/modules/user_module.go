package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-service/internal/interface/http"
)

// UserModule wires the user handlers under /v1/users.
// Every route passes through the module's middleware (auth, rate limit).
type UserModule struct {
	Handler    *handlers.UserHandler
	Middleware []gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, mw ...gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Middleware: mw}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/v1/users")
	users.Use(m.Middleware...)
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.GetByEmail)
		users.GET("/email", m.Handler.GetByEmail)
		users.GET("/search", m.Handler.SearchUsers)
		users.GET("/:id", m.Handler.Get)
		users.PATCH("/email-status", m.Handler.ConfirmEmail)
		users.PATCH("/password", m.Handler.ChangePassword)
		users.PATCH("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
