package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	userapp "github.com/oksasatya/user-service/internal/application"
	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/domain/entity"
	"github.com/oksasatya/user-service/internal/interface/problem"
	"github.com/oksasatya/user-service/pkg/i18n"
	"github.com/oksasatya/user-service/pkg/validation"
)

// UserService is the part of the application service the handlers call.
type UserService interface {
	Get(ctx context.Context, id int64) (*userapp.UserDTO, error)
	GetByEmail(ctx context.Context, email string) (*userapp.UserDTO, error)
	Create(ctx context.Context, in userapp.CreateUserInput) (*userapp.UserDTO, error)
	Update(ctx context.Context, id int64, in userapp.UpdateUserInput) (*userapp.UserDTO, error)
	Delete(ctx context.Context, id int64) error
	UpdateEmailConfirmedStatus(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, newPassword string) error
}

// UserSearcher runs full-text queries against the user index.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]userapp.UserDTO, error)
}

type UserHandler struct {
	Svc      UserService
	Search   UserSearcher
	Problems *problem.Writer
}

func NewUserHandler(svc UserService, search UserSearcher, problems *problem.Writer) *UserHandler {
	return &UserHandler{Svc: svc, Search: search, Problems: problems}
}

type createUserRequest struct {
	FirstName string `json:"firstName" binding:"required,min=2,max=50,personname"`
	LastName  string `json:"lastName" binding:"required,min=2,max=50,personname"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,pwd"`
	Role      string `json:"role" binding:"omitempty,oneof=ROLE_USER ROLE_ADMIN"`
}

type updateUserRequest struct {
	FirstName string `json:"firstName" binding:"required,min=2,max=50,personname"`
	LastName  string `json:"lastName" binding:"required,min=2,max=50,personname"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password  string `json:"password" binding:"omitempty,bcrypthash"` // already hashed
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

type emailQuery struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

type searchQuery struct {
	Q    string `form:"q" json:"q" binding:"required,max=100"`
	Size int    `form:"size" json:"size" binding:"omitempty,min=1,max=50"`
}

// bind decodes the request with bindFn and reports failures as a
// validation problem.
func (h *UserHandler) bind(c *gin.Context, bindFn func(any) error, dst any) bool {
	if err := bindFn(dst); err != nil {
		h.Problems.Write(c, &apperror.ValidationError{Fields: validation.ToDetails(err, problem.Localizer(c))})
		return false
	}
	return true
}

func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		l := problem.Localizer(c)
		h.Problems.Write(c, &apperror.ValidationError{Fields: map[string]string{"id": l.T(i18n.ErrInvalidID, raw)}})
		return 0, false
	}
	return id, true
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, c.ShouldBindJSON, &req) {
		return
	}
	dto, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
	})
	if err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.Header("Location", "/api/v1/users/"+strconv.FormatInt(dto.ID, 10))
	c.JSON(http.StatusCreated, dto)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	dto, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetByEmail serves both /users?email= and /users/email?email=.
func (h *UserHandler) GetByEmail(c *gin.Context) {
	var q emailQuery
	if !h.bind(c, c.ShouldBindQuery, &q) {
		return
	}
	dto, err := h.Svc.GetByEmail(c.Request.Context(), q.Email)
	if err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !h.bind(c, c.ShouldBindJSON, &req) {
		return
	}
	_, err := h.Svc.Update(c.Request.Context(), id, userapp.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.String(http.StatusOK, problem.Localizer(c).T(i18n.InfoUserUpdated))
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.String(http.StatusOK, problem.Localizer(c).T(i18n.InfoUserDeleted))
}

func (h *UserHandler) ConfirmEmail(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, c.ShouldBindJSON, &req) {
		return
	}
	if err := h.Svc.UpdateEmailConfirmedStatus(c.Request.Context(), req.Email); err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.String(http.StatusOK, problem.Localizer(c).T(i18n.InfoEmailConfirmed))
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !h.bind(c, c.ShouldBindJSON, &req) {
		return
	}
	if err := h.Svc.UpdatePassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		h.Problems.Write(c, err)
		return
	}
	c.String(http.StatusOK, problem.Localizer(c).T(i18n.InfoPasswordUpdated))
}

// SearchUsers queries the search index; without one it returns an empty list.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	var q searchQuery
	if !h.bind(c, c.ShouldBindQuery, &q) {
		return
	}
	if h.Search == nil {
		c.JSON(http.StatusOK, []userapp.UserDTO{})
		return
	}
	users, err := h.Search.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.Problems.Write(c, err)
		return
	}
	if users == nil {
		users = []userapp.UserDTO{}
	}
	c.JSON(http.StatusOK, users)
}
