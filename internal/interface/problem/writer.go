// Package problem turns errors into localized problem+json responses.
package problem

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/pkg/i18n"
	"github.com/oksasatya/user-service/pkg/response"
)

// Localizer returns the request's localizer, or English when the locale
// middleware did not run.
func Localizer(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(i18n.ContextKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return i18n.New(language.English)
}

type Writer struct {
	Logger *logrus.Logger
}

func NewWriter(logger *logrus.Logger) *Writer {
	return &Writer{Logger: logger}
}

// Write maps err to a status and localized problem document and aborts the request.
func (w *Writer) Write(c *gin.Context, err error) {
	response.WriteProblem(c, w.build(c, err))
}

func (w *Writer) build(c *gin.Context, err error) response.Problem {
	l := Localizer(c)

	var (
		nf *apperror.NotFoundError
		ae *apperror.AlreadyExistsError
		ve *apperror.ValidationError
		im *apperror.ImmutableFieldError
		rl *apperror.RateLimitedError
	)
	switch {
	case errors.As(err, &nf):
		key := i18n.ErrUserNotFoundID
		if nf.Field == "email" {
			key = i18n.ErrUserNotFoundEmail
		}
		return response.NewProblem(c, http.StatusNotFound, l.T(i18n.TitleNotFound), l.T(key, nf.Value))

	case errors.As(err, &ae):
		return response.NewProblem(c, http.StatusConflict, l.T(i18n.TitleAlreadyExists), l.T(i18n.ErrAlreadyExists, ae.Email))

	case errors.As(err, &ve):
		p := response.NewProblem(c, http.StatusBadRequest, l.T(i18n.TitleValidation), ve.Detail())
		p.Errors = ve.Fields
		return p

	case errors.As(err, &im):
		detail := l.T(i18n.ValidationImmutable, im.Field)
		p := response.NewProblem(c, http.StatusBadRequest, l.T(i18n.TitleValidation), detail)
		p.Errors = map[string]string{im.Field: detail}
		return p

	case errors.As(err, &rl):
		secs := strconv.FormatInt(rl.RetryAfterSeconds(), 10)
		c.Header("Retry-After", secs)
		return response.NewProblem(c, http.StatusTooManyRequests, l.T(i18n.TitleTooManyRequests), l.T(i18n.ErrTooManyRequests, secs))

	case errors.Is(err, apperror.ErrNotFound):
		return response.NewProblem(c, http.StatusNotFound, l.T(i18n.TitleNotFound), err.Error())

	case errors.Is(err, apperror.ErrAlreadyExists):
		return response.NewProblem(c, http.StatusConflict, l.T(i18n.TitleAlreadyExists), err.Error())

	case errors.Is(err, apperror.ErrValidation):
		return response.NewProblem(c, http.StatusBadRequest, l.T(i18n.TitleValidation), err.Error())

	case errors.Is(err, apperror.ErrUnauthorized):
		return response.NewProblem(c, http.StatusUnauthorized, l.T(i18n.TitleUnauthorized), l.T(i18n.ErrUnauthorized))

	case errors.Is(err, apperror.ErrRateLimited):
		return response.NewProblem(c, http.StatusTooManyRequests, l.T(i18n.TitleTooManyRequests), "")

	case errors.Is(err, apperror.ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		w.log(c, err, logrus.WarnLevel)
		return response.NewProblem(c, http.StatusServiceUnavailable, l.T(i18n.TitleUnavailable), l.T(i18n.ErrUnavailable))
	}

	w.log(c, err, logrus.ErrorLevel)
	return response.NewProblem(c, http.StatusInternalServerError, l.T(i18n.TitleInternal), l.T(i18n.ErrInternal))
}

func (w *Writer) log(c *gin.Context, err error, level logrus.Level) {
	if w.Logger == nil {
		return
	}
	w.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
	}).Log(level, "request failed")
}
