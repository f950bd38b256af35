// Package response writes RFC 7807 problem documents.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem document. Errors carries per-field
// messages for validation failures.
type Problem struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func NewProblem(ctx *gin.Context, status int, title, detail string) Problem {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	p := Problem{
		Type:      "about:blank",
		Title:     title,
		Status:    status,
		Detail:    detail,
		RequestID: ctx.GetString("request_id"),
		Timestamp: time.Now().UTC(),
	}
	if ctx.Request != nil && ctx.Request.URL != nil {
		p.Instance = ctx.Request.URL.Path
	}
	return p
}

// WriteProblem aborts the chain and writes p with the problem+json content type.
func WriteProblem(ctx *gin.Context, p Problem) {
	ctx.Header("Content-Type", ProblemContentType)
	ctx.AbortWithStatusJSON(p.Status, p)
}
