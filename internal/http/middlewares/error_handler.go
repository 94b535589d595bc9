package middlewares

import (
	"log/slog"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/gin-gonic/gin"
)

type errorEnvelope struct {
	Message   string              `json:"message"`
	Status    string              `json:"status"`
	Stack     string              `json:"stack,omitempty"`
	Fields    []apperr.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

// ErrorHandler is the single error boundary. Handlers and gates record an error
// with ctx.Error and abort; after the chain returns the last recorded error is
// logged and written as the standard envelope.
func ErrorHandler(log *slog.Logger, prom *observability.Prom, prod bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		last := ctx.Errors.Last()
		if last == nil {
			return
		}

		appErr := apperr.From(last.Err)
		status := appErr.Status()

		attrs := []any{
			"kind", appErr.Kind.String(),
			"status", status,
			"message", appErr.Message,
			"request_id", ctx.GetString(CtxRequestID),
		}
		if !prod {
			attrs = append(attrs, "stack", appErr.Stack())
		}

		if appErr.Kind == apperr.KindInternal {
			log.ErrorContext(ctx.Request.Context(), "request failed", append(attrs, "err", last.Err.Error())...)
		} else {
			log.WarnContext(ctx.Request.Context(), "request rejected", attrs...)
		}
		prom.ObserveAppError(appErr.Kind.String())

		if ctx.Writer.Written() {
			return
		}

		body := errorEnvelope{
			Message:   appErr.Message,
			Status:    "error",
			Fields:    appErr.Fields,
			RequestID: ctx.GetString(CtxRequestID),
		}
		if !prod {
			body.Stack = appErr.Stack()
		}

		ctx.AbortWithStatusJSON(status, body)
	}
}

// Fail records err for the boundary and stops the chain.
func Fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
