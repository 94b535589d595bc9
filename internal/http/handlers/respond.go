package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/feedbackhub/internal/actorctx"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/auth"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

// storeCtx bounds a store call made by a handler, keeping the request's span.
func storeCtx(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), storeTimeout)
}

func identityFrom(ctx *gin.Context) (auth.Identity, bool) {
	id, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		middlewares.Fail(ctx, apperr.New(apperr.KindUnauthenticated, "Missing identity context"))
	}
	return id, ok
}

func RespondOK(ctx *gin.Context, payload interface{}) {
	ctx.JSON(http.StatusOK, payload)
}

func RespondMessage(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusOK, gin.H{"message": message})
}
