package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const defaultMaxBody int64 = 1 << 20

// MaxBodyBytes caps request bodies; max <= 0 means 1 MiB.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	if max <= 0 {
		max = defaultMaxBody
	}
	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		}

		ctx.Next()
	}
}
