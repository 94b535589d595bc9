package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/feedbackhub/internal/access"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// AuthHandler finishes register/login/logout once the gates have run. The
// session itself is produced by UniquenessGuard or CredentialVerifier.
type AuthHandler struct {
	secure bool
	prom   *observability.Prom
}

func NewAuthHandler(secureCookies bool, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{secure: secureCookies, prom: prom}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	s, ok := access.SessionFrom(ctx.Request.Context())
	if !ok {
		middlewares.Fail(ctx, apperr.New(apperr.KindInternal, "session missing after registration"))
		return
	}

	h.setSessionCookie(ctx, s.Token, s.ExpiresAt)
	ctx.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	s, ok := access.SessionFrom(ctx.Request.Context())
	if !ok {
		middlewares.Fail(ctx, apperr.New(apperr.KindInternal, "session missing after login"))
		return
	}

	h.setSessionCookie(ctx, s.Token, s.ExpiresAt)
	ctx.Redirect(http.StatusFound, "/"+s.Account.Role.String()+"/dashboard")
}

// Logout only clears the cookie. Tokens are stateless, so a copied token stays
// valid until it expires.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.Redirect(http.StatusFound, "/")
}

// Track counts auth attempts by outcome. It wraps the gate chain, so rejected
// attempts are counted with the kind the boundary will report.
func (h *AuthHandler) Track(role account.Role, action string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		result := "ok"
		if last := ctx.Errors.Last(); last != nil {
			result = apperr.KindOf(last.Err).String()
		}
		h.prom.ObserveAuth(role.String(), action, result)
	}
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookie,
		token,
		maxAge,
		"/",
		"",
		h.secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookie,
		"",
		-1,
		"/",
		"",
		h.secure,
		true,
	)
}
