package access

import (
	"context"

	"github.com/geocoder89/feedbackhub/internal/actorctx"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/auth"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Authenticate verifies the session token and attaches the identity to the context.
// It never touches the store.
func Authenticate(v TokenVerifier) Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		if req.Token == "" {
			return ctx, apperr.New(apperr.KindUnauthenticated, "You are not logged in")
		}

		id, err := v.Verify(req.Token)
		if err != nil {
			return ctx, apperr.Wrap(apperr.KindUnauthenticated, err, "Invalid or expired session")
		}

		return actorctx.WithIdentity(ctx, id), nil
	}
}

// RequireRole must run after Authenticate.
func RequireRole(required account.Role) Gate {
	return func(ctx context.Context, _ *Request) (context.Context, error) {
		id, ok := actorctx.IdentityFrom(ctx)
		if !ok {
			return ctx, apperr.New(apperr.KindUnauthenticated, "Missing identity context")
		}

		if id.Role != required {
			return ctx, apperr.New(apperr.KindForbidden, deniedMessage(required))
		}
		return ctx, nil
	}
}

func deniedMessage(required account.Role) string {
	switch required {
	case account.RoleStudent:
		return "Access denied. Students only."
	case account.RoleTeacher:
		return "Access denied. Teachers only."
	}
	return "Access denied."
}
