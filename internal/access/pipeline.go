// Package access holds the gates every protected request passes through
// before a handler runs.
//
// A Gate returns the (possibly enriched) context or a typed *apperr.Error.
// Chain runs gates left to right and stops at the first failure.
package access

import (
	"context"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/schema"
)

// Request is the transport-neutral view of an inbound request that gates read.
type Request struct {
	// Role is the role named by the route (/student/... or /teacher/...).
	Role      account.Role
	Token     string
	TeacherID string
	Payload   schema.Raw
}

type Gate func(ctx context.Context, req *Request) (context.Context, error)

func Chain(gates ...Gate) Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		for _, g := range gates {
			next, err := g(ctx, req)
			if err != nil {
				return ctx, apperr.From(err)
			}
			ctx = next
		}
		return ctx, nil
	}
}

type payloadKey struct{}

// Validate runs the schema validator for shape and stashes the typed payload.
func Validate(shape schema.Shape) Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		v, err := schema.Validate(shape, req.Payload)
		if err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, payloadKey{}, v), nil
	}
}

// PayloadFrom returns the payload stored by Validate when it has type T.
func PayloadFrom[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(payloadKey{}).(T)
	return v, ok
}

func missingPayload() error {
	return apperr.New(apperr.KindInternal, "validated payload missing from context")
}
