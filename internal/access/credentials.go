package access

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/schema"
	"github.com/google/uuid"
)

// Login failures share one message so callers cannot probe which emails exist.
const invalidLoginMessage = "Invalid email or password"

type AccountStore interface {
	FindByEmail(ctx context.Context, role account.Role, email string) (account.Account, error)
	Create(ctx context.Context, a account.Account) (account.Account, error)
}

type TokenIssuer interface {
	Issue(accountID string, role account.Role) (string, error)
	TTL() time.Duration
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
	CompareDummy(plain string)
}

// Session is the result of a successful login or registration.
type Session struct {
	Account   account.Account
	Token     string
	ExpiresAt time.Time
}

type sessionKey struct{}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

func issueSession(tokens TokenIssuer, a account.Account) (Session, error) {
	token, err := tokens.Issue(a.ID, a.Role)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	return Session{Account: a, Token: token, ExpiresAt: time.Now().UTC().Add(tokens.TTL())}, nil
}

type CredentialVerifier struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   TokenIssuer
}

func NewCredentialVerifier(accounts AccountStore, hasher PasswordHasher, tokens TokenIssuer) *CredentialVerifier {
	return &CredentialVerifier{accounts: accounts, hasher: hasher, tokens: tokens}
}

// Login resolves the account by (email, role) and checks the password.
// Unknown email is KindNotFound and a wrong password is KindInvalidCredentials;
// both carry the same message and status.
func (v *CredentialVerifier) Login(ctx context.Context, role account.Role, in schema.Login) (Session, error) {
	found, err := v.accounts.FindByEmail(ctx, role, in.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			v.hasher.CompareDummy(in.Password)
			return Session{}, apperr.New(apperr.KindNotFound, invalidLoginMessage)
		}
		return Session{}, apperr.Internal(err)
	}

	if err := v.hasher.Compare(found.PasswordHash, in.Password); err != nil {
		return Session{}, apperr.Wrap(apperr.KindInvalidCredentials, err, invalidLoginMessage)
	}

	return issueSession(v.tokens, found)
}

func (v *CredentialVerifier) Gate() Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		in, ok := PayloadFrom[schema.Login](ctx)
		if !ok {
			return ctx, missingPayload()
		}
		s, err := v.Login(ctx, req.Role, in)
		if err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, sessionKey{}, s), nil
	}
}

type UniquenessGuard struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   TokenIssuer
}

func NewUniquenessGuard(accounts AccountStore, hasher PasswordHasher, tokens TokenIssuer) *UniquenessGuard {
	return &UniquenessGuard{accounts: accounts, hasher: hasher, tokens: tokens}
}

// Register creates the account when no account exists for (email, role).
func (g *UniquenessGuard) Register(ctx context.Context, role account.Role, in schema.Register) (Session, error) {
	_, err := g.accounts.FindByEmail(ctx, role, in.Email)
	switch {
	case err == nil:
		return Session{}, conflict(role)
	case !errors.Is(err, account.ErrNotFound):
		return Session{}, apperr.Internal(err)
	}

	hash, err := g.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}

	created, err := g.accounts.Create(ctx, account.Account{
		ID:           uuid.NewString(),
		Role:         role,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		// lost a race with a concurrent registration for the same email
		if errors.Is(err, account.ErrEmailTaken) {
			return Session{}, conflict(role)
		}
		return Session{}, apperr.Internal(err)
	}

	return issueSession(g.tokens, created)
}

func (g *UniquenessGuard) Gate() Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		in, ok := PayloadFrom[schema.Register](ctx)
		if !ok {
			return ctx, missingPayload()
		}
		s, err := g.Register(ctx, req.Role, in)
		if err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, sessionKey{}, s), nil
	}
}

func conflict(role account.Role) error {
	switch role {
	case account.RoleStudent:
		return apperr.New(apperr.KindConflict, "Student already exists")
	case account.RoleTeacher:
		return apperr.New(apperr.KindConflict, "Teacher already exists")
	}
	return apperr.New(apperr.KindConflict, "Account already exists")
}
