package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/whosaidit/internal/model"
	"github.com/iliyamo/whosaidit/internal/repository"
)

// UserLookup finds the account named by a token subject.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

// Resolver turns a raw bearer token into exactly one Principal.
type Resolver struct {
	codec *Codec
	users UserLookup
}

func NewResolver(codec *Codec, users UserLookup) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// TokenType verifies raw and reports its kind without touching storage.
func (r *Resolver) TokenType(raw string) (TokenType, error) {
	claims, err := r.codec.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Type, nil
}

// Resolve verifies raw and builds the matching principal. An empty raw
// resolves to Anonymous. Errors are one of the package sentinels or a
// wrapped lookup failure; callers at the request boundary treat any of them
// as anonymous.
//
// Quiz tokens are not checked against the quiz table here. The quiz decider
// loads the quiz anyway to compare the stored token.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Anonymous{}, nil
	}
	claims, err := r.codec.Verify(raw)
	if err != nil {
		return nil, err
	}

	switch claims.Type {
	case TokenAccess:
		u, err := r.user(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		return userPrincipal(u, TokenAccess), nil

	case TokenRefresh:
		u, err := r.user(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if staleAfterPasswordChange(u, claims) {
			return nil, ErrRefreshInvalidated
		}
		return userPrincipal(u, TokenRefresh), nil

	case TokenPasswordReset:
		u, err := r.user(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		// Completing a reset moves PasswordModifiedAt forward, which makes
		// the token single use.
		if staleAfterPasswordChange(u, claims) {
			return nil, ErrRefreshInvalidated
		}
		return PasswordResetPrincipal{UserID: u.ID}, nil

	case TokenQuiz:
		id, ok := parseID(claims.Subject)
		if !ok {
			return nil, fmt.Errorf("%w: quiz subject %q", ErrTokenInvalid, claims.Subject)
		}
		return QuizPrincipal{QuizID: id, Token: raw}, nil
	}
	return nil, fmt.Errorf("%w: unhandled tokenType %q", ErrTokenInvalid, claims.Type)
}

func (r *Resolver) user(ctx context.Context, username string) (model.User, error) {
	u, err := r.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrPrincipalNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve principal: %w", err)
	}
	return u, nil
}

func userPrincipal(u model.User, typ TokenType) UserPrincipal {
	return UserPrincipal{
		UserID:             u.ID,
		Username:           u.Username,
		PasswordModifiedAt: u.PasswordModifiedAt,
		TokenType:          typ,
	}
}

// staleAfterPasswordChange reports a password change strictly after the
// token was issued. Both sides carry microseconds.
func staleAfterPasswordChange(u model.User, c Claims) bool {
	return u.PasswordModifiedAt.After(c.IssuedAt)
}
