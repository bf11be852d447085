package security

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenInvalid covers a bad signature, a malformed envelope and
	// unknown token kinds. An invalid token is treated as no token at all.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned only for tokens whose signature verified.
	ErrTokenExpired = errors.New("token expired")

	// ErrRefreshInvalidated marks a signed, unexpired refresh (or reset)
	// token issued before the user's last password change. It also matches
	// ErrTokenInvalid.
	ErrRefreshInvalidated = fmt.Errorf("%w: issued before last password change", ErrTokenInvalid)

	// ErrPrincipalNotFound means the token subject no longer names a user.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrResourceNotFound is the ownership check target missing. Deciders
	// turn it into Deny.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAuthorizationDenied is the error form of a Deny decision.
	ErrAuthorizationDenied = errors.New("authorization denied")
)
