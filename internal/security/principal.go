package security

import (
	"strconv"
	"time"
)

// Principal is who a request acts as. The set of implementations is closed:
// UserPrincipal, QuizPrincipal, PasswordResetPrincipal and Anonymous. Every
// type switch over it must deny in its default branch.
type Principal interface {
	principal()
}

// UserPrincipal is a logged-in account.
type UserPrincipal struct {
	UserID             uint64
	Username           string
	PasswordModifiedAt time.Time
	// TokenType is TokenAccess or TokenRefresh. Only the refresh endpoint
	// accepts the latter.
	TokenType TokenType
}

// QuizPrincipal holds a shareable link for a single quiz. It carries no
// user identity.
type QuizPrincipal struct {
	QuizID uint64
	Token  string
}

// PasswordResetPrincipal may only complete the reset of UserID's password.
type PasswordResetPrincipal struct {
	UserID uint64
}

// Anonymous is the absence of credentials.
type Anonymous struct{}

func (UserPrincipal) principal()          {}
func (QuizPrincipal) principal()          {}
func (PasswordResetPrincipal) principal() {}
func (Anonymous) principal()              {}

// Kind names the principal variant for logs.
func Kind(p Principal) string {
	switch p.(type) {
	case UserPrincipal:
		return "user"
	case QuizPrincipal:
		return "quiz"
	case PasswordResetPrincipal:
		return "password_reset"
	default:
		return "anonymous"
	}
}

// IsAnonymous reports whether p carries no identity. nil counts.
func IsAnonymous(p Principal) bool {
	switch p.(type) {
	case nil, Anonymous:
		return true
	}
	return false
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

func parseID(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil
}
