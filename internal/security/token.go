// Package security holds the authentication and authorization core: the
// token codec, principal resolution and the per-resource authorization
// deciders. Nothing in here talks HTTP; the middleware package adapts it to
// Echo.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/whosaidit/internal/model"
)

// TokenType is the tokenType claim.
type TokenType string

const (
	TokenAccess        TokenType = "USER_ACCESS"
	TokenRefresh       TokenType = "USER_REFRESH"
	TokenPasswordReset TokenType = "PASSWORD_RESET"
	TokenQuiz          TokenType = "QUIZ_SHAREABLE"
)

func (t TokenType) known() bool {
	switch t {
	case TokenAccess, TokenRefresh, TokenPasswordReset, TokenQuiz:
		return true
	}
	return false
}

// expires reports whether tokens of this kind must carry an exp claim.
func (t TokenType) expires() bool { return t != TokenQuiz }

// Claims is what a verified token asserts. ExpiresAt is zero for quiz tokens.
type Claims struct {
	Subject   string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire form: registered claims plus tokenType. iat is
// whole seconds, so iatUs carries the issue time in microseconds for the
// password-change comparison.
type tokenClaims struct {
	TokenType      string `json:"tokenType"`
	IssuedAtMicros int64  `json:"iatUs,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 tokens. It is the only holder of the
// signing secret and is safe for concurrent use.
type Codec struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewCodec builds a codec around the process-wide secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("security: empty signing secret")
	}
	c := &Codec{secret: []byte(secret), now: time.Now}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Strict base64 rejects edits to the unused bits of the last
		// character of each segment.
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// Issue signs a token for subject. ttl is required for every kind except
// TokenQuiz, which never expires and ignores it. iat and exp have second
// precision, so ttl is applied to the truncated issue time.
func (c *Codec) Issue(subject string, typ TokenType, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("security: empty subject")
	}
	if !typ.known() {
		return "", fmt.Errorf("security: unknown token type %q", typ)
	}
	if typ.expires() && ttl <= 0 {
		return "", fmt.Errorf("security: %s token needs a positive ttl", typ)
	}

	now := c.now().UTC().Truncate(time.Microsecond)
	claims := tokenClaims{
		TokenType:      string(typ),
		IssuedAtMicros: now.UnixMicro(),
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two tokens minted in the same second distinct, so a
			// regenerated quiz link always differs from the one it replaces.
			ID:       uuid.NewString(),
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if typ.expires() {
		claims.ExpiresAt = jwt.NewNumericDate(now.Truncate(time.Second).Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature, then expiry, then the claim shape.
// The parser rejects a signature mismatch before any claim is validated, so
// ErrTokenExpired is only ever reported for genuine tokens.
func (c *Codec) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	_, err := c.parser.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	typ := TokenType(tc.TokenType)
	switch {
	case !typ.known():
		return Claims{}, fmt.Errorf("%w: unknown tokenType %q", ErrTokenInvalid, tc.TokenType)
	case tc.Subject == "":
		return Claims{}, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	case tc.IssuedAt == nil:
		return Claims{}, fmt.Errorf("%w: missing iat", ErrTokenInvalid)
	case typ.expires() && tc.ExpiresAt == nil:
		return Claims{}, fmt.Errorf("%w: %s token without exp", ErrTokenInvalid, typ)
	}

	out := Claims{Subject: tc.Subject, Type: typ, IssuedAt: tc.IssuedAt.UTC()}
	if tc.IssuedAtMicros != 0 {
		precise := time.UnixMicro(tc.IssuedAtMicros).UTC()
		if precise.Unix() != tc.IssuedAt.Unix() {
			return Claims{}, fmt.Errorf("%w: iatUs disagrees with iat", ErrTokenInvalid)
		}
		out.IssuedAt = precise
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.UTC()
	}
	return out, nil
}

// TTLs are the lifetimes of the expiring token kinds.
type TTLs struct {
	Access        time.Duration
	Refresh       time.Duration
	PasswordReset time.Duration
}

// TokenPair is returned by login, registration and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Issuer mints the tokens other packages hand out.
type Issuer struct {
	codec *Codec
	ttl   TTLs
}

func NewIssuer(codec *Codec, ttl TTLs) *Issuer { return &Issuer{codec: codec, ttl: ttl} }

// IssueUserTokens returns a fresh access and refresh token for u.
func (i *Issuer) IssueUserTokens(u model.User) (TokenPair, error) {
	access, err := i.codec.Issue(u.Username, TokenAccess, i.ttl.Access)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.codec.Issue(u.Username, TokenRefresh, i.ttl.Refresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueQuizToken returns a non-expiring token scoped to q.
func (i *Issuer) IssueQuizToken(q model.Quiz) (string, error) {
	return i.codec.Issue(formatID(q.ID), TokenQuiz, 0)
}

// IssuePasswordResetToken returns a short-lived token that only the
// password-reset completion endpoint accepts.
func (i *Issuer) IssuePasswordResetToken(u model.User) (string, error) {
	return i.codec.Issue(u.Username, TokenPasswordReset, i.ttl.PasswordReset)
}
