package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/whosaidit/internal/model"
)

func TestResolve_EmptyTokenIsAnonymous(t *testing.T) {
	s := seededStore()
	r := NewResolver(newTestCodec(t0), s)

	p, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous{}, p)
	assert.Zero(t, s.lookups)
}

func TestResolve_AccessToken(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	pair, err := NewIssuer(c, testTTLs).IssueUserTokens(s.users["alice"])
	require.NoError(t, err)

	p, err := NewResolver(c, s).Resolve(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, UserPrincipal{UserID: 1, Username: "alice", TokenType: TokenAccess}, p)
}

func TestResolve_UnknownUser(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	raw, err := c.Issue("mallory", TokenAccess, time.Minute)
	require.NoError(t, err)

	_, err = NewResolver(c, s).Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}

type failingUsers struct{ err error }

func (f failingUsers) FindByUsername(context.Context, string) (model.User, error) {
	return model.User{}, f.err
}

func TestResolve_LookupFailureIsWrapped(t *testing.T) {
	boom := errors.New("db down")
	c := newTestCodec(t0)
	raw, err := c.Issue("alice", TokenAccess, time.Minute)
	require.NoError(t, err)

	_, err = NewResolver(c, failingUsers{boom}).Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPrincipalNotFound)
}

func TestResolve_RefreshInvalidatedByPasswordChange(t *testing.T) {
	c := newTestCodec(t0)

	for _, changedAfter := range []time.Duration{time.Second, time.Minute, 13 * 24 * time.Hour} {
		s := seededStore()
		raw, err := c.Issue("alice", TokenRefresh, testTTLs.Refresh)
		require.NoError(t, err)

		// Still fine while the password is older than the token.
		s.addUser(1, "alice", t0.Add(-time.Hour))
		p, err := NewResolver(c, s).Resolve(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, TokenRefresh, p.(UserPrincipal).TokenType)

		s.addUser(1, "alice", t0.Add(changedAfter))
		_, err = NewResolver(c, s).Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, ErrRefreshInvalidated, "changed %s after issue", changedAfter)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestResolve_PasswordChangeWithinTheSameSecond(t *testing.T) {
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	changed := base.Add(900 * time.Millisecond)
	ctx := context.Background()

	for _, typ := range []TokenType{TokenRefresh, TokenPasswordReset} {
		t.Run(string(typ), func(t *testing.T) {
			s := seededStore()
			s.addUser(1, "alice", base.Add(-time.Hour))
			before := newTestCodec(base.Add(200 * time.Millisecond))
			raw, err := before.Issue("alice", typ, time.Hour)
			require.NoError(t, err)

			_, err = NewResolver(before, s).Resolve(ctx, raw)
			require.NoError(t, err)

			s.addUser(1, "alice", changed)
			_, err = NewResolver(before, s).Resolve(ctx, raw)
			assert.ErrorIs(t, err, ErrRefreshInvalidated)

			// Minted after the change, still inside the same second.
			after := newTestCodec(changed.Add(50 * time.Millisecond))
			fresh, err := after.Issue("alice", typ, time.Hour)
			require.NoError(t, err)
			_, err = NewResolver(after, s).Resolve(ctx, fresh)
			assert.NoError(t, err)

			// Same instant as the change is not "after" it.
			exact := newTestCodec(changed)
			same, err := exact.Issue("alice", typ, time.Hour)
			require.NoError(t, err)
			_, err = NewResolver(exact, s).Resolve(ctx, same)
			assert.NoError(t, err)
		})
	}
}

func TestResolve_PasswordResetToken(t *testing.T) {
	s := seededStore()
	carol := s.addUser(42, "carol", t0.Add(-24*time.Hour))
	c := newTestCodec(t0)
	raw, err := NewIssuer(c, testTTLs).IssuePasswordResetToken(carol)
	require.NoError(t, err)

	r := NewResolver(c, s)
	p, err := r.Resolve(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, PasswordResetPrincipal{UserID: 42}, p)

	// Completing the reset moves PasswordModifiedAt past the token.
	s.addUser(42, "carol", t0.Add(5*time.Minute))
	c.now = func() time.Time { return t0.Add(6 * time.Minute) }
	_, err = r.Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, ErrRefreshInvalidated)
}

func TestTokenType_NeverLooksUpUsers(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	r := NewResolver(c, s)
	pair, err := NewIssuer(c, testTTLs).IssueUserTokens(s.users["alice"])
	require.NoError(t, err)

	typ, err := r.TokenType(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, typ)
	typ, err = r.TokenType(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, typ)
	_, err = r.TokenType("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Zero(t, s.lookups)
}

func TestResolve_QuizTokenSkipsLookups(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	raw, err := NewIssuer(c, testTTLs).IssueQuizToken(model.Quiz{ID: 999})
	require.NoError(t, err)

	p, err := NewResolver(c, s).Resolve(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, QuizPrincipal{QuizID: 999, Token: raw}, p)
	assert.Zero(t, s.lookups)
}

func TestResolve_QuizTokenWithNonNumericSubject(t *testing.T) {
	c := newTestCodec(t0)
	raw, err := c.Issue("seven", TokenQuiz, 0)
	require.NoError(t, err)

	_, err = NewResolver(c, seededStore()).Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestResolve_ExpiredToken(t *testing.T) {
	c := newTestCodec(t0)
	raw, err := c.Issue("alice", TokenAccess, time.Minute)
	require.NoError(t, err)
	c.now = func() time.Time { return t0.Add(2 * time.Minute) }

	_, err = NewResolver(c, seededStore()).Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
