package security

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Routing(t *testing.T) {
	p := seededStore().policy()
	ctx := context.Background()

	public := []string{"/api/auth/register", "/api/auth", "/api/auth/quizzes/7/validate-url-token", "/api/health", "/healthz"}
	for _, path := range public {
		assert.Equal(t, Allow, p.Decide(ctx, Anonymous{}, http.MethodPost, path), path)
		assert.Equal(t, Allow, p.Decide(ctx, nil, http.MethodPost, path), path)
	}

	assert.Equal(t, Deny, p.Decide(ctx, Anonymous{}, http.MethodGet, "/api/group-chats/5"))
	assert.Equal(t, Deny, p.Decide(ctx, alice, http.MethodGet, "/api/authentication"))
	assert.Equal(t, Deny, p.Decide(ctx, alice, http.MethodGet, "/metrics"))
	assert.Equal(t, Deny, p.Decide(ctx, alice, http.MethodGet, "/api/unknown/1"))
	assert.Equal(t, Deny, p.Decide(ctx, QuizPrincipal{QuizID: 7}, http.MethodGet, "/api/leaderboard/31"))

	assert.ErrorIs(t, p.Authorize(ctx, bob, http.MethodGet, "/api/group-chats/5"), ErrAuthorizationDenied)
	assert.NoError(t, p.Authorize(ctx, alice, http.MethodGet, "/api/group-chats/5"))
}

func TestScenario_OwnerVersusStranger(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	issuer := NewIssuer(c, testTTLs)
	resolver := NewResolver(c, s)
	policy := s.policy()
	ctx := context.Background()

	alicePair, err := issuer.IssueUserTokens(s.users["alice"])
	require.NoError(t, err)
	bobPair, err := issuer.IssueUserTokens(s.users["bob"])
	require.NoError(t, err)

	asAlice, err := resolver.Resolve(ctx, alicePair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", asAlice.(UserPrincipal).Username)
	assert.Equal(t, Allow, policy.Decide(ctx, asAlice, http.MethodGet, "/api/group-chats/5/participants"))

	asBob, err := resolver.Resolve(ctx, bobPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Deny, policy.Decide(ctx, asBob, http.MethodGet, "/api/group-chats/5/participants"))
}

func TestScenario_ShareableQuizToken(t *testing.T) {
	s := seededStore()
	c := newTestCodec(t0)
	issuer := NewIssuer(c, testTTLs)
	resolver := NewResolver(c, s)
	policy := s.policy()
	ctx := context.Background()

	raw, err := issuer.IssueQuizToken(s.quizzes[7])
	require.NoError(t, err)
	q := s.quizzes[7]
	q.ShareableToken = raw
	s.quizzes[7] = q

	holder, err := resolver.Resolve(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, Allow, policy.Decide(ctx, holder, http.MethodGet, "/api/quizzes/7"))
	assert.Equal(t, Allow, policy.Decide(ctx, holder, http.MethodGet, "/api/quizzes/7/leaderboard"))
	assert.Equal(t, Deny, policy.Decide(ctx, holder, http.MethodPost, "/api/quizzes/7/generate-token"))
	assert.Equal(t, Deny, policy.Decide(ctx, holder, http.MethodPost, "/api/quizzes/7/messages"))
	assert.Equal(t, Deny, policy.Decide(ctx, holder, http.MethodGet, "/api/quizzes/8"))

	// Regenerating replaces the stored token; the old link stops working.
	fresh, err := issuer.IssueQuizToken(s.quizzes[7])
	require.NoError(t, err)
	require.NotEqual(t, raw, fresh)
	q.ShareableToken = fresh
	s.quizzes[7] = q

	assert.Equal(t, Deny, policy.Decide(ctx, holder, http.MethodGet, "/api/quizzes/7"))
	newHolder, err := resolver.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, Allow, policy.Decide(ctx, newHolder, http.MethodGet, "/api/quizzes/7"))
}

func TestScenario_PasswordReset(t *testing.T) {
	s := seededStore()
	carol := s.addUser(42, "carol", t0.Add(-time.Hour))
	s.addUser(43, "dave", t0.Add(-time.Hour))
	c := newTestCodec(t0)
	policy := s.policy()
	ctx := context.Background()

	raw, err := NewIssuer(c, testTTLs).IssuePasswordResetToken(carol)
	require.NoError(t, err)
	p, err := NewResolver(c, s).Resolve(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, Allow, policy.Decide(ctx, p, http.MethodPatch, "/api/password-reset/42"))
	assert.Equal(t, Deny, policy.Decide(ctx, p, http.MethodPatch, "/api/password-reset/43"))
	assert.Equal(t, Deny, policy.Decide(ctx, p, http.MethodGet, "/api/users/42"))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "user", Kind(alice))
	assert.Equal(t, "quiz", Kind(QuizPrincipal{}))
	assert.Equal(t, "password_reset", Kind(PasswordResetPrincipal{}))
	assert.Equal(t, "anonymous", Kind(Anonymous{}))
	assert.Equal(t, "anonymous", Kind(nil))
	assert.True(t, IsAnonymous(nil))
	assert.False(t, IsAnonymous(alice))
}
