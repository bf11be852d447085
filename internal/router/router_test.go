package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/whosaidit/internal/handler"
	"github.com/iliyamo/whosaidit/internal/model"
	"github.com/iliyamo/whosaidit/internal/repository"
	"github.com/iliyamo/whosaidit/internal/security"
	"github.com/iliyamo/whosaidit/internal/service"
)

const secret = "router-test-secret-0123456789abcdef"

type users map[string]model.User

func (u users) FindByUsername(_ context.Context, name string) (model.User, error) {
	if v, ok := u[name]; ok {
		return v, nil
	}
	return model.User{}, repository.ErrNotFound
}

type quizzes map[uint64]model.Quiz

func (q quizzes) FindByID(_ context.Context, id uint64) (model.Quiz, error) {
	if v, ok := q[id]; ok {
		return v, nil
	}
	return model.Quiz{}, repository.ErrNotFound
}

// shareStub implements only what the routes under test reach.
type shareStub struct {
	handler.AuthService
}

func (shareStub) QuizAccessToken(context.Context, uint64, bool) (service.QuizShare, error) {
	return service.QuizShare{AccessToken: "q", URLToken: "u"}, nil
}

type fixture struct {
	e     *echo.Echo
	mock  sqlmock.Sqlmock
	alice string
	bob   string
	quiz  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := security.NewCodec(secret)
	require.NoError(t, err)
	issuer := security.NewIssuer(codec, security.TTLs{Access: time.Minute, Refresh: time.Hour, PasswordReset: time.Minute})

	alice := model.User{ID: 1, Username: "alice"}
	bob := model.User{ID: 2, Username: "bob"}
	aliceTok, err := issuer.IssueUserTokens(alice)
	require.NoError(t, err)
	bobTok, err := issuer.IssueUserTokens(bob)
	require.NoError(t, err)
	quizTok, err := issuer.IssueQuizToken(model.Quiz{ID: 7})
	require.NoError(t, err)

	never := security.OracleFunc(func(context.Context, uint64, uint64) (bool, error) { return false, nil })
	policy := security.NewPolicy(security.PolicyDeps{
		Quizzes: quizzes{7: {ID: 7, GroupChatID: 5, ShareableToken: quizTok}},
		Oracles: security.Oracles{GroupChats: never, Messages: never, Participants: never, Leaderboard: never},
		QuizOwners: security.OracleFunc(func(_ context.Context, id, userID uint64) (bool, error) {
			return id == 7 && userID == 1, nil
		}),
	})

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	res := &handler.ResourceHandler{
		Users:        repository.NewUserRepo(db),
		GroupChats:   repository.NewGroupChatRepo(db),
		Participants: repository.NewParticipantRepo(db),
		Messages:     repository.NewMessageRepo(db),
		Quizzes:      repository.NewQuizRepo(db),
		Leaderboard:  repository.NewLeaderboardRepo(db),
	}

	limited := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Limited", "1")
			return next(c)
		}
	}

	e := New(Deps{
		Resolver:    security.NewResolver(codec, users{"alice": alice, "bob": bob}),
		Decider:     policy,
		RateLimit:   limited,
		CORSOrigins: []string{"https://whosaidit.app"},
	}, handler.NewAuthHandler(shareStub{}), res)

	return &fixture{e: e, mock: mock, alice: aliceTok.AccessToken, bob: bobTok.AccessToken, quiz: quizTok}
}

func (f *fixture) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/healthz", "/api/health"} {
		rec := f.do(http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "ok", rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestOwnedRoutes(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/users/1", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/users/1", f.bob).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/users/1", f.quiz).Code)

	now := time.Now()
	f.mock.ExpectQuery(`FROM users WHERE id=\?`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "password_modified_at", "created_at"}).
			AddRow(1, "alice", "alice@example.com", "hash", now, now))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/users/1", f.alice).Code)
}

func TestQuizRoutes(t *testing.T) {
	f := newFixture(t)

	// link generation is owner only
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/quizzes/7/generate-token", f.quiz).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/quizzes/7/generate-token", f.bob).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/quizzes/7/generate-token", f.alice).Code)

	// the share token reaches its own quiz only
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/quizzes/8", f.quiz).Code)

	now := time.Now()
	f.mock.ExpectQuery(`FROM quizzes WHERE id=\?`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_chat_id", "name", "description", "quiz_type", "shareable_token", "url_token", "created_at"}).
			AddRow(7, 5, "q", "", "TIME_ATTACK", f.quiz, "u", now))
	f.mock.ExpectQuery(`FROM quiz_messages qm`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_chat_id", "participant_id", "content", "sent_at"}))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/quizzes/7", f.quiz).Code)

	// no delete route for quizzes outside the group chat
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodDelete, "/api/quizzes/7", f.quiz).Code)
}

func TestRateLimitOnlyOnAuthGroup(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/refresh", "")
	assert.Equal(t, "1", rec.Header().Get("X-Limited"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Empty(t, rec.Header().Get("X-Limited"))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/1", nil)
	req.Header.Set(echo.HeaderOrigin, "https://whosaidit.app")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://whosaidit.app", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
