// Package service implements the account and sharing flows built on the
// security core: registration, login, refresh, password reset, credential
// changes and shareable quiz links.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/model"
	"github.com/iliyamo/whosaidit/internal/queue"
	"github.com/iliyamo/whosaidit/internal/repository"
	"github.com/iliyamo/whosaidit/internal/security"
	"github.com/iliyamo/whosaidit/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidURLToken    = errors.New("invalid url token")
)

// maxURLTokenAttempts bounds the uniqueness loop for share link tokens.
const maxURLTokenAttempts = 10

type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (uint64, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string, modifiedAt time.Time) error
	UpdateEmail(ctx context.Context, id uint64, email string) error
}

type QuizStore interface {
	FindByID(ctx context.Context, id uint64) (model.Quiz, error)
	URLTokenExists(ctx context.Context, urlToken string) (bool, error)
	SetShareTokens(ctx context.Context, id uint64, shareableToken, urlToken string) error
}

type MailPublisher interface {
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetRequestedEvent) error
}

type PrincipalResolver interface {
	Resolve(ctx context.Context, raw string) (security.Principal, error)
}

// AuthConfig carries the settings the service needs from config.Config.
type AuthConfig struct {
	BcryptCost       int
	FrontendURL      string
	PasswordResetTTL time.Duration
}

// AuthResult is returned by register, authenticate and refresh.
type AuthResult struct {
	UserID uint64 `json:"userId"`
	security.TokenPair
}

// QuizShare is a quiz's shareable link: the quiz token and the url token
// embedded in the link.
type QuizShare struct {
	AccessToken string `json:"accessToken"`
	URLToken    string `json:"urlToken"`
}

type AuthService struct {
	users    UserStore
	quizzes  QuizStore
	issuer   *security.Issuer
	resolver PrincipalResolver
	mail     MailPublisher
	cfg      AuthConfig

	now         func() time.Time
	newURLToken func() (string, error)
}

func NewAuthService(users UserStore, quizzes QuizStore, issuer *security.Issuer,
	resolver PrincipalResolver, mail MailPublisher, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:       users,
		quizzes:     quizzes,
		issuer:      issuer,
		resolver:    resolver,
		mail:        mail,
		cfg:         cfg,
		now:         time.Now,
		newURLToken: utils.NewURLToken,
	}
}

// Register creates the account and logs it in. Duplicate usernames and
// emails surface as repository.ErrUsernameExists / ErrEmailExists.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.users.Create(ctx, username, email, hash)
	if err != nil {
		return AuthResult{}, err
	}
	return s.login(model.User{ID: id, Username: username})
}

// Authenticate checks the password and issues a token pair.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.login(u)
}

// Refresh exchanges a refresh token for a new pair. Errors are the
// security sentinels: ErrRefreshInvalidated after a password change,
// ErrTokenExpired, ErrTokenInvalid (including an access token presented
// here) and ErrPrincipalNotFound.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (AuthResult, error) {
	if rawRefresh == "" {
		return AuthResult{}, security.ErrTokenInvalid
	}
	p, err := s.resolver.Resolve(ctx, rawRefresh)
	if err != nil {
		return AuthResult{}, err
	}
	u, ok := p.(security.UserPrincipal)
	if !ok || u.TokenType != security.TokenRefresh {
		return AuthResult{}, fmt.Errorf("%w: not a refresh token", security.ErrTokenInvalid)
	}
	return s.login(model.User{ID: u.UserID, Username: u.Username})
}

func (s *AuthService) login(u model.User) (AuthResult, error) {
	pair, err := s.issuer.IssueUserTokens(u)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	return AuthResult{UserID: u.ID, TokenPair: pair}, nil
}

// RequestPasswordReset mails a reset link to the account registered with
// email. An unknown email returns repository.ErrNotFound.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := s.issuer.IssuePasswordResetToken(u)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	ev := queue.PasswordResetRequestedEvent{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		ResetURL:    s.cfg.FrontendURL + "/reset-password/" + token,
		ExpiresIn:   int(s.cfg.PasswordResetTTL / time.Minute),
		RequestedAt: s.now().UTC(),
	}
	if err := s.mail.PublishPasswordReset(ctx, ev); err != nil {
		return fmt.Errorf("queue reset mail: %w", err)
	}
	logging.Info().Uint64("user_id", u.ID).Msg("password reset requested")
	return nil
}

// ExecutePasswordReset sets a new password for userID. Authorization has
// already checked the caller holds that user's reset token. Moving
// PasswordModifiedAt forward retires the reset token and every refresh
// token.
func (s *AuthService) ExecutePasswordReset(ctx context.Context, userID uint64, newPassword string) error {
	return s.setPassword(ctx, userID, newPassword)
}

// UpdatePassword changes the password after checking the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, current, newPassword string) error {
	if err := s.checkPassword(ctx, userID, current); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

// UpdateEmail changes the account email after checking the password.
func (s *AuthService) UpdateEmail(ctx context.Context, userID uint64, password, newEmail string) error {
	if err := s.checkPassword(ctx, userID, password); err != nil {
		return err
	}
	return s.users.UpdateEmail(ctx, userID, newEmail)
}

func (s *AuthService) checkPassword(ctx context.Context, userID uint64, password string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID uint64, plain string) error {
	hash, err := utils.HashPassword(plain, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now().UTC()); err != nil {
		return err
	}
	logging.Info().Uint64("user_id", userID).Msg("password changed")
	return nil
}

// QuizAccessToken returns the quiz's shareable link, minting one on first
// use. With regenerate the current link is replaced and stops working.
func (s *AuthService) QuizAccessToken(ctx context.Context, quizID uint64, regenerate bool) (QuizShare, error) {
	q, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return QuizShare{}, err
	}
	if !regenerate && q.ShareableToken != "" && q.URLToken != "" {
		return QuizShare{AccessToken: q.ShareableToken, URLToken: q.URLToken}, nil
	}

	token, err := s.issuer.IssueQuizToken(q)
	if err != nil {
		return QuizShare{}, fmt.Errorf("issue quiz token: %w", err)
	}
	for attempt := 0; attempt < maxURLTokenAttempts; attempt++ {
		urlToken, err := s.newURLToken()
		if err != nil {
			return QuizShare{}, fmt.Errorf("url token: %w", err)
		}
		taken, err := s.quizzes.URLTokenExists(ctx, urlToken)
		if err != nil {
			return QuizShare{}, err
		}
		if taken {
			continue
		}
		err = s.quizzes.SetShareTokens(ctx, quizID, token, urlToken)
		if errors.Is(err, repository.ErrURLTokenExists) {
			// lost a race with another quiz for the same token
			continue
		}
		if err != nil {
			return QuizShare{}, err
		}
		logging.Info().Uint64("quiz_id", quizID).Bool("regenerated", regenerate).Msg("quiz share link issued")
		return QuizShare{AccessToken: token, URLToken: urlToken}, nil
	}
	return QuizShare{}, fmt.Errorf("no unique url token after %d attempts", maxURLTokenAttempts)
}

// ValidateQuizURLToken trades the url token from a shared link for the
// quiz token. A missing quiz and a wrong token look the same to callers.
func (s *AuthService) ValidateQuizURLToken(ctx context.Context, quizID uint64, urlToken string) (QuizShare, error) {
	q, err := s.quizzes.FindByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return QuizShare{}, ErrInvalidURLToken
	}
	if err != nil {
		return QuizShare{}, err
	}
	if q.URLToken == "" || q.ShareableToken == "" ||
		subtle.ConstantTimeCompare([]byte(q.URLToken), []byte(urlToken)) != 1 {
		return QuizShare{}, ErrInvalidURLToken
	}
	return QuizShare{AccessToken: q.ShareableToken, URLToken: q.URLToken}, nil
}
