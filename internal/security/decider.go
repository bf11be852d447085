package security

import (
	"context"
	"crypto/subtle"
	"regexp"

	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/model"
)

// Decision is the outcome of an authorization check. The zero value denies.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

func allowIf(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}

// Decider renders a decision for principal acting on method + path.
// Deciders never return errors: every lookup failure is a Deny.
type Decider interface {
	Decide(ctx context.Context, p Principal, method, path string) Decision
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, p Principal, method, path string) Decision

func (f DeciderFunc) Decide(ctx context.Context, p Principal, method, path string) Decision {
	return f(ctx, p, method, path)
}

// PermitAll allows every request, including anonymous ones.
var PermitAll Decider = DeciderFunc(func(context.Context, Principal, string, string) Decision { return Allow })

// OwnershipDecider guards every owned resource except quizzes.
type OwnershipDecider struct {
	table *OwnershipTable
}

func NewOwnershipDecider(table *OwnershipTable) *OwnershipDecider {
	return &OwnershipDecider{table: table}
}

// Decide requires a UserPrincipal that owns the resource.
func (d *OwnershipDecider) Decide(ctx context.Context, p Principal, method, path string) Decision {
	u, ok := p.(UserPrincipal)
	if !ok {
		return Deny
	}
	owned, err := d.table.IsOwner(ctx, path, u.UserID)
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Uint64("user_id", u.UserID).Msg("ownership check failed")
		return Deny
	}
	return allowIf(owned)
}

// QuizLookup loads a quiz with its stored share token.
type QuizLookup interface {
	FindByID(ctx context.Context, id uint64) (model.Quiz, error)
}

var (
	quizPath = regexp.MustCompile(`^/api/quizzes/(\d+)(?:/[^/]+)*$`)

	// Paths a share-link holder may never use even for its own quiz: minting
	// links and choosing the quiz's messages belong to the owner.
	quizOwnerOnly = []*regexp.Regexp{
		regexp.MustCompile(`^/api/quizzes/\d+/generate-token$`),
		regexp.MustCompile(`^/api/quizzes/\d+/messages$`),
	}
)

// QuizDecider admits either the owning user or the holder of the quiz's
// current share token.
type QuizDecider struct {
	quizzes QuizLookup
	owners  OwnershipOracle
}

func NewQuizDecider(quizzes QuizLookup, owners OwnershipOracle) *QuizDecider {
	return &QuizDecider{quizzes: quizzes, owners: owners}
}

func (d *QuizDecider) Decide(ctx context.Context, p Principal, method, path string) Decision {
	m := quizPath.FindStringSubmatch(path)
	if m == nil {
		return Deny
	}
	quizID, ok := parseID(m[1])
	if !ok {
		return Deny
	}

	switch pr := p.(type) {
	case UserPrincipal:
		owned, err := d.owners.IsOwnedBy(ctx, quizID, pr.UserID)
		if err != nil {
			logging.Debug().Err(err).Uint64("quiz_id", quizID).Uint64("user_id", pr.UserID).Msg("quiz ownership check failed")
			return Deny
		}
		return allowIf(owned)

	case QuizPrincipal:
		for _, re := range quizOwnerOnly {
			if re.MatchString(path) {
				return Deny
			}
		}
		if pr.QuizID != quizID {
			return Deny
		}
		return allowIf(d.currentToken(ctx, quizID, pr.Token))

	default:
		return Deny
	}
}

// currentToken reports whether token is the quiz's stored share token.
// Regenerating the link replaces the stored token, which revokes the old one.
func (d *QuizDecider) currentToken(ctx context.Context, quizID uint64, token string) bool {
	q, err := d.quizzes.FindByID(ctx, quizID)
	if err != nil {
		logging.Debug().Err(err).Uint64("quiz_id", quizID).Msg("quiz lookup failed")
		return false
	}
	if q.ShareableToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(q.ShareableToken), []byte(token)) == 1
}

var passwordResetPath = regexp.MustCompile(`^/api/password-reset/(\d+)$`)

// PasswordResetDecider admits only a PasswordResetPrincipal acting on its
// own user id. A logged-in session is refused too.
type PasswordResetDecider struct{}

func (PasswordResetDecider) Decide(_ context.Context, p Principal, _, path string) Decision {
	m := passwordResetPath.FindStringSubmatch(path)
	if m == nil {
		return Deny
	}
	userID, ok := parseID(m[1])
	if !ok {
		return Deny
	}
	pr, isReset := p.(PasswordResetPrincipal)
	return allowIf(isReset && pr.UserID == userID)
}
