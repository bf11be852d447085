package security

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/iliyamo/whosaidit/internal/repository"
)

// OwnershipOracle answers whether userID owns resourceID. A missing
// resource is reported as an error wrapping repository.ErrNotFound.
type OwnershipOracle interface {
	IsOwnedBy(ctx context.Context, resourceID, userID uint64) (bool, error)
}

// OracleFunc adapts a function to OwnershipOracle.
type OracleFunc func(ctx context.Context, resourceID, userID uint64) (bool, error)

func (f OracleFunc) IsOwnedBy(ctx context.Context, resourceID, userID uint64) (bool, error) {
	return f(ctx, resourceID, userID)
}

// Oracles groups the per-resource ownership checks the table dispatches to.
type Oracles struct {
	GroupChats   OwnershipOracle
	Messages     OwnershipOracle
	Participants OwnershipOracle
	Leaderboard  OwnershipOracle
}

type ownershipRoute struct {
	resource string
	pattern  *regexp.Regexp
	oracle   OwnershipOracle
}

// OwnershipTable maps /api/<resource>/{id}(/...) paths to the oracle for
// that resource. Routes are tried in order and the first match wins, so a
// pattern that is a prefix of another must come after it. Quizzes are not
// in the table; QuizDecider owns them.
//
// The table is built once and only read afterwards.
type OwnershipTable struct {
	routes []ownershipRoute
}

// NewOwnershipTable builds the table. users compares the path id with the
// caller's id directly and needs no oracle.
func NewOwnershipTable(o Oracles) *OwnershipTable {
	self := OracleFunc(func(_ context.Context, id, userID uint64) (bool, error) {
		return id == userID, nil
	})
	t := &OwnershipTable{}
	t.add("users", self)
	t.add("group-chats", o.GroupChats)
	t.add("messages", o.Messages)
	t.add("participants", o.Participants)
	t.add("leaderboard", o.Leaderboard)
	return t
}

func (t *OwnershipTable) add(resource string, oracle OwnershipOracle) {
	t.routes = append(t.routes, ownershipRoute{
		resource: resource,
		pattern:  resourcePath(resource),
		oracle:   oracle,
	})
}

// resourcePath matches /api/<resource>/{id} with any number of trailing
// segments and captures the id.
func resourcePath(resource string) *regexp.Regexp {
	return regexp.MustCompile(`^/api/` + regexp.QuoteMeta(resource) + `/(\d+)(?:/[^/]+)*$`)
}

// Resources lists the table's resource names in match order.
func (t *OwnershipTable) Resources() []string {
	out := make([]string, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.resource
	}
	return out
}

// IsOwner reports whether userID owns the resource path names. A path with
// no matching route is not owned. A missing resource returns
// ErrResourceNotFound.
func (t *OwnershipTable) IsOwner(ctx context.Context, path string, userID uint64) (bool, error) {
	for _, r := range t.routes {
		m := r.pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		if r.oracle == nil {
			return false, fmt.Errorf("no ownership oracle for %s", r.resource)
		}
		id, ok := parseID(m[1])
		if !ok {
			return false, fmt.Errorf("%w: %s id %q out of range", ErrResourceNotFound, r.resource, m[1])
		}
		owned, err := r.oracle.IsOwnedBy(ctx, id, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("%w: %s %d", ErrResourceNotFound, r.resource, id)
		}
		if err != nil {
			return false, fmt.Errorf("%s ownership: %w", r.resource, err)
		}
		return owned, nil
	}
	return false, nil
}
