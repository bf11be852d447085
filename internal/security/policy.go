package security

import (
	"context"
	"regexp"
)

type rule struct {
	pattern *regexp.Regexp
	decider Decider
}

// Policy routes a request path to the decider responsible for it. Rules are
// tried in order, first match wins, and a path no rule matches is denied.
type Policy struct {
	rules []rule
}

// PolicyDeps are the collaborators the default policy needs.
type PolicyDeps struct {
	Quizzes QuizLookup
	Oracles Oracles
	// QuizOwners answers quiz -> group chat -> user.
	QuizOwners OwnershipOracle
}

// NewPolicy builds the fixed rule set:
//
//	/api/auth/**, /api/health, /healthz  public
//	/api/quizzes/**                      QuizDecider
//	/api/password-reset/**               PasswordResetDecider
//	/api/**                              OwnershipDecider
func NewPolicy(d PolicyDeps) *Policy {
	p := &Policy{}
	p.Add(`^/api/auth(/.*)?$`, PermitAll)
	p.Add(`^/api/health$`, PermitAll)
	p.Add(`^/healthz$`, PermitAll)
	p.Add(`^/api/quizzes(/.*)?$`, NewQuizDecider(d.Quizzes, d.QuizOwners))
	p.Add(`^/api/password-reset(/.*)?$`, PasswordResetDecider{})
	p.Add(`^/api(/.*)?$`, NewOwnershipDecider(NewOwnershipTable(d.Oracles)))
	return p
}

// Add appends a rule. Call it only while building the policy.
func (p *Policy) Add(pattern string, d Decider) {
	p.rules = append(p.rules, rule{pattern: regexp.MustCompile(pattern), decider: d})
}

// Decide implements Decider.
func (p *Policy) Decide(ctx context.Context, pr Principal, method, path string) Decision {
	if pr == nil {
		pr = Anonymous{}
	}
	for _, r := range p.rules {
		if r.pattern.MatchString(path) {
			return r.decider.Decide(ctx, pr, method, path)
		}
	}
	return Deny
}

// Authorize is Decide returning ErrAuthorizationDenied on Deny.
func (p *Policy) Authorize(ctx context.Context, pr Principal, method, path string) error {
	if p.Decide(ctx, pr, method, path) != Allow {
		return ErrAuthorizationDenied
	}
	return nil
}
