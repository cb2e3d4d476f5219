package auth

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Decision is the outcome of evaluating a request against a Policy.
type Decision int

const (
	// Permit lets the request through.
	Permit Decision = iota
	// Unauthenticated means the rule requires a principal and there is none.
	Unauthenticated
	// Forbidden means the principal lacks every role the rule accepts.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Requirement is what a rule demands of the principal. A requirement with
// no roles permits everyone.
type Requirement struct {
	Roles []string
}

// PermitAll grants access without authentication.
func PermitAll() Requirement { return Requirement{} }

// HasAnyRole grants access to principals holding one of roles.
func HasAnyRole(roles ...string) Requirement { return Requirement{Roles: roles} }

func (r Requirement) String() string {
	if len(r.Roles) == 0 {
		return "permitAll"
	}
	return "hasAnyRole(" + strings.Join(r.Roles, ",") + ")"
}

func (r Requirement) decide(p *Principal) Decision {
	if len(r.Roles) == 0 {
		return Permit
	}
	if p == nil {
		return Unauthenticated
	}
	if p.HasAnyRole(r.Roles...) {
		return Permit
	}
	return Forbidden
}

// Rule binds Ant-style path patterns to a requirement. In a pattern `*`
// matches within one path segment, `**` as a whole segment matches any
// number of segments, and `**` inside a segment ("/index**") acts as `*`.
type Rule struct {
	Patterns    []string
	Requirement Requirement
}

// Matches reports whether path is covered by one of the rule's patterns.
func (r Rule) Matches(path string) bool {
	for _, pattern := range r.Patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Policy is an ordered rule table. The first matching rule decides; paths
// no rule matches fall back to Default.
type Policy struct {
	Rules   []Rule
	Default Requirement
}

// NewPolicy validates every pattern and returns the policy.
func NewPolicy(def Requirement, rules ...Rule) (*Policy, error) {
	for i, rule := range rules {
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d has no patterns", i)
		}
		for _, pattern := range rule.Patterns {
			if !strings.HasPrefix(pattern, "/") || !doublestar.ValidatePattern(pattern) {
				return nil, fmt.Errorf("rule %d: invalid pattern %q", i, pattern)
			}
		}
	}
	return &Policy{Rules: rules, Default: def}, nil
}

// Decide evaluates path for the principal p, which is nil when anonymous.
func (pol *Policy) Decide(path string, p *Principal) Decision {
	return pol.Match(path).decide(p)
}

// Match returns the requirement that governs path. One trailing slash is
// ignored, since the router serves "/index/" with the "/index" route.
func (pol *Policy) Match(path string) Requirement {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	for _, rule := range pol.Rules {
		if rule.Matches(path) {
			return rule.Requirement
		}
	}
	return pol.Default
}

// DefaultRules is the web application's access table.
func DefaultRules() []Rule {
	return []Rule{
		{Patterns: []string{"/", "/login"}, Requirement: PermitAll()},
		{Patterns: []string{"/index**"}, Requirement: HasAnyRole("ADMIN", "USER")},
		{Patterns: []string{"/otherRole"}, Requirement: PermitAll()},
		{Patterns: []string{"/logout"}, Requirement: PermitAll()},
		{Patterns: []string{"/users", "/users/**"}, Requirement: HasAnyRole("ADMIN")},
	}
}

// MustPolicy is NewPolicy for tables known at compile time. It panics on an
// invalid pattern.
func MustPolicy(def Requirement, rules ...Rule) *Policy {
	pol, err := NewPolicy(def, rules...)
	if err != nil {
		panic(err)
	}
	return pol
}

// DefaultPolicy returns the web access table. Paths outside it are public.
func DefaultPolicy() *Policy {
	return MustPolicy(PermitAll(), DefaultRules()...)
}
