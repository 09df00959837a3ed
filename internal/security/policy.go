// Package security is the Security Interceptor (spec.md §4.8, component
// C3 part B): URL-pattern classification into public / authenticated /
// role-restricted, JWT issuance and validation, and password hashing.
// Grounded on the teacher's internal/middleware/rbac.go and auth.go, whose
// fixed resource:action permission pairs are generalized here into
// spec.md's glob-style pattern grammar.
package security

import "strings"

// Role names a pattern requires the caller's token to carry.
type Role string

// Policy is the full set of configured patterns: which paths are public,
// which merely require authentication, and which require a specific role
// (spec.md §4.8 "Classification").
type Policy struct {
	Public         []string
	Authenticated  []string
	RoleRestricted map[Role][]string
}

// Classification is the computed verdict for one request path.
type Classification struct {
	Public                 bool
	AuthenticationRequired bool
	RequiredRoles          []Role
}

// Classify computes a path's classification against the policy (spec.md
// §4.8): public if any public pattern matches; authentication-required if
// any authenticated or role-restricted pattern matches; each role whose
// pattern set matches is added to RequiredRoles.
func (p Policy) Classify(path string) Classification {
	var c Classification

	for _, pat := range p.Public {
		if matchPattern(pat, path) {
			c.Public = true
			break
		}
	}

	for _, pat := range p.Authenticated {
		if matchPattern(pat, path) {
			c.AuthenticationRequired = true
			break
		}
	}

	for role, pats := range p.RoleRestricted {
		for _, pat := range pats {
			if matchPattern(pat, path) {
				c.AuthenticationRequired = true
				c.RequiredRoles = append(c.RequiredRoles, role)
				break
			}
		}
	}

	return c
}

// matchPattern implements spec.md §4.8's pattern grammar: a literal path,
// or a literal prefix followed by `/*` (exactly one more segment) or `/**`
// (zero or more further segments).
func matchPattern(pattern, path string) bool {
	switch {
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	case strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "/*")
		rest := strings.TrimPrefix(path, prefix+"/")
		if rest == path { // prefix didn't match
			return false
		}
		return rest != "" && !strings.Contains(rest, "/")
	default:
		return pattern == path
	}
}
