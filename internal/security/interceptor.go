package security

import (
	"net/http"
)

// Interceptor implements spec.md §4.8's "Rule": public passes unchecked;
// otherwise the bearer token is extracted and validated, missing or
// invalid returns 401, and a role-restricted path additionally checks the
// token's roles, returning 403 if the required role is absent.
type Interceptor struct {
	policy Policy
	tokens *TokenService
}

// NewInterceptor creates an Interceptor enforcing policy using tokens for
// bearer-token validation.
func NewInterceptor(policy Policy, tokens *TokenService) *Interceptor {
	return &Interceptor{policy: policy, tokens: tokens}
}

// Decision is the check's verdict. Status and Message are only meaningful
// when Allowed is false.
type Decision struct {
	Allowed    bool
	StatusCode int
	Message    string
	Claims     *Claims
}

// Check runs the classification + token-validation rule against r.
func (i *Interceptor) Check(r *http.Request) (Decision, error) {
	class := i.policy.Classify(r.URL.Path)
	if class.Public {
		return Decision{Allowed: true}, nil
	}

	header := r.Header.Get("Authorization")
	token, ok := ExtractBearer(header)
	if !ok || token == "" {
		return Decision{Allowed: false, StatusCode: http.StatusUnauthorized, Message: "missing bearer token"}, nil
	}

	claims, err := i.tokens.Validate(token)
	if err != nil {
		return Decision{Allowed: false, StatusCode: http.StatusUnauthorized, Message: "invalid or expired token"}, nil
	}

	for _, role := range class.RequiredRoles {
		if !claims.HasRole(role) {
			return Decision{Allowed: false, StatusCode: http.StatusForbidden, Message: "insufficient role"}, nil
		}
	}

	return Decision{Allowed: true, Claims: claims}, nil
}
