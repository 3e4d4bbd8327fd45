package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity for the lifetime of one process.
// It is built once from stored credentials and never mutated.
type Session struct {
	Token    string
	Username string
	Roles    RoleSet
}

// DisplayName strips the e-mail domain from the username.
func (s Session) DisplayName() string {
	if i := strings.Index(s.Username, "@"); i > 0 {
		return s.Username[:i]
	}
	return s.Username
}

// PrimaryRole is the first role by sort order, used for the header badge.
func (s Session) PrimaryRole() Role {
	sorted := s.Roles.Sorted()
	if len(sorted) == 0 {
		return RoleRU
	}
	return sorted[0]
}

// SessionFromToken decodes roles once and freezes them into a Session. An
// empty username falls back to the token's subject.
func SessionFromToken(token, username string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrAuthenticationMissing
	}
	claims := decodeClaims(token)
	if username == "" {
		username = stringClaim(claims, "username")
		if username == "" {
			username = stringClaim(claims, "sub")
		}
	}
	if username == "" {
		return Session{}, ErrAuthenticationMissing
	}
	return Session{Token: token, Username: username, Roles: rolesFromClaims(claims)}, nil
}

// DecodeRoles reads the role claims of a bearer token without verifying its
// signature; the backend verifies every request. Claim "roles" wins over
// "role". Anything undecodable or empty degrades to {RU}.
func DecodeRoles(token string) RoleSet {
	return rolesFromClaims(decodeClaims(token))
}

func decodeClaims(token string) jwt.MapClaims {
	token = strings.TrimSpace(token)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func rolesFromClaims(claims jwt.MapClaims) RoleSet {
	if claims == nil {
		return LeastPrivileged()
	}
	set := normalizeRoles(claims["roles"])
	if len(set) == 0 {
		set = normalizeRoles(claims["role"])
	}
	if len(set) == 0 {
		return LeastPrivileged()
	}
	return set
}

func normalizeRoles(value interface{}) RoleSet {
	out := RoleSet{}
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = mergeRole(out, str)
			}
		}
	case []string:
		for _, str := range v {
			out = mergeRole(out, str)
		}
	case string:
		for _, str := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = mergeRole(out, str)
		}
	}
	return out
}

func mergeRole(set RoleSet, raw string) RoleSet {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw != "" {
		set[Role(raw)] = struct{}{}
	}
	return set
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if claims == nil {
		return ""
	}
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}
