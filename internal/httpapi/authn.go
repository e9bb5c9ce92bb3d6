package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"voiceup.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authorize wraps a handler with access-token authentication and an
// optional role allow-list. The token comes from the accessToken cookie,
// falling back to an Authorization: Bearer header. The account and its
// role are re-read from the store on every request, so a role change
// takes effect immediately and the resolved account lands in the request
// context.
func (a *API) authorize(next http.HandlerFunc, roles ...auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "no token provided")
			return
		}

		account, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		if len(roles) > 0 && !roleAllowed(account.Role, roles) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		ctx := auth.ContextWithAccount(r.Context(), account)
		next(w, r.WithContext(ctx))
	}
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

func roleAllowed(role auth.Role, allowed []auth.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
