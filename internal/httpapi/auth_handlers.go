package httpapi

import (
	"errors"
	"net/http"

	"voiceup.org/internal/auth"
	"voiceup.org/internal/sso"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	stateCookie   = "oauthState"

	accessCookieMaxAge  = 24 * 60 * 60
	refreshCookieMaxAge = 7 * 24 * 60 * 60
	stateCookieMaxAge   = 10 * 60
)

type registerRequest struct {
	FullName struct {
		FirstName string `json:"firstName" validate:"required,min=2,max=30"`
		LastName  string `json:"lastName" validate:"required,min=2,max=30"`
	} `json:"fullName"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,strongpassword"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateStruct(req); !ok {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	session, err := a.auth.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FullName.FirstName,
		LastName:  req.FullName.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		a.handleAuthError(w, err)
		return
	}

	a.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    session.Account,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateStruct(req); !ok {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	session, err := a.auth.LoginWithCredential(r.Context(), req.Email, req.Password)
	if err != nil {
		a.handleAuthError(w, err)
		return
	}

	a.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User logged in successfully",
		"user":    session.Account,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}

	session, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		a.handleAuthError(w, err)
		return
	}

	a.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Token refreshed successfully",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": account.Public()})
}

func (a *API) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	state, err := sso.NewState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.google.AuthCodeURL(state), http.StatusFound)
}

func (a *API) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusUnauthorized, "invalid oauth state")
		return
	}
	// The state is single use; expire it as soon as it checks out.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	profile, err := a.google.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "sign-in failed")
		return
	}

	session, created, err := a.auth.LoginWithFederatedIdentity(r.Context(), profile)
	if err != nil {
		a.handleAuthError(w, err)
		return
	}

	a.setSessionCookies(w, session)
	status := http.StatusOK
	message := "User logged in successfully"
	if created {
		status = http.StatusCreated
		message = "User registered successfully"
	}
	writeJSON(w, status, map[string]any{
		"message": message,
		"user":    session.Account,
	})
}

func (a *API) setSessionCookies(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   accessCookieMaxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		MaxAge:   refreshCookieMaxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleAuthError maps the error taxonomy onto status codes with stable
// client-facing messages.
func (a *API) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrIdentityExists):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrNoToken):
		writeError(w, http.StatusUnauthorized, "no token provided")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevoked):
		// Revoked and malformed tokens answer identically; the client must
		// not be able to tell that a replayed token was ever live.
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
