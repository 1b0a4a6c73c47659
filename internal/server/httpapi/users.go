package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Username string  `json:"username" validate:"required,max=64"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /api/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest is the optional body of POST /api/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	u, err := h.users.Register(r.Context(), req.Username, []byte(req.Password), req.Email)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusCreated, u)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	pair, err := h.users.Login(r.Context(), req.Username, []byte(req.Password))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.setTokenCookie(w, pair.AccessToken)
	respondOK(w, http.StatusOK, pair)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.setTokenCookie(w, pair.AccessToken)
	respondOK(w, http.StatusOK, pair)
}

// logout revokes the refresh token if one is sent and always clears the
// cookie.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if r.ContentLength != 0 && !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.users.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.clearTokenCookie(w)
	respondOK(w, http.StatusOK, nil)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, u)
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.DeleteAccount(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.clearTokenCookie(w)
	respondOK(w, http.StatusOK, res)
}
