package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/http/response"
	"github.com/trailheadapp/trailhead-server/internal/service"
)

// handleSignup creates an account and logs it straight in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	res, err := s.auth.Signup(r.Context(), req)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondWithToken(w, http.StatusCreated, res.Token, res.User)
}

// handleLogin authenticates by email and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondWithToken(w, http.StatusOK, res.Token, res.User)
}

// handleLogout clears the session cookie. Tokens themselves are not
// revocable; the cookie is the browser-facing session.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	response.Success(w, nil, s.logger)
}

// handleForgotPassword mails a reset link to a registered address.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.translator.HandleError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Token sent to email!"}, s.logger)
}

// handleResetPassword consumes an emailed reset token.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	res, err := s.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondWithToken(w, http.StatusOK, res.Token, res.User)
}

// handleUpdatePassword changes the logged-in user's password.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	res, err := s.auth.UpdatePassword(r.Context(), currentUser(r.Context()), req.CurrentPassword, req.Password, req.PasswordConfirm)
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondWithToken(w, http.StatusOK, res.Token, res.User)
}
