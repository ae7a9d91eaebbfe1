// internal/httpserver/routes_auth.go
//
// Credential endpoints under /api/auth:
//   - POST /api/auth/register → create account, return access token
//   - POST /api/auth/login    → check password, return access token
//   - GET  /api/auth          → the caller's account (requires token)

package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/edpaging/paging-log/internal/auth"
	"github.com/edpaging/paging-log/internal/model"
	"github.com/edpaging/paging-log/internal/store"
)

// tokenRes is returned by register and login.
type tokenRes struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// userRes is returned by GET /api/auth.
type userRes struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuth registers all /auth routes.
func (s *Server) mountAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/", s.requireAuth(s.handleLoadUser))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})
}

func (s *Server) handleLoadUser(w http.ResponseWriter, r *http.Request, me auth.Identity) {
	u, err := s.store.UserByID(r.Context(), me.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "User not found")
		return
	}
	if err != nil {
		serverError(w, r, "load user", err)
		return
	}
	writeJSON(w, http.StatusOK, userRes{Success: true, User: u})
}

// handleRegister validates input, hashes the password, inserts the user and signs a token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		serverError(w, r, "hash password", err)
		return
	}
	u := &model.User{
		ID:           model.NewID(),
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Location:     in.Location,
		CreatedAt:    model.Now(),
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "Username already taken")
			return
		}
		serverError(w, r, "create user", err)
		return
	}
	tok, err := s.tokens.Sign(u.ID)
	if err != nil {
		serverError(w, r, "sign token", err)
		return
	}
	hlog.FromRequest(r).Info().Str("user", u.ID).Msg("user registered")
	writeJSON(w, http.StatusOK, tokenRes{Success: true, Message: "User created successfully", AccessToken: tok})
}

// handleLogin authenticates a user by username and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if !decodeBody(w, r, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing username and/or password")
		return
	}
	u, err := s.store.UserByUsername(r.Context(), body.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(w, r, "find user", err)
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		writeError(w, http.StatusBadRequest, "Incorrect username or password")
		return
	}
	tok, err := s.tokens.Sign(u.ID)
	if err != nil {
		serverError(w, r, "sign token", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenRes{Success: true, Message: "User logged in successfully", AccessToken: tok})
}
