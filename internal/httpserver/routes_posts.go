// internal/httpserver/routes_posts.go
//
// HTTP routes for paging records. All require a bearer token:
//   - GET    /api/posts      → caller's posts, newest first
//   - POST   /api/posts      → create a post owned by the caller
//   - PUT    /api/posts/{id} → replace fields of the caller's post
//   - DELETE /api/posts/{id} → remove the caller's post
//
// Update and delete answer 401 "Post not found or user not authorized" both
// when the id is unknown and when it belongs to someone else.

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

const msgNotOwned = "Post not found or user not authorized"

// postsRes is returned by GET /api/posts.
type postsRes struct {
	Success bool         `json:"success"`
	Posts   []model.Post `json:"posts"`
}

// postRes is returned by create, update and delete.
type postRes struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

// mountPosts registers all /posts routes.
func (s *Server) mountPosts(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.requireAuth(s.handleListPosts))
		r.Post("/", s.requireAuth(s.handleCreatePost))
		r.Put("/{id}", s.requireAuth(s.handleUpdatePost))
		r.Delete("/{id}", s.requireAuth(s.handleDeletePost))
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, me auth.Identity) {
	posts, err := s.store.ListPosts(r.Context(), me.UserID)
	if err != nil {
		serverError(w, r, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, postsRes{Success: true, Posts: posts})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, me auth.Identity) {
	in, ok := s.readPostInput(w, r)
	if !ok {
		return
	}
	p := model.NewPost(me.UserID, in)
	if err := s.store.CreatePost(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrUnknownOwner) {
			// Token verified but its user is gone (e.g. database reset).
			writeError(w, http.StatusForbidden, "Invalid token")
			return
		}
		serverError(w, r, "create post", err)
		return
	}
	hlog.FromRequest(r).Debug().Str("post", p.ID).Str("user", me.UserID).Msg("post created")
	writeJSON(w, http.StatusOK, postRes{Success: true, Message: "Post created successfully", Post: p})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, me auth.Identity) {
	in, ok := s.readPostInput(w, r)
	if !ok {
		return
	}
	id, ok := postID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgNotOwned)
		return
	}
	p, err := s.store.UpdatePost(r.Context(), id, me.UserID, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, msgNotOwned)
		return
	}
	if err != nil {
		serverError(w, r, "update post", err)
		return
	}
	writeJSON(w, http.StatusOK, postRes{Success: true, Message: "Post updated", Post: p})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, me auth.Identity) {
	id, ok := postID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgNotOwned)
		return
	}
	p, err := s.store.DeletePost(r.Context(), id, me.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, msgNotOwned)
		return
	}
	if err != nil {
		serverError(w, r, "delete post", err)
		return
	}
	hlog.FromRequest(r).Debug().Str("post", p.ID).Str("user", me.UserID).Msg("post deleted")
	writeJSON(w, http.StatusOK, postRes{Success: true, Message: "Post deleted successfully", Post: p})
}

// readPostInput decodes and validates a create/update body, writing the 400 itself.
func (s *Server) readPostInput(w http.ResponseWriter, r *http.Request) (model.PostInput, bool) {
	var in model.PostInput
	if !decodeBody(w, r, &in) {
		return in, false
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

// postID returns the normalized {id} path value; ok is false if it cannot name a post.
func postID(r *http.Request) (string, bool) {
	id := strings.ToLower(chi.URLParam(r, "id"))
	return id, model.ValidID(id)
}
