package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edpaging/paging-log/internal/auth"
	"github.com/edpaging/paging-log/internal/model"
)

func pageBody(bed string) map[string]string {
	return map[string]string{
		"bedNumber":     bed,
		"forEdProvider": "Dr. Kovac",
		"providerName":  "Dr. Carter",
		"providerGroup": "Hospitalist",
	}
}

func createPost(t *testing.T, srv *Server, token string, body any) *model.Post {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/posts", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[postRes](t, w)
	require.True(t, res.Success)
	require.Equal(t, "Post created successfully", res.Message)
	require.NotNil(t, res.Post)
	return res.Post
}

func listPosts(t *testing.T, srv *Server, token string) []model.Post {
	t.Helper()
	w := do(t, srv, http.MethodGet, "/api/posts", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[postsRes](t, w)
	require.True(t, res.Success)
	return res.Posts
}

func TestCreatePost_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice")

	body := pageBody("7")
	body["notes"] = "family at bedside"
	body["status"] = "Re-Paged"
	p := createPost(t, srv, token, body)

	assert.True(t, model.ValidID(p.ID))
	assert.Equal(t, "7", p.BedNumber)
	assert.Equal(t, "Dr. Kovac", p.ForEdProvider)
	assert.Equal(t, "Dr. Carter", p.ProviderName)
	assert.Equal(t, "Hospitalist", p.ProviderGroup)
	assert.Equal(t, model.StatusRePaged, p.Status)
	assert.Equal(t, "family at bedside", p.Notes)
	assert.True(t, model.ValidID(p.User.ID))
	assert.False(t, p.CreatedAt.IsZero())
	assert.True(t, p.CreatedAt.Equal(p.UpdatedAt))
}

func TestCreatePost_DefaultStatus(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice")
	p := createPost(t, srv, token, pageBody("1"))
	assert.Equal(t, model.StatusPaged, p.Status)
}

func TestCreatePost_Validation(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice")

	tests := []struct {
		name    string
		field   string
		message string
	}{
		{"bed number", "bedNumber", "Bed number is required"},
		{"ed provider", "forEdProvider", "ED Provider name is required"},
		{"provider name", "providerName", "Provider name is required"},
		{"provider group", "providerGroup", "Provider group is required"},
	}
	for _, tt := range tests {
		t.Run("absent "+tt.name, func(t *testing.T) {
			body := pageBody("1")
			delete(body, tt.field)
			w := do(t, srv, http.MethodPost, "/api/posts", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			res := decode[errorRes](t, w)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
		t.Run("empty "+tt.name, func(t *testing.T) {
			body := pageBody("1")
			body[tt.field] = ""
			w := do(t, srv, http.MethodPost, "/api/posts", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decode[errorRes](t, w).Message)
		})
	}

	t.Run("empty body reports first field", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/api/posts", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Bed number is required", decode[errorRes](t, w).Message)
	})

	t.Run("invalid status", func(t *testing.T) {
		body := pageBody("1")
		body["status"] = "Ignored"
		w := do(t, srv, http.MethodPost, "/api/posts", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid status", decode[errorRes](t, w).Message)
	})

	assert.Empty(t, listPosts(t, srv, token))
}

func TestListPosts_NewestFirstAndIsolated(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")

	p1 := createPost(t, srv, alice, pageBody("1"))
	p2 := createPost(t, srv, alice, pageBody("2"))
	p3 := createPost(t, srv, alice, pageBody("3"))
	createPost(t, srv, bob, pageBody("99"))

	posts := listPosts(t, srv, alice)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	for _, p := range posts {
		assert.Equal(t, "alice", p.User.Username)
	}

	bobs := listPosts(t, srv, bob)
	require.Len(t, bobs, 1)
	assert.Equal(t, "99", bobs[0].BedNumber)
	for _, p := range bobs {
		assert.NotContains(t, []string{p1.ID, p2.ID, p3.ID}, p.ID)
	}
}

func TestListPosts_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice")
	w := do(t, srv, http.MethodGet, "/api/posts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"posts":[]}`, w.Body.String())
}

func TestUpdatePost(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	p := createPost(t, srv, alice, pageBody("4"))

	body := pageBody("4B")
	body["status"] = "Completed"
	body["notes"] = "seen"

	t.Run("validation runs first", func(t *testing.T) {
		bad := pageBody("4")
		delete(bad, "providerName")
		w := do(t, srv, http.MethodPut, "/api/posts/"+p.ID, alice, bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Provider name is required", decode[errorRes](t, w).Message)
	})

	t.Run("other owner and missing id are indistinguishable", func(t *testing.T) {
		foreign := do(t, srv, http.MethodPut, "/api/posts/"+p.ID, bob, body)
		missing := do(t, srv, http.MethodPut, "/api/posts/"+model.NewID(), alice, body)
		malformed := do(t, srv, http.MethodPut, "/api/posts/not-an-id", alice, body)
		for _, w := range []int{foreign.Code, missing.Code, malformed.Code} {
			assert.Equal(t, http.StatusUnauthorized, w)
		}
		assert.JSONEq(t, `{"success":false,"message":"Post not found or user not authorized"}`, foreign.Body.String())
		assert.Equal(t, foreign.Body.String(), missing.Body.String())
		assert.Equal(t, foreign.Body.String(), malformed.Body.String())
	})

	t.Run("owner updates", func(t *testing.T) {
		w := do(t, srv, http.MethodPut, "/api/posts/"+p.ID, alice, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[postRes](t, w)
		assert.True(t, res.Success)
		assert.Equal(t, "Post updated", res.Message)
		assert.Equal(t, p.ID, res.Post.ID)
		assert.Equal(t, "4B", res.Post.BedNumber)
		assert.Equal(t, model.StatusCompleted, res.Post.Status)
		assert.Equal(t, "seen", res.Post.Notes)
		assert.True(t, p.CreatedAt.Equal(res.Post.CreatedAt))
	})

	t.Run("omitted status resets to Paged", func(t *testing.T) {
		w := do(t, srv, http.MethodPut, "/api/posts/"+p.ID, alice, pageBody("4C"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusPaged, decode[postRes](t, w).Post.Status)
	})
}

func TestDeletePost(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	p := createPost(t, srv, alice, pageBody("5"))
	keep := createPost(t, srv, alice, pageBody("6"))

	foreign := do(t, srv, http.MethodDelete, "/api/posts/"+p.ID, bob, nil)
	missing := do(t, srv, http.MethodDelete, "/api/posts/"+model.NewID(), alice, nil)
	assert.Equal(t, http.StatusUnauthorized, foreign.Code)
	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, foreign.Body.String(), missing.Body.String())

	w := do(t, srv, http.MethodDelete, "/api/posts/"+p.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[postRes](t, w)
	assert.Equal(t, "Post deleted successfully", res.Message)
	assert.Equal(t, p.ID, res.Post.ID)
	assert.Equal(t, "5", res.Post.BedNumber)

	again := do(t, srv, http.MethodDelete, "/api/posts/"+p.ID, alice, nil)
	assert.Equal(t, http.StatusUnauthorized, again.Code)

	posts := listPosts(t, srv, alice)
	require.Len(t, posts, 1)
	assert.Equal(t, keep.ID, posts[0].ID)
}

func TestCreatePost_NumericFields(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "alice")

	p := createPost(t, srv, token, map[string]any{
		"bedNumber":     12,
		"forEdProvider": "Dr. Kovac",
		"providerName":  "Dr. Carter",
		"providerGroup": 3,
	})
	assert.Equal(t, "12", p.BedNumber)
	assert.Equal(t, "3", p.ProviderGroup)

	w := do(t, srv, http.MethodPost, "/api/posts", token,
		`{"bedNumber":true,"forEdProvider":"a","providerName":"b","providerGroup":"c"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid request body"}`, w.Body.String())
}

func TestCreatePost_DeletedUser(t *testing.T) {
	srv := newTestServer(t)
	// Signed with the server's secret but for an id that was never registered.
	token, err := auth.NewIssuer(testSecret, 0).Sign(model.NewID())
	require.NoError(t, err)

	w := do(t, srv, http.MethodPost, "/api/posts", token, pageBody("1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid token"}`, w.Body.String())
}
