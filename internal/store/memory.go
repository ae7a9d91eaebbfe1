// internal/store/memory.go
//
// In-memory implementation of Store.
// Used by the HTTP tests and by STORE_DRIVER=memory for local runs.
//
// Characteristics:
//   - Users and posts are kept in maps keyed by ID.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Values are copied in and out so callers never alias stored records.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/edpaging/paging-log/internal/model"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex          // guards users and posts
	users map[string]model.User // keyed by User.ID
	posts map[string]model.Post // keyed by Post.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		users: make(map[string]model.User),
		posts: make(map[string]model.Post),
	}
}

// CreateUser adds u unless the username is already taken (case-insensitive).
func (m *memory) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrUsernameTaken
		}
	}
	m.users[u.ID] = *u
	return nil
}

// UserByID looks up a user by ID.
func (m *memory) UserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, ErrNotFound
}

// UserByUsername looks up a user by name, ignoring case.
func (m *memory) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// ListPosts returns copies of the owner's posts sorted by ID descending.
func (m *memory) ListPosts(ctx context.Context, ownerID string) ([]model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Post{}
	for _, p := range m.posts {
		if p.User.ID != ownerID {
			continue
		}
		if u, ok := m.users[ownerID]; ok {
			p.User.Username = u.Username
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CreatePost stores p if its owner exists.
func (m *memory) CreatePost(ctx context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.User.ID]; !ok {
		return ErrUnknownOwner
	}
	m.posts[p.ID] = *p
	return nil
}

// UpdatePost applies in to the post if ownerID owns it.
func (m *memory) UpdatePost(ctx context.Context, id, ownerID string, in model.PostInput) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.User.ID != ownerID {
		return nil, ErrNotFound
	}
	p.Apply(in)
	p.UpdatedAt = model.Now()
	m.posts[id] = p
	return &p, nil
}

// DeletePost removes the post if ownerID owns it and returns the removed copy.
func (m *memory) DeletePost(ctx context.Context, id, ownerID string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.User.ID != ownerID {
		return nil, ErrNotFound
	}
	delete(m.posts, id)
	return &p, nil
}

// Ping always succeeds; there is nothing to reach.
func (m *memory) Ping(ctx context.Context) error { return nil }

func (m *memory) Close() error { return nil }
