// internal/store/store.go
//
// Persistence interfaces for users and posts, plus driver selection.
// Implementations: memory (this package), sqlite, postgres, mongo.
//
// Every post mutation is owner-scoped: the {id, owner} pair is matched in a
// single atomic operation and a miss is reported as ErrNotFound whether the
// post is absent or belongs to someone else.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/edpaging/paging-log/internal/config"
	"github.com/edpaging/paging-log/internal/model"
)

var (
	// ErrNotFound is returned when no row/document matches the query.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned by CreateUser on a duplicate username.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUnknownOwner is returned by CreatePost when the owner has no user record.
	ErrUnknownOwner = errors.New("unknown owner")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	// UserByUsername matches case-insensitively.
	UserByUsername(ctx context.Context, username string) (*model.User, error)
}

// PostStore persists posts. All reads and writes are scoped to ownerID.
type PostStore interface {
	// ListPosts returns the owner's posts newest first with User.Username filled.
	ListPosts(ctx context.Context, ownerID string) ([]model.Post, error)
	// CreatePost fails with ErrUnknownOwner if p.User.ID names no user.
	CreatePost(ctx context.Context, p *model.Post) error
	// UpdatePost applies in to the post matching {id, ownerID} and returns the result.
	UpdatePost(ctx context.Context, id, ownerID string, in model.PostInput) (*model.Post, error)
	// DeletePost removes the post matching {id, ownerID} and returns what was removed.
	DeletePost(ctx context.Context, id, ownerID string) (*model.Post, error)
}

// Store is the full persistence surface used by the HTTP server.
type Store interface {
	UserStore
	PostStore
	Ping(ctx context.Context) error
	Close() error
}

// Open constructs the store selected by cfg.StoreDriver and applies its schema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("store: unknown driver %q", cfg.StoreDriver)
}
