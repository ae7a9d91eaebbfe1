// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded schema through goose.
//   - Owner-scoped post queries; update/delete use RETURNING so the match and
//     the write are one statement.
//
// Timestamps are stored as fixed-width RFC3339 text (millisecond precision, UTC)
// so they sort lexically.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/edpaging/paging-log/internal/model"
	"github.com/edpaging/paging-log/internal/store/migrations"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	sqlitePostCols = `id, user_id, bed_number, for_ed_provider, provider_name, provider_group,
	                  status, notes, created_at, updated_at`
	sqliteUserCols = `id, username, password_hash, first_name, last_name, location, created_at`
)

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	// Ensure directory exists for ./data/paging_log.db, etc.
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	fsys, err := migrations.SQLite()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db, goose.DialectSQLite3, fsys); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// ------------------------------- users --------------------------------------

func (s *sqliteStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+sqliteUserCols+`) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName, string(u.Location),
		formatSQLiteTime(u.CreatedAt))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *sqliteStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserCols+` FROM users WHERE id=?`, id)
	return scanSQLiteUser(row)
}

func (s *sqliteStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserCols+` FROM users WHERE lower(username)=lower(?)`, username)
	return scanSQLiteUser(row)
}

// ------------------------------- posts --------------------------------------

func (s *sqliteStore) ListPosts(ctx context.Context, ownerID string) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT p.id, p.user_id, p.bed_number, p.for_ed_provider, p.provider_name, p.provider_group,
               p.status, p.notes, p.created_at, p.updated_at, COALESCE(u.username, '')
        FROM posts p
        LEFT JOIN users u ON u.id = p.user_id
        WHERE p.user_id=?
        ORDER BY p.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []model.Post{}
	for rows.Next() {
		p, err := scanSQLitePost(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreatePost(ctx context.Context, p *model.Post) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (`+sqlitePostCols+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.User.ID, p.BedNumber, p.ForEdProvider, p.ProviderName, p.ProviderGroup,
		string(p.Status), p.Notes, formatSQLiteTime(p.CreatedAt), formatSQLiteTime(p.UpdatedAt))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return ErrUnknownOwner
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *sqliteStore) UpdatePost(ctx context.Context, id, ownerID string, in model.PostInput) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
        UPDATE posts
        SET bed_number=?, for_ed_provider=?, provider_name=?, provider_group=?,
            status=?, notes=?, updated_at=?
        WHERE id=? AND user_id=?
        RETURNING `+sqlitePostCols,
		in.BedNumber, in.ForEdProvider, in.ProviderName, in.ProviderGroup,
		string(in.Status), in.Notes, formatSQLiteTime(model.Now()), id, ownerID)
	return scanSQLitePost(row, false)
}

func (s *sqliteStore) DeletePost(ctx context.Context, id, ownerID string) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM posts WHERE id=? AND user_id=? RETURNING `+sqlitePostCols, id, ownerID)
	return scanSQLitePost(row, false)
}

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Close() error { return s.db.Close() }

// ------------------------------- scanning -----------------------------------

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*model.User, error) {
	var u model.User
	var location, created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &location, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Location = model.Location(location)
	u.CreatedAt = parseSQLiteTime(created)
	return &u, nil
}

func scanSQLitePost(row rowScanner, withUsername bool) (*model.Post, error) {
	var p model.Post
	var status, created, updated string
	dest := []any{&p.ID, &p.User.ID, &p.BedNumber, &p.ForEdProvider, &p.ProviderName, &p.ProviderGroup,
		&status, &p.Notes, &created, &updated}
	if withUsername {
		dest = append(dest, &p.User.Username)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.Status = model.Status(status)
	p.CreatedAt = parseSQLiteTime(created)
	p.UpdatedAt = parseSQLiteTime(updated)
	return &p, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseSQLiteTime parses stored timestamps; on error returns zero time.
func parseSQLiteTime(s string) time.Time {
	t, _ := time.Parse(sqliteTimeLayout, s)
	return t.UTC()
}
