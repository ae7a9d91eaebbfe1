// internal/store/postgres.go
//
// Postgres implementation of Store on a pgx connection pool.
// Responsibilities:
//   - Applying the embedded schema through goose over a short-lived database/sql handle.
//   - Serving all queries from a pgxpool.Pool.
//   - Mapping constraint violations to store sentinels (unique username, unknown post owner).
//   - Owner-scoped update/delete as single UPDATE/DELETE ... RETURNING statements.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/edpaging/paging-log/internal/model"
	"github.com/edpaging/paging-log/internal/store/migrations"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const (
	pgPostCols = `id, user_id, bed_number, for_ed_provider, provider_name, provider_group,
	              status, notes, created_at, updated_at`
	pgUserCols = `id, username, password_hash, first_name, last_name, location, created_at`
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	if err := migratePostgres(ctx, dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresStore{pool: pool}, nil
}

// migratePostgres runs goose over a short-lived database/sql handle.
func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer db.Close()

	fsys, err := migrations.Postgres()
	if err != nil {
		return err
	}
	return migrate(ctx, db, goose.DialectPostgres, fsys)
}

// ------------------------------- users --------------------------------------

func (s *postgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+pgUserCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName, string(u.Location), u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *postgresStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgUserCols+` FROM users WHERE id=$1`, id)
	return scanPGUser(row)
}

func (s *postgresStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgUserCols+` FROM users WHERE lower(username)=lower($1)`, username)
	return scanPGUser(row)
}

// ------------------------------- posts --------------------------------------

func (s *postgresStore) ListPosts(ctx context.Context, ownerID string) ([]model.Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.bed_number, p.for_ed_provider, p.provider_name, p.provider_group,
		       p.status, p.notes, p.created_at, p.updated_at, COALESCE(u.username, '')
		FROM posts p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Post, error) {
		p, err := scanPGPost(row, true)
		if err != nil {
			return model.Post{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

func (s *postgresStore) CreatePost(ctx context.Context, p *model.Post) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (`+pgPostCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.User.ID, p.BedNumber, p.ForEdProvider, p.ProviderName, p.ProviderGroup,
		string(p.Status), p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrUnknownOwner
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *postgresStore) UpdatePost(ctx context.Context, id, ownerID string, in model.PostInput) (*model.Post, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE posts
		SET bed_number = $1, for_ed_provider = $2, provider_name = $3, provider_group = $4,
		    status = $5, notes = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING `+pgPostCols,
		in.BedNumber, in.ForEdProvider, in.ProviderName, in.ProviderGroup,
		string(in.Status), in.Notes, model.Now(), id, ownerID)
	return scanPGPost(row, false)
}

func (s *postgresStore) DeletePost(ctx context.Context, id, ownerID string) (*model.Post, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2 RETURNING `+pgPostCols, id, ownerID)
	return scanPGPost(row, false)
}

func (s *postgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ------------------------------- scanning -----------------------------------

func scanPGUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var location string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &location, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Location = model.Location(location)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanPGPost(row pgx.Row, withUsername bool) (*model.Post, error) {
	var p model.Post
	var status string
	dest := []any{&p.ID, &p.User.ID, &p.BedNumber, &p.ForEdProvider, &p.ProviderName, &p.ProviderGroup,
		&status, &p.Notes, &p.CreatedAt, &p.UpdatedAt}
	if withUsername {
		dest = append(dest, &p.User.Username)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.Status = model.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
