package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/email"
	"givetrack/pkg/platform/sentinel"
	txcontext "givetrack/pkg/platform/tx"
)

// Postgres stores profiles in the profiles table. Email lookups go through
// the lower(email) index.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const profileColumns = `uid, display_name, email, role, created_at, updated_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) conn(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO profiles (` + profileColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(p.UID), p.DisplayName, p.Email, string(p.Role), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("profile %s: %w", p.UID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, uid id.UserID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE uid = $1`
	p, err := scanProfile(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(uid)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *Postgres) FindByEmail(ctx context.Context, address string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE lower(email) = $1 ORDER BY created_at ASC LIMIT 1`
	p, err := scanProfile(s.conn(ctx).QueryRowContext(ctx, query, email.Normalize(address)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile with email: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile by email: %w", err)
	}
	return p, nil
}

func (s *Postgres) ListByRole(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY display_name, email`
	rows, err := s.conn(ctx).QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func (s *Postgres) Execute(ctx context.Context, uid id.UserID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	var result *models.Profile
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + profileColumns + ` FROM profiles WHERE uid = $1 FOR UPDATE`
		p, err := scanProfile(tx.QueryRowContext(ctx, query, uuid.UUID(uid)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock profile: %w", err)
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		update := `UPDATE profiles SET display_name = $2, role = $3, updated_at = $4 WHERE uid = $1`
		if _, err := tx.ExecContext(ctx, update, uuid.UUID(p.UID), p.DisplayName, string(p.Role), p.UpdatedAt); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var p models.Profile
	var uid uuid.UUID
	var role string
	if err := row.Scan(&uid, &p.DisplayName, &p.Email, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UID = id.UserID(uid)
	p.Role = models.Role(role)
	return &p, nil
}
