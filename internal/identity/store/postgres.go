package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givetrack/internal/identity/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/email"
	"givetrack/pkg/platform/sentinel"
	txcontext "givetrack/pkg/platform/tx"
)

// Postgres stores accounts in the accounts table. Uniqueness is enforced by
// the lower(email) and (provider, subject) indexes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `id, email, display_name, password_hash, provider, subject, created_at`

func (s *Postgres) Create(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.DisplayName, nullString(a.PasswordHash),
		string(a.Provider), nullString(a.Subject), a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("account %s: %w", a.Email, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, uid id.UserID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.findOne(ctx, query, "account "+uid.String(), uuid.UUID(uid))
}

func (s *Postgres) FindByEmail(ctx context.Context, address string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = $1`
	return s.findOne(ctx, query, "account with email", email.Normalize(address))
}

func (s *Postgres) FindBySubject(ctx context.Context, provider models.Provider, subject string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider = $1 AND subject = $2`
	return s.findOne(ctx, query, "account "+string(provider)+"/"+subject, string(provider), subject)
}

func (s *Postgres) findOne(ctx context.Context, query, what string, args ...any) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

func (s *Postgres) Update(ctx context.Context, uid id.UserID, mutate func(*models.Account)) (*models.Account, error) {
	var result *models.Account
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
		a, err := scanAccount(tx.QueryRowContext(ctx, query, uuid.UUID(uid)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock account: %w", err)
		}
		mutate(a)

		update := `UPDATE accounts SET display_name = $2, password_hash = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, uuid.UUID(a.ID), a.DisplayName, nullString(a.PasswordHash)); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		result = a
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

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	var uid uuid.UUID
	var provider string
	var hash, subject sql.NullString
	if err := row.Scan(&uid, &a.Email, &a.DisplayName, &hash, &provider, &subject, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = id.UserID(uid)
	a.Provider = models.Provider(provider)
	a.PasswordHash = hash.String
	a.Subject = subject.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
