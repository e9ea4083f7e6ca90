package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givetrack/internal/donation/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/email"
	"givetrack/pkg/platform/sentinel"
	txcontext "givetrack/pkg/platform/tx"
)

// Postgres persists donations in the donations table. Transitions lock the
// row with SELECT ... FOR UPDATE and only ever write the workflow columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const donationColumns = `
	id, category, quantity, name, phone, email, address, latitude, longitude,
	message, submitted_at, user_id, linked_user_email, status, assigned_to,
	assigned_by, assigned_at, started_at, completed_at, rejected_at, received_at`

const queryAllOrdering = ` ORDER BY submitted_at ASC, id ASC`

// inProgressConstraint allows one In Progress delivery per partner.
const inProgressConstraint = "donations_one_in_progress_idx"

var (
	pendingStatuses = pq.Array([]string{"", "pending"})
	activeStatuses  = pq.Array([]string{"in progress"})
)

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

func (s *Postgres) Create(ctx context.Context, d *models.Donation) error {
	query := `INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		d.Category,
		d.Quantity,
		d.Name,
		d.Phone,
		d.Email,
		d.Address,
		d.Latitude,
		d.Longitude,
		d.Message,
		d.Timestamp,
		nullUUID(d.UserID),
		nullString(d.LinkedUserEmail),
		string(d.Status),
		nullUUID(d.AssignedTo),
		nullUUID(d.AssignedBy),
		d.AssignedTime,
		d.StartTime,
		d.CompletedTime,
		d.RejectedTime,
		d.ReceivedTime,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("donation %s: %w", d.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	d, err := scanDonation(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(donationID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("donation %s: %w", donationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return d, nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Donation, error) {
	return s.list(ctx, `SELECT `+donationColumns+` FROM donations`+queryAllOrdering)
}

func (s *Postgres) ListAvailable(ctx context.Context) ([]*models.Donation, error) {
	return s.list(ctx, `SELECT `+donationColumns+` FROM donations
		WHERE assigned_to IS NULL AND lower(trim(status)) = ANY($1)`+queryAllOrdering, pendingStatuses)
}

func (s *Postgres) ListByPartner(ctx context.Context, partner id.UserID) ([]*models.Donation, error) {
	return s.list(ctx, `SELECT `+donationColumns+` FROM donations
		WHERE assigned_to = $1`+queryAllOrdering, uuid.UUID(partner))
}

// ListByDonor unions the three donor-history match rules in one query.
func (s *Postgres) ListByDonor(ctx context.Context, account models.Account) ([]*models.Donation, error) {
	var userID any
	if !account.UserID.IsNil() {
		userID = uuid.UUID(account.UserID)
	}
	return s.list(ctx, `SELECT `+donationColumns+` FROM donations
		WHERE ($1::uuid IS NOT NULL AND user_id = $1)
			OR ($2 <> '' AND (lower(email) = $2 OR lower(linked_user_email) = $2))`+queryAllOrdering,
		userID, email.Normalize(account.Email))
}

func (s *Postgres) FindInProgressByPartner(ctx context.Context, partner id.UserID) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations
		WHERE assigned_to = $1 AND lower(trim(status)) = ANY($2)
		LIMIT 1`
	d, err := scanDonation(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(partner), activeStatuses))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no in-progress donation for %s: %w", partner, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find in-progress donation: %w", err)
	}
	return d, nil
}

// Execute locks the row, validates against the stored state and writes the
// workflow columns in the same transaction. A second In Progress delivery
// for one partner violates inProgressConstraint and nothing is written.
func (s *Postgres) Execute(ctx context.Context, donationID id.DonationID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	var result *models.Donation
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1 FOR UPDATE`
		d, err := scanDonation(tx.QueryRowContext(ctx, query, uuid.UUID(donationID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("donation %s: %w", donationID, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock donation: %w", err)
		}
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)

		update := `
			UPDATE donations SET
				status = $2, assigned_to = $3, assigned_by = $4, assigned_at = $5,
				started_at = $6, completed_at = $7, rejected_at = $8, received_at = $9
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update,
			uuid.UUID(d.ID),
			string(d.Status),
			nullUUID(d.AssignedTo),
			nullUUID(d.AssignedBy),
			d.AssignedTime,
			d.StartTime,
			d.CompletedTime,
			d.RejectedTime,
			d.ReceivedTime,
		); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == inProgressConstraint {
				return fmt.Errorf("partner %s already has a delivery in progress: %w", d.AssignedTo, sentinel.ErrInvalidState)
			}
			return fmt.Errorf("update donation: %w", err)
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(row scanner) (*models.Donation, error) {
	var d models.Donation
	var donationID uuid.UUID
	var lat, lng sql.NullFloat64
	var userID, assignedTo, assignedBy uuid.NullUUID
	var linkedEmail sql.NullString
	var status string
	var assignedAt, startedAt, completedAt, rejectedAt, receivedAt sql.NullTime
	if err := row.Scan(
		&donationID, &d.Category, &d.Quantity, &d.Name, &d.Phone, &d.Email, &d.Address,
		&lat, &lng, &d.Message, &d.Timestamp, &userID, &linkedEmail, &status,
		&assignedTo, &assignedBy, &assignedAt, &startedAt, &completedAt, &rejectedAt, &receivedAt,
	); err != nil {
		return nil, err
	}
	d.ID = id.DonationID(donationID)
	d.Status = models.Status(status)
	d.LinkedUserEmail = linkedEmail.String
	if lat.Valid && lng.Valid {
		d.Latitude, d.Longitude = &lat.Float64, &lng.Float64
	}
	if userID.Valid {
		d.UserID = id.UserID(userID.UUID)
	}
	if assignedTo.Valid {
		d.AssignedTo = id.UserID(assignedTo.UUID)
	}
	if assignedBy.Valid {
		d.AssignedBy = id.UserID(assignedBy.UUID)
	}
	d.AssignedTime = timePtr(assignedAt)
	d.StartTime = timePtr(startedAt)
	d.CompletedTime = timePtr(completedAt)
	d.RejectedTime = timePtr(rejectedAt)
	d.ReceivedTime = timePtr(receivedAt)
	return &d, nil
}

func nullUUID(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
