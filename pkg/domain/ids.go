// Package domain holds typed identifiers shared across modules.
//
// IDs are UUID-backed distinct types so a donation key can never be passed
// where a user identity is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "givetrack/pkg/domain-errors"
)

type (
	// UserID identifies an account issued by the identity adapter. Profiles,
	// assignments and live locations are all keyed by it.
	UserID uuid.UUID
	// DonationID is the store-generated key of a donation record.
	DonationID uuid.UUID
	// SessionID identifies one signed-in session.
	SessionID uuid.UUID
)

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewDonationID() DonationID { return DonationID(uuid.New()) }
func NewSessionID() SessionID   { return SessionID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DonationID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation id")
	return DonationID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

// Text marshaling keeps IDs readable in JSON bodies, logs and audit records.
// An empty string decodes to the nil ID.

func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DonationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = UserID(u)
	return err
}

func (id *DonationID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = DonationID(u)
	return err
}

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = SessionID(u)
	return err
}

func unmarshalUUID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id")
	}
	return u, nil
}
