package models

import (
	"strings"
	"time"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

// Donation is a pickup request and its workflow state.
//
// Invariants:
//   - AssignedTo is set iff the donation left Pending through an assignment
//     (Assigned, In Progress, Completed, and Rejected or Received when they
//     were reached from Assigned)
//   - each *Time field is stamped once, by the transition that names it
//   - donations are never deleted
type Donation struct {
	ID        id.DonationID
	Category  string
	Quantity  string
	Name      string
	Phone     string
	Email     string
	Address   string
	Latitude  *float64
	Longitude *float64
	Message   string
	Timestamp time.Time

	// Linked account, present only when submitted while signed in.
	UserID          id.UserID
	LinkedUserEmail string

	Status        Status
	AssignedTo    id.UserID
	AssignedBy    id.UserID
	AssignedTime  *time.Time
	StartTime     *time.Time
	CompletedTime *time.Time
	RejectedTime  *time.Time
	ReceivedTime  *time.Time
}

// Submission is the donor-provided part of a donation.
type Submission struct {
	Category  string
	Quantity  string
	Name      string
	Phone     string
	Email     string
	Address   string
	Latitude  *float64
	Longitude *float64
	Message   string
}

// Account links a submission to the signed-in donor, if any.
type Account struct {
	UserID id.UserID
	Email  string
}

// NewDonation validates a submission and builds a Pending donation.
func NewDonation(donationID id.DonationID, sub Submission, account *Account, now time.Time) (*Donation, error) {
	sub.Category = strings.TrimSpace(sub.Category)
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Email = email.Normalize(sub.Email)
	sub.Address = strings.TrimSpace(sub.Address)

	switch {
	case sub.Category == "":
		return nil, dErrors.New(dErrors.CodeValidation, "category is required")
	case sub.Name == "":
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	case sub.Phone == "" && sub.Email == "":
		return nil, dErrors.New(dErrors.CodeValidation, "a phone number or email is required")
	case sub.Email != "" && !email.Valid(sub.Email):
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	case (sub.Latitude == nil) != (sub.Longitude == nil):
		return nil, dErrors.New(dErrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if sub.Latitude != nil {
		if *sub.Latitude < -90 || *sub.Latitude > 90 || *sub.Longitude < -180 || *sub.Longitude > 180 {
			return nil, dErrors.New(dErrors.CodeValidation, "coordinates are out of range")
		}
	}

	d := &Donation{
		ID:        donationID,
		Category:  sub.Category,
		Quantity:  strings.TrimSpace(sub.Quantity),
		Name:      sub.Name,
		Phone:     sub.Phone,
		Email:     sub.Email,
		Address:   sub.Address,
		Latitude:  sub.Latitude,
		Longitude: sub.Longitude,
		Message:   strings.TrimSpace(sub.Message),
		Timestamp: now,
		Status:    StatusPending,
	}
	if account != nil && !account.UserID.IsNil() {
		d.UserID = account.UserID
		d.LinkedUserEmail = email.Normalize(account.Email)
	}
	return d, nil
}

// IsAvailable reports whether any partner may still accept the donation.
func (d *Donation) IsAvailable() bool {
	return d.AssignedTo.IsNil() && d.Status.IsPending()
}

// IsAssignedTo reports whether partner holds the assignment.
func (d *Donation) IsAssignedTo(partner id.UserID) bool {
	return !partner.IsNil() && d.AssignedTo == partner
}

// BelongsTo reports whether the donation is part of the account's donor
// history: by contact email, by linked account id, or by linked account email.
func (d *Donation) BelongsTo(account Account) bool {
	if !account.UserID.IsNil() && d.UserID == account.UserID {
		return true
	}
	return email.Equal(d.Email, account.Email) || email.Equal(d.LinkedUserEmail, account.Email)
}

// CanAssign checks the Pending -> Assigned precondition shared by
// self-accept and admin assignment.
func (d *Donation) CanAssign() error {
	if !d.IsAvailable() {
		return dErrors.New(dErrors.CodeInvariantViolation, "donation is no longer available")
	}
	return nil
}

func (d *Donation) ApplyAssignment(partner, assignedBy id.UserID, now time.Time) {
	d.Status = StatusAssigned
	d.AssignedTo = partner
	d.AssignedBy = assignedBy
	d.AssignedTime = &now
}

// CanStart checks that partner holds the assignment and the donation is Assigned.
func (d *Donation) CanStart(partner id.UserID) error {
	if !d.IsAssignedTo(partner) {
		return dErrors.New(dErrors.CodeForbidden, "donation is not assigned to you")
	}
	if !d.Status.Is(StatusAssigned) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only assigned donations can be started")
	}
	return nil
}

func (d *Donation) ApplyStart(now time.Time) {
	d.Status = StatusInProgress
	d.StartTime = &now
}

// CanComplete checks that partner holds the assignment and the donation is In Progress.
func (d *Donation) CanComplete(partner id.UserID) error {
	if !d.IsAssignedTo(partner) {
		return dErrors.New(dErrors.CodeForbidden, "donation is not assigned to you")
	}
	if !d.Status.Is(StatusInProgress) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only in-progress donations can be completed")
	}
	return nil
}

func (d *Donation) ApplyCompletion(now time.Time) {
	d.Status = StatusCompleted
	d.CompletedTime = &now
}

// CanReject allows rejection from Pending or Assigned.
func (d *Donation) CanReject() error {
	if !d.Status.In(StatusPending, StatusAssigned) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending or assigned donations can be rejected")
	}
	return nil
}

func (d *Donation) ApplyRejection(now time.Time) {
	d.Status = StatusRejected
	d.RejectedTime = &now
}

// CanReceive allows an administrator to confirm a drop-off from Pending or Assigned.
func (d *Donation) CanReceive() error {
	if !d.Status.In(StatusPending, StatusAssigned) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending or assigned donations can be marked received")
	}
	return nil
}

func (d *Donation) ApplyReceipt(now time.Time) {
	d.Status = StatusReceived
	d.ReceivedTime = &now
}

// Class is the display class of the current status.
func (d *Donation) Class() StatusClass {
	return Classify(d.Status)
}

// Clone returns a deep copy so callers cannot mutate store state.
func (d *Donation) Clone() *Donation {
	c := *d
	c.Latitude = cloneFloat(d.Latitude)
	c.Longitude = cloneFloat(d.Longitude)
	c.AssignedTime = cloneTime(d.AssignedTime)
	c.StartTime = cloneTime(d.StartTime)
	c.CompletedTime = cloneTime(d.CompletedTime)
	c.RejectedTime = cloneTime(d.RejectedTime)
	c.ReceivedTime = cloneTime(d.ReceivedTime)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
