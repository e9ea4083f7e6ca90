package models

import "strings"

// Status is the stored workflow status. Stored values are compared
// case-insensitively and the empty string means Pending.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusRejected   Status = "Rejected"
	StatusReceived   Status = "Received"
)

// Is compares case-insensitively, treating an empty status as Pending.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(s.normalized(), string(other))
}

// IsPending reports whether the donation has not been picked up by anyone.
func (s Status) IsPending() bool {
	return s.Is(StatusPending)
}

// Canonical returns the canonical spelling for known statuses and the
// trimmed input otherwise.
func (s Status) Canonical() Status {
	for _, known := range []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusRejected, StatusReceived} {
		if s.Is(known) {
			return known
		}
	}
	return Status(strings.TrimSpace(string(s)))
}

// In reports whether s matches any of the given statuses.
func (s Status) In(statuses ...Status) bool {
	for _, other := range statuses {
		if s.Is(other) {
			return true
		}
	}
	return false
}

func (s Status) normalized() string {
	v := strings.TrimSpace(string(s))
	if v == "" {
		return string(StatusPending)
	}
	return v
}

// StatusClass is the display style every view renders a status with.
type StatusClass string

const (
	ClassPending   StatusClass = "pending"
	ClassCompleted StatusClass = "completed"
	ClassRejected  StatusClass = "rejected"
)

var (
	completedSynonyms = []string{"received", "confirmed", "completed"}
	rejectedSynonyms  = []string{"rejected", "cancelled"}
)

// Classify maps a stored status to its display class. It is the only place
// this mapping exists; every response that carries a donation uses it.
func Classify(status Status) StatusClass {
	v := strings.ToLower(strings.TrimSpace(string(status)))
	switch {
	case contains(completedSynonyms, v):
		return ClassCompleted
	case contains(rejectedSynonyms, v):
		return ClassRejected
	default:
		return ClassPending
	}
}

// CompletedSet is the configurable synonym set counted as completed in admin
// metrics. Matching is case-insensitive.
type CompletedSet []string

// DefaultCompletedSet mirrors the completed display synonyms.
func DefaultCompletedSet() CompletedSet {
	return append(CompletedSet(nil), completedSynonyms...)
}

func (c CompletedSet) Contains(status Status) bool {
	v := strings.TrimSpace(string(status))
	for _, s := range c {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
