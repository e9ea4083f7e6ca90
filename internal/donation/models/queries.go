package models

import (
	"slices"

	id "givetrack/pkg/domain"
)

// Available returns donations no partner has taken yet.
func Available(donations []*Donation) []*Donation {
	return filter(donations, (*Donation).IsAvailable)
}

// ActiveFor returns the partner's Assigned and In Progress donations.
func ActiveFor(donations []*Donation, partner id.UserID) []*Donation {
	return filter(donations, func(d *Donation) bool {
		return d.IsAssignedTo(partner) && d.Status.In(StatusAssigned, StatusInProgress)
	})
}

// HistoryFor returns the partner's finished donations.
func HistoryFor(donations []*Donation, partner id.UserID) []*Donation {
	return filter(donations, func(d *Donation) bool {
		return d.IsAssignedTo(partner) && d.Status.In(StatusCompleted, StatusRejected, StatusReceived)
	})
}

// DonorHistory returns every donation matching the account by any of the
// three match rules. Each donation appears once.
func DonorHistory(donations []*Donation, account Account) []*Donation {
	return filter(donations, func(d *Donation) bool { return d.BelongsTo(account) })
}

// Tasks groups the partner's three queues.
type Tasks struct {
	Available []*Donation
	Active    []*Donation
	History   []*Donation
}

func TasksFor(donations []*Donation, partner id.UserID) Tasks {
	return Tasks{
		Available: Available(donations),
		Active:    ActiveFor(donations, partner),
		History:   HistoryFor(donations, partner),
	}
}

// Metrics are the admin dashboard counters.
type Metrics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

func ComputeMetrics(donations []*Donation, completed CompletedSet) Metrics {
	m := Metrics{Total: len(donations)}
	for _, d := range donations {
		switch {
		case d.Status.IsPending():
			m.Pending++
		case completed.Contains(d.Status):
			m.Completed++
		}
	}
	return m
}

// SortNewestFirst orders donations by submission time, newest first. Ties
// keep their input order.
func SortNewestFirst(donations []*Donation) {
	slices.SortStableFunc(donations, func(a, b *Donation) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

func filter(donations []*Donation, keep func(*Donation) bool) []*Donation {
	out := make([]*Donation, 0)
	for _, d := range donations {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
