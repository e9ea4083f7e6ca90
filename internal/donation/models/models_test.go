package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
)

func TestClassifyIsCaseInsensitiveOverSynonymSets(t *testing.T) {
	cases := map[StatusClass][]string{
		ClassCompleted: {"received", "confirmed", "completed"},
		ClassRejected:  {"rejected", "cancelled"},
		ClassPending:   {"", "pending", "assigned", "in progress", "unknown"},
	}
	for want, statuses := range cases {
		for _, s := range statuses {
			for _, variant := range []string{s, strings.ToUpper(s), upperFirst(s), "  " + s + " "} {
				assert.Equal(t, want, Classify(Status(variant)), "status %q", variant)
			}
		}
	}
}

func TestStatusCompare(t *testing.T) {
	assert.True(t, Status("").IsPending())
	assert.True(t, Status("PENDING").IsPending())
	assert.True(t, Status("in progress").Is(StatusInProgress))
	assert.Equal(t, StatusInProgress, Status("IN PROGRESS").Canonical())
	assert.Equal(t, StatusPending, Status("").Canonical())
	assert.Equal(t, Status("Confirmed"), Status(" Confirmed ").Canonical())
}

func TestCompletedSet(t *testing.T) {
	set := CompletedSet{"Received", "done"}
	assert.True(t, set.Contains("received"))
	assert.True(t, set.Contains("DONE"))
	assert.False(t, set.Contains("completed"))
	assert.True(t, DefaultCompletedSet().Contains("Confirmed"))
}

type DonationSuite struct {
	suite.Suite
	now     time.Time
	partner id.UserID
	admin   id.UserID
}

func TestDonationSuite(t *testing.T) {
	suite.Run(t, new(DonationSuite))
}

func (s *DonationSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.partner = id.NewUserID()
	s.admin = id.NewUserID()
}

func (s *DonationSuite) newDonation() *Donation {
	d, err := NewDonation(id.NewDonationID(), Submission{
		Category: "Clothes",
		Quantity: "3 bags",
		Name:     "Ana",
		Phone:    "555-0100",
		Address:  "1 Main St",
	}, nil, s.now)
	s.Require().NoError(err)
	return d
}

func (s *DonationSuite) TestNewDonation() {
	s.Run("stamps pending status and timestamp", func() {
		d := s.newDonation()
		s.Equal(StatusPending, d.Status)
		s.Equal(s.now, d.Timestamp)
		s.True(d.IsAvailable())
		s.True(d.UserID.IsNil())
	})

	s.Run("links the signed-in account", func() {
		userID := id.NewUserID()
		d, err := NewDonation(id.NewDonationID(), Submission{
			Category: "Food", Name: "Ben", Email: "Ben@Example.com",
		}, &Account{UserID: userID, Email: "Ben@Example.com"}, s.now)
		s.Require().NoError(err)
		s.Equal(userID, d.UserID)
		s.Equal("ben@example.com", d.LinkedUserEmail)
		s.Equal("ben@example.com", d.Email)
	})

	s.Run("validation failures", func() {
		lat := 10.0
		cases := map[string]Submission{
			"missing category": {Name: "A", Phone: "1"},
			"missing name":     {Category: "Food", Phone: "1"},
			"missing contact":  {Category: "Food", Name: "A"},
			"bad email":        {Category: "Food", Name: "A", Email: "not-an-email"},
			"lat without lng":  {Category: "Food", Name: "A", Phone: "1", Latitude: &lat},
		}
		for name, sub := range cases {
			_, err := NewDonation(id.NewDonationID(), sub, nil, s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), name)
		}
	})
}

func (s *DonationSuite) TestDeliveryChain() {
	d := s.newDonation()

	s.Require().NoError(d.CanAssign())
	d.ApplyAssignment(s.partner, s.partner, s.now)
	s.Equal(StatusAssigned, d.Status)
	s.Equal(s.partner, d.AssignedTo)
	s.Equal(s.now, *d.AssignedTime)
	s.False(d.IsAvailable())

	s.True(dErrors.HasCode(d.CanAssign(), dErrors.CodeInvariantViolation), "second assignment refused")
	s.True(dErrors.HasCode(d.CanComplete(s.partner), dErrors.CodeInvariantViolation), "cannot skip start")
	s.True(dErrors.HasCode(d.CanStart(id.NewUserID()), dErrors.CodeForbidden), "other partner cannot start")

	started := s.now.Add(time.Minute)
	s.Require().NoError(d.CanStart(s.partner))
	d.ApplyStart(started)
	s.Equal(StatusInProgress, d.Status)
	s.Equal(started, *d.StartTime)

	s.True(dErrors.HasCode(d.CanReject(), dErrors.CodeInvariantViolation), "in progress cannot be rejected")

	done := started.Add(time.Hour)
	s.Require().NoError(d.CanComplete(s.partner))
	d.ApplyCompletion(done)
	s.Equal(StatusCompleted, d.Status)
	s.Equal(done, *d.CompletedTime)
	s.Equal(ClassCompleted, d.Class())
}

func (s *DonationSuite) TestAdminTerminalTransitions() {
	s.Run("reject from assigned keeps the assignment", func() {
		d := s.newDonation()
		d.ApplyAssignment(s.partner, s.admin, s.now)
		s.Require().NoError(d.CanReject())
		d.ApplyRejection(s.now)
		s.Equal(StatusRejected, d.Status)
		s.Equal(s.partner, d.AssignedTo)
		s.Equal(ClassRejected, d.Class())
	})

	s.Run("receive from pending", func() {
		d := s.newDonation()
		s.Require().NoError(d.CanReceive())
		d.ApplyReceipt(s.now)
		s.Equal(StatusReceived, d.Status)
		s.NotNil(d.ReceivedTime)
		s.Error(d.CanReceive())
		s.Error(d.CanReject())
	})

	s.Run("lower-case stored statuses are honoured", func() {
		d := s.newDonation()
		d.Status = "assigned"
		d.AssignedTo = s.partner
		s.NoError(d.CanStart(s.partner))
	})
}

func (s *DonationSuite) TestCloneIsDeep() {
	d := s.newDonation()
	d.ApplyAssignment(s.partner, s.partner, s.now)
	c := d.Clone()
	*c.AssignedTime = s.now.Add(time.Hour)
	s.Equal(s.now, *d.AssignedTime)
}

func TestQueries(t *testing.T) {
	now := time.Now()
	p1, p2 := id.NewUserID(), id.NewUserID()
	mk := func(status Status, assigned id.UserID, ts time.Duration) *Donation {
		return &Donation{ID: id.NewDonationID(), Status: status, AssignedTo: assigned, Timestamp: now.Add(ts)}
	}
	open := mk("", id.UserID{}, 0)
	openLower := mk("pending", id.UserID{}, time.Second)
	assigned := mk(StatusAssigned, p1, 2*time.Second)
	moving := mk("in progress", p1, 3*time.Second)
	done := mk(StatusCompleted, p1, 4*time.Second)
	rejected := mk(StatusRejected, p1, 5*time.Second)
	received := mk("received", p1, 6*time.Second)
	other := mk(StatusAssigned, p2, 7*time.Second)
	all := []*Donation{open, openLower, assigned, moving, done, rejected, received, other}

	tasks := TasksFor(all, p1)
	assert.ElementsMatch(t, []*Donation{open, openLower}, tasks.Available)
	assert.ElementsMatch(t, []*Donation{assigned, moving}, tasks.Active)
	assert.ElementsMatch(t, []*Donation{done, rejected, received}, tasks.History)
	assert.Empty(t, HistoryFor(all, p2))

	m := ComputeMetrics(all, DefaultCompletedSet())
	assert.Equal(t, Metrics{Total: 8, Pending: 2, Completed: 2}, m)

	SortNewestFirst(all)
	assert.Equal(t, other, all[0])
	assert.Equal(t, open, all[len(all)-1])
}

func TestDonorHistoryMatchesAnyRule(t *testing.T) {
	userID := id.NewUserID()
	account := Account{UserID: userID, Email: "a@b.com"}

	byEmail := &Donation{ID: id.NewDonationID(), Email: "A@B.com"}
	byUserID := &Donation{ID: id.NewDonationID(), UserID: userID, Email: "other@b.com"}
	byLinked := &Donation{ID: id.NewDonationID(), LinkedUserEmail: "a@b.com"}
	allThree := &Donation{ID: id.NewDonationID(), Email: "a@b.com", UserID: userID, LinkedUserEmail: "a@b.com"}
	stranger := &Donation{ID: id.NewDonationID(), Email: "x@y.com"}
	anonymous := &Donation{ID: id.NewDonationID()}

	got := DonorHistory([]*Donation{byEmail, byUserID, byLinked, allThree, stranger, anonymous}, account)
	require.Len(t, got, 4)
	assert.ElementsMatch(t, []*Donation{byEmail, byUserID, byLinked, allThree}, got)

	assert.Empty(t, DonorHistory([]*Donation{anonymous}, Account{}), "empty account email never matches")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
