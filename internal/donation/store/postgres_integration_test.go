//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givetrack/internal/donation/models"
	"givetrack/internal/platform/postgres"
	id "givetrack/pkg/domain"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg    *containers.Postgres
	store *Postgres
	ctx   context.Context
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.StartPostgres(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE donations`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) newDonation() *models.Donation {
	lat, lng := 51.5, -0.12
	d, err := models.NewDonation(id.NewDonationID(), models.Submission{
		Category:  "Clothes",
		Quantity:  "2 boxes",
		Name:      "Dee",
		Phone:     "555-0101",
		Email:     "dee@example.com",
		Address:   "2 High St",
		Latitude:  &lat,
		Longitude: &lng,
	}, nil, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))
	return d
}

func (s *PostgresSuite) TestRoundTrip() {
	d := s.newDonation()
	found, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Category, found.Category)
	s.Equal(d.Quantity, found.Quantity)
	s.Equal(*d.Latitude, *found.Latitude)
	s.Equal(*d.Longitude, *found.Longitude)
	s.True(found.Status.IsPending())
	s.True(d.Timestamp.Equal(found.Timestamp))

	_, err = s.store.FindByID(s.ctx, id.NewDonationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestExecuteWritesOnlyWorkflowColumns() {
	d := s.newDonation()
	partner := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	updated, err := s.store.Execute(s.ctx, d.ID,
		func(d *models.Donation) error { return d.CanAssign() },
		func(d *models.Donation) {
			d.ApplyAssignment(partner, partner, now)
			d.Name = "ignored"
		},
	)
	s.Require().NoError(err)
	s.Equal(models.StatusAssigned, updated.Status)

	found, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal("Dee", found.Name)
	s.Equal(partner, found.AssignedTo)

	byPartner, err := s.store.ListByPartner(s.ctx, partner)
	s.Require().NoError(err)
	s.Len(byPartner, 1)

	available, err := s.store.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Empty(available)
}

func (s *PostgresSuite) TestConcurrentAcceptHasOneWinner() {
	d := s.newDonation()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			partner := id.NewUserID()
			_, err := s.store.Execute(s.ctx, d.ID,
				func(d *models.Donation) error { return d.CanAssign() },
				func(d *models.Donation) { d.ApplyAssignment(partner, partner, time.Now()) },
			)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)
}

func (s *PostgresSuite) TestListByDonor() {
	d := s.newDonation()
	userID := id.NewUserID()
	linked, err := models.NewDonation(id.NewDonationID(), models.Submission{
		Category: "Food", Name: "Dee", Phone: "1",
	}, &models.Account{UserID: userID, Email: "other@example.com"}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, linked))

	got, err := s.store.ListByDonor(s.ctx, models.Account{Email: "DEE@example.com"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(d.ID, got[0].ID)

	got, err = s.store.ListByDonor(s.ctx, models.Account{UserID: userID})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(linked.ID, got[0].ID)
}

func (s *PostgresSuite) TestSecondDeliveryInProgressIsRefused() {
	partner := id.NewUserID()
	now := time.Now().UTC()
	start := func(d *models.Donation) error {
		_, err := s.store.Execute(s.ctx, d.ID,
			func(d *models.Donation) error { return d.CanAssign() },
			func(d *models.Donation) { d.ApplyAssignment(partner, partner, now) },
		)
		s.Require().NoError(err)
		_, err = s.store.Execute(s.ctx, d.ID,
			func(d *models.Donation) error { return d.CanStart(partner) },
			func(d *models.Donation) { d.ApplyStart(now) },
		)
		return err
	}

	first, second := s.newDonation(), s.newDonation()
	s.Require().NoError(start(first))
	s.ErrorIs(start(second), sentinel.ErrInvalidState)

	stored, err := s.store.FindByID(s.ctx, second.ID)
	s.Require().NoError(err)
	s.True(stored.Status.Is(models.StatusAssigned))

	active, err := s.store.FindInProgressByPartner(s.ctx, partner)
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)
}
