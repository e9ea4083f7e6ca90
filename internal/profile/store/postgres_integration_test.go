//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givetrack/internal/platform/postgres"
	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg    *containers.Postgres
	store *Postgres
	ctx   context.Context
	now   time.Time
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.StartPostgres(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE profiles`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestRoundTripAndEmailLookup() {
	p, err := models.NewProfile(id.NewUserID(), "Mixed.Case@Example.com", "Mixed", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, p))
	s.ErrorIs(s.store.Create(s.ctx, p), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByEmail(s.ctx, "MIXED.case@example.COM")
	s.Require().NoError(err)
	s.Equal(p.UID, found.UID)
	s.True(p.CreatedAt.Equal(found.CreatedAt))

	_, err = s.store.FindByEmail(s.ctx, "missing@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestExecuteAndListByRole() {
	p, err := models.NewProfile(id.NewUserID(), "pat@example.com", "Pat", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, p))

	later := s.now.Add(time.Hour)
	updated, err := s.store.Execute(s.ctx, p.UID, (*models.Profile).CanApply, func(p *models.Profile) { p.ApplyApplication(later) })
	s.Require().NoError(err)
	s.Equal(models.RolePendingDelivery, updated.Role)

	applicants, err := s.store.ListByRole(s.ctx, models.RolePendingDelivery)
	s.Require().NoError(err)
	s.Require().Len(applicants, 1)
	s.Equal(p.UID, applicants[0].UID)

	_, err = s.store.Execute(s.ctx, p.UID, (*models.Profile).CanApply, func(*models.Profile) {})
	s.Error(err)
	stored, err := s.store.FindByID(s.ctx, p.UID)
	s.Require().NoError(err)
	s.Equal(models.RolePendingDelivery, stored.Role)
}
