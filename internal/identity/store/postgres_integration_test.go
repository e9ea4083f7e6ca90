//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givetrack/internal/identity/models"
	"givetrack/internal/platform/postgres"
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
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE accounts`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestPasswordAccountRoundTrip() {
	a, err := models.NewPasswordAccount("Pat@Example.com", "Pat", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, a))

	dup, err := models.NewPasswordAccount("PAT@example.com", "", "hash", s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByEmail(s.ctx, "pat@EXAMPLE.com")
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.Equal("hash", found.PasswordHash)
	s.Empty(found.Subject)
}

func (s *PostgresSuite) TestFederatedAccountAndUpdate() {
	a, err := models.NewFederatedAccount(models.FederatedIdentity{
		Provider: models.ProviderGoogle, Subject: "sub-1", Email: "fed@example.com", DisplayName: "Fed",
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, a))

	found, err := s.store.FindBySubject(s.ctx, models.ProviderGoogle, "sub-1")
	s.Require().NoError(err)
	s.False(found.HasPassword())

	updated, err := s.store.Update(s.ctx, a.ID, func(a *models.Account) {
		a.DisplayName = "Renamed"
		a.PasswordHash = "new-hash"
	})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.DisplayName)

	stored, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("new-hash", stored.PasswordHash)
}
