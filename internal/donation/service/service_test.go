package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	donationmetrics "givetrack/internal/donation/metrics"
	"givetrack/internal/donation/models"
	"givetrack/internal/donation/service/mocks"
	"givetrack/internal/donation/store"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/audit/publisher"
	auditmemory "givetrack/pkg/platform/audit/store/memory"
	"givetrack/pkg/testutil"
)

const adminEmail = "admin@givetrack.org"

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *store.InMemory
	partners  *mocks.MockPartnerDirectory
	admins    *mocks.MockAdminChecker
	locations *mocks.MockLocationPublisher
	auditLog  *auditmemory.InMemoryStore
	metrics   *donationmetrics.Metrics
	service   *Service

	now          time.Time
	partnerRoles map[id.UserID]bool
	donor        testutil.Actor
	partner      testutil.Actor
	other        testutil.Actor
	admin        testutil.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewInMemory()
	s.partners = mocks.NewMockPartnerDirectory(s.ctrl)
	s.admins = mocks.NewMockAdminChecker(s.ctrl)
	s.locations = mocks.NewMockLocationPublisher(s.ctrl)
	s.auditLog = auditmemory.NewInMemoryStore()
	s.metrics = donationmetrics.NewWith(prometheus.NewRegistry())
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	s.donor = testutil.Actor{UserID: id.NewUserID(), Email: "dana@example.com"}
	s.partner = testutil.Actor{UserID: id.NewUserID(), Email: "pat@example.com"}
	s.other = testutil.Actor{UserID: id.NewUserID(), Email: "otto@example.com"}
	s.admin = testutil.Actor{UserID: id.NewUserID(), Email: adminEmail}
	s.partnerRoles = map[id.UserID]bool{s.partner.UserID: true, s.other.UserID: true}

	s.partners.EXPECT().IsPartner(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, userID id.UserID) (bool, error) {
			return s.partnerRoles[userID], nil
		}).AnyTimes()
	s.admins.EXPECT().IsAdmin(gomock.Any()).DoAndReturn(
		func(email string) bool { return email == adminEmail }).AnyTimes()

	s.service = New(s.store, s.partners, s.admins, s.locations,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.New(s.auditLog)),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) as(actor testutil.Actor) context.Context {
	return testutil.AtTime(testutil.ActorContext(context.Background(), actor), s.now)
}

func (s *ServiceSuite) submit() *models.Donation {
	d, err := s.service.Submit(s.as(s.donor), models.Submission{
		Category: "Clothes",
		Quantity: "2 bags",
		Name:     "Dana",
		Email:    s.donor.Email,
		Address:  "1 Main St",
	})
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *ServiceSuite) TestSubmitLinksSignedInDonor() {
	d := s.submit()

	s.Equal(models.StatusPending, d.Status)
	s.Equal(s.donor.UserID, d.UserID)
	s.Equal(s.donor.Email, d.LinkedUserEmail)
	s.Equal(s.now, d.Timestamp)
	s.True(d.AssignedTo.IsNil())
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Submitted))
	s.Contains(s.auditLog.Actions(), string(audit.EventDonationSubmitted))
}

func (s *ServiceSuite) TestSubmitAnonymous() {
	d, err := s.service.Submit(testutil.AtTime(context.Background(), s.now), models.Submission{
		Category: "Food",
		Name:     "Anon",
		Phone:    "555-0100",
	})
	s.Require().NoError(err)
	s.True(d.UserID.IsNil())
	s.Empty(d.LinkedUserEmail)
}

func (s *ServiceSuite) TestSubmitValidation() {
	_, err := s.service.Submit(s.as(s.donor), models.Submission{Category: "Food", Name: "No contact"})
	s.assertCode(err, dErrors.CodeValidation)

	all, err := s.store.ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ServiceSuite) TestFullDeliveryLifecycle() {
	d := s.submit()
	ctx := s.as(s.partner)

	accepted, err := s.service.Accept(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAssigned, accepted.Status)
	s.Equal(s.partner.UserID, accepted.AssignedTo)
	s.Equal(s.partner.UserID, accepted.AssignedBy)
	s.Require().NotNil(accepted.AssignedTime)

	initial := &locmodels.Position{Lat: 40.7, Lng: -74.0}
	s.locations.EXPECT().Begin(gomock.Any(), s.partner.UserID, d.ID, initial).Return(locmodels.StatusLive, nil)
	started, err := s.service.Start(ctx, d.ID, initial)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, started.Donation.Status)
	s.Equal(locmodels.StatusLive, started.LocationStatus)
	s.Require().NotNil(started.Donation.StartTime)

	s.locations.EXPECT().End(gomock.Any(), s.partner.UserID).Return(nil)
	completed, err := s.service.Complete(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.Equal(s.partner.UserID, completed.AssignedTo)
	s.Require().NotNil(completed.CompletedTime)

	s.Equal([]string{
		string(audit.EventDonationSubmitted),
		string(audit.EventDonationAssigned),
		string(audit.EventDonationStarted),
		string(audit.EventDonationCompleted),
	}, s.auditLog.Actions())
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Transitions.WithLabelValues(string(models.StatusCompleted))))
}

func (s *ServiceSuite) TestAcceptRequiresPartnerRole() {
	d := s.submit()

	_, err := s.service.Accept(s.as(s.donor), d.ID)
	s.assertCode(err, dErrors.CodeForbidden)

	_, err = s.service.Accept(testutil.AtTime(context.Background(), s.now), d.ID)
	s.assertCode(err, dErrors.CodeUnauthorized)

	stored, err := s.store.FindByID(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ServiceSuite) TestAcceptAlreadyTakenIsConflict() {
	d := s.submit()
	_, err := s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)

	_, err = s.service.Accept(s.as(s.other), d.ID)
	s.assertCode(err, dErrors.CodeConflict)

	stored, _ := s.store.FindByID(context.Background(), d.ID)
	s.Equal(s.partner.UserID, stored.AssignedTo)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Conflicts.WithLabelValues(string(models.StatusAssigned))))
}

func (s *ServiceSuite) TestConcurrentAcceptHasSingleWinner() {
	d := s.submit()
	const racers = 12

	racerActors := make([]testutil.Actor, racers)
	for i := range racerActors {
		racerActors[i] = testutil.Actor{UserID: id.NewUserID(), Email: "racer@example.com"}
		s.partnerRoles[racerActors[i].UserID] = true
	}

	winners := make(chan id.UserID, racers)
	var conflicts int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, racer := range racerActors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Accept(s.as(racer), d.ID)
			if err == nil {
				winners <- racer.UserID
				return
			}
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(winners)

	var winner id.UserID
	count := 0
	for w := range winners {
		winner = w
		count++
	}
	s.Equal(1, count)
	s.Equal(racers-1, conflicts)

	stored, _ := s.store.FindByID(context.Background(), d.ID)
	s.Equal(winner, stored.AssignedTo)
}

func (s *ServiceSuite) TestAssign() {
	s.Run("admin assigns to a partner", func() {
		d := s.submit()
		assigned, err := s.service.Assign(s.as(s.admin), d.ID, s.partner.UserID)
		s.Require().NoError(err)
		s.Equal(models.StatusAssigned, assigned.Status)
		s.Equal(s.partner.UserID, assigned.AssignedTo)
		s.Equal(s.admin.UserID, assigned.AssignedBy)
	})

	s.Run("target without delivery role", func() {
		d := s.submit()
		_, err := s.service.Assign(s.as(s.admin), d.ID, s.donor.UserID)
		s.assertCode(err, dErrors.CodeValidation)

		stored, _ := s.store.FindByID(context.Background(), d.ID)
		s.Equal(models.StatusPending, stored.Status)
	})

	s.Run("missing partner", func() {
		d := s.submit()
		_, err := s.service.Assign(s.as(s.admin), d.ID, id.UserID{})
		s.assertCode(err, dErrors.CodeValidation)
	})

	s.Run("already assigned", func() {
		d := s.submit()
		_, err := s.service.Accept(s.as(s.other), d.ID)
		s.Require().NoError(err)
		_, err = s.service.Assign(s.as(s.admin), d.ID, s.partner.UserID)
		s.assertCode(err, dErrors.CodeConflict)
	})

	s.Run("unknown donation", func() {
		_, err := s.service.Assign(s.as(s.admin), id.NewDonationID(), s.partner.UserID)
		s.assertCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestStartByNonAssigneeIsForbidden() {
	d := s.submit()
	_, err := s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)

	_, err = s.service.Start(s.as(s.other), d.ID, nil)
	s.assertCode(err, dErrors.CodeForbidden)

	stored, _ := s.store.FindByID(context.Background(), d.ID)
	s.Equal(models.StatusAssigned, stored.Status)
	s.Nil(stored.StartTime)
}

func (s *ServiceSuite) TestStartPreconditions() {
	d := s.submit()
	_, err := s.service.Start(s.as(s.partner), d.ID, nil)
	s.assertCode(err, dErrors.CodeForbidden)

	_, err = s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)
	s.locations.EXPECT().Begin(gomock.Any(), s.partner.UserID, d.ID, gomock.Nil()).Return(locmodels.StatusUnavailable, nil)
	_, err = s.service.Start(s.as(s.partner), d.ID, nil)
	s.Require().NoError(err)

	_, err = s.service.Start(s.as(s.partner), d.ID, nil)
	s.assertCode(err, dErrors.CodeConflict)
}

func (s *ServiceSuite) TestSecondStartWhileDeliveringIsConflict() {
	ctx := s.as(s.partner)
	first, second := s.submit(), s.submit()
	for _, d := range []*models.Donation{first, second} {
		_, err := s.service.Accept(ctx, d.ID)
		s.Require().NoError(err)
	}
	s.locations.EXPECT().Begin(gomock.Any(), s.partner.UserID, first.ID, gomock.Nil()).Return(locmodels.StatusUnavailable, nil)
	_, err := s.service.Start(ctx, first.ID, nil)
	s.Require().NoError(err)

	_, err = s.service.Start(ctx, second.ID, nil)
	s.assertCode(err, dErrors.CodeConflict)

	stored, _ := s.store.FindByID(context.Background(), second.ID)
	s.Equal(models.StatusAssigned, stored.Status)
}

func (s *ServiceSuite) TestStartSurvivesLocationFailure() {
	d := s.submit()
	_, err := s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)

	initial := &locmodels.Position{Lat: 1, Lng: 2}
	s.locations.EXPECT().Begin(gomock.Any(), s.partner.UserID, d.ID, initial).
		Return(locmodels.StatusUnavailable, errors.New("redis down"))

	res, err := s.service.Start(s.as(s.partner), d.ID, initial)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, res.Donation.Status)
	s.Equal(locmodels.StatusUnavailable, res.LocationStatus)
}

func (s *ServiceSuite) TestStartRejectsInvalidPosition() {
	d := s.submit()
	_, err := s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)

	_, err = s.service.Start(s.as(s.partner), d.ID, &locmodels.Position{Lat: 91, Lng: 0})
	s.assertCode(err, dErrors.CodeValidation)

	stored, _ := s.store.FindByID(context.Background(), d.ID)
	s.Equal(models.StatusAssigned, stored.Status)
}

func (s *ServiceSuite) TestCompleteSucceedsWhenLocationCleanupFails() {
	d := s.submit()
	ctx := s.as(s.partner)
	_, err := s.service.Accept(ctx, d.ID)
	s.Require().NoError(err)
	s.locations.EXPECT().Begin(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(locmodels.StatusUnavailable, nil)
	_, err = s.service.Start(ctx, d.ID, nil)
	s.Require().NoError(err)

	s.locations.EXPECT().End(gomock.Any(), s.partner.UserID).Return(errors.New("redis down"))
	completed, err := s.service.Complete(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
}

func (s *ServiceSuite) TestCompleteRequiresInProgress() {
	d := s.submit()
	_, err := s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)

	_, err = s.service.Complete(s.as(s.partner), d.ID)
	s.assertCode(err, dErrors.CodeConflict)
}

func (s *ServiceSuite) TestRejectAndReceive() {
	pending := s.submit()
	rejected, err := s.service.Reject(s.as(s.admin), pending.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.NotNil(rejected.RejectedTime)

	assigned := s.submit()
	_, err = s.service.Accept(s.as(s.partner), assigned.ID)
	s.Require().NoError(err)
	received, err := s.service.Receive(s.as(s.admin), assigned.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, received.Status)
	s.Equal(s.partner.UserID, received.AssignedTo, "assignment survives a terminal transition")

	_, err = s.service.Reject(s.as(s.admin), received.ID)
	s.assertCode(err, dErrors.CodeConflict)
	_, err = s.service.Receive(s.as(s.admin), rejected.ID)
	s.assertCode(err, dErrors.CodeConflict)
}

func (s *ServiceSuite) TestGetAuthorization() {
	d := s.submit()

	_, err := s.service.Get(s.as(s.donor), d.ID)
	s.NoError(err)
	_, err = s.service.Get(s.as(s.admin), d.ID)
	s.NoError(err)
	_, err = s.service.Get(s.as(s.partner), d.ID)
	s.assertCode(err, dErrors.CodeForbidden)

	_, err = s.service.Accept(s.as(s.partner), d.ID)
	s.Require().NoError(err)
	_, err = s.service.Get(s.as(s.partner), d.ID)
	s.NoError(err)

	_, err = s.service.Get(s.as(s.donor), id.NewDonationID())
	s.assertCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestTasksPartitionsQueues() {
	open := s.submit()
	mine := s.submit()
	theirs := s.submit()
	done := s.submit()

	ctx := s.as(s.partner)
	_, err := s.service.Accept(ctx, mine.ID)
	s.Require().NoError(err)
	_, err = s.service.Accept(s.as(s.other), theirs.ID)
	s.Require().NoError(err)
	_, err = s.service.Accept(ctx, done.ID)
	s.Require().NoError(err)
	_, err = s.service.Receive(s.as(s.admin), done.ID)
	s.Require().NoError(err)

	tasks, err := s.service.Tasks(ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks.Available, 1)
	s.Equal(open.ID, tasks.Available[0].ID)
	s.Require().Len(tasks.Active, 1)
	s.Equal(mine.ID, tasks.Active[0].ID)
	s.Require().Len(tasks.History, 1)
	s.Equal(done.ID, tasks.History[0].ID)

	_, err = s.service.Tasks(s.as(s.donor))
	s.assertCode(err, dErrors.CodeForbidden)
}

func (s *ServiceSuite) TestDonorHistoryMatchesEmail() {
	linked := s.submit()
	byEmail, err := s.service.Submit(testutil.AtTime(context.Background(), s.now.Add(time.Minute)), models.Submission{
		Category: "Toys",
		Name:     "Dana",
		Email:    "DANA@example.com",
	})
	s.Require().NoError(err)
	_, err = s.service.Submit(testutil.AtTime(context.Background(), s.now), models.Submission{
		Category: "Toys",
		Name:     "Someone",
		Phone:    "555-0199",
	})
	s.Require().NoError(err)

	history, err := s.service.DonorHistory(s.as(s.donor))
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(byEmail.ID, history[0].ID)
	s.Equal(linked.ID, history[1].ID)

	_, err = s.service.DonorHistory(context.Background())
	s.assertCode(err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestListAllMetrics() {
	s.submit()
	received := s.submit()
	rejected := s.submit()
	_, err := s.service.Receive(s.as(s.admin), received.ID)
	s.Require().NoError(err)
	_, err = s.service.Reject(s.as(s.admin), rejected.ID)
	s.Require().NoError(err)

	overview, err := s.service.ListAll(s.as(s.admin))
	s.Require().NoError(err)
	s.Len(overview.Donations, 3)
	s.Equal(models.Metrics{Total: 3, Pending: 1, Completed: 1}, overview.Metrics)
}

func (s *ServiceSuite) TestListAllCustomCompletedSet() {
	svc := New(s.store, s.partners, s.admins, s.locations,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCompletedStatuses([]string{"Completed", "Received", "Rejected"}),
	)
	received := s.submit()
	rejected := s.submit()
	_, err := svc.Receive(s.as(s.admin), received.ID)
	s.Require().NoError(err)
	_, err = svc.Reject(s.as(s.admin), rejected.ID)
	s.Require().NoError(err)

	overview, err := svc.ListAll(s.as(s.admin))
	s.Require().NoError(err)
	s.Equal(2, overview.Metrics.Completed)
}
