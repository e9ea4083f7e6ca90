package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "givetrack/pkg/domain"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/audit/store/memory"
	"givetrack/pkg/platform/audit/worker"
	"givetrack/pkg/requestcontext"
)

func TestSyncEmitAppendsImmediately(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	userID := id.NewUserID()
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	require.NoError(t, pub.Emit(ctx, audit.Event{UserID: userID, Action: string(audit.EventDonationSubmitted)}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEmitKeepsCallerTimestampAndCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:    string(audit.EventPartnerPromoted),
		Timestamp: at,
	}))

	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, at, all[0].Timestamp)
	assert.Equal(t, audit.CategoryCompliance, all[0].Category)
}

func TestAsyncEventsAreDrainedByWorker(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithAsyncBuffer(16))

	done := make(chan error, 1)
	go func() { done <- worker.New(store, pub.Inbox(), nil).Run(context.Background()) }()

	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventDonationAssigned)}))
	}
	pub.Close()
	require.NoError(t, <-done)

	assert.Len(t, store.Actions(), 5)
}

func TestAsyncBufferFullDropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithAsyncBuffer(1))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "first"}))
	err := pub.Emit(context.Background(), audit.Event{Action: "second"})
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, int64(1), pub.Dropped())
}

func TestEmitAfterCloseFallsBackToSink(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "late"}))
	assert.Equal(t, []string{"late"}, store.Actions())
}
