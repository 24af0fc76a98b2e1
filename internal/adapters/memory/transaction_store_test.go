package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/stkpush-service/internal/domain"
)

func newTestStore(policy domain.TransitionPolicy) *TransactionStore {
	s := NewTransactionStore(policy)
	fixed := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestTransactionStore_GetMissing(t *testing.T) {
	s := newTestStore(domain.FirstTerminalWins)

	rec, err := s.Get(context.Background(), "txn_missing")

	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrTxnNotFound)
}

func TestTransactionStore_PutCreatesRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(domain.FirstTerminalWins)

	rec, changed, err := s.Put(ctx, &domain.PaymentRecord{
		TrackingID: "txn_1",
		Status:     domain.PaymentStatusPending,
		Phone:      "254712345678",
		Amount:     50,
	})

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.PaymentStatusPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(ctx, "txn_1")
	require.NoError(t, err)
	assert.Equal(t, "254712345678", got.Phone)
	assert.Equal(t, int64(50), got.Amount)
}

func TestTransactionStore_PutRejectsEmptyTrackingID(t *testing.T) {
	s := newTestStore(domain.FirstTerminalWins)

	_, _, err := s.Put(context.Background(), &domain.PaymentRecord{})

	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, 0, s.Len())
}

func TestTransactionStore_TerminalPreservingMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("pending_after_success_is_discarded", func(t *testing.T) {
		s := newTestStore(domain.FirstTerminalWins)
		_, _, err := s.Put(ctx, domain.NewPendingRecord("txn_1", "254712345678", 50, time.Time{}))
		require.NoError(t, err)

		_, changed, err := s.MutateStatus(ctx, "txn_1", domain.PaymentStatusSuccess)
		require.NoError(t, err)
		assert.True(t, changed)

		rec, changed, err := s.MutateStatus(ctx, "txn_1", domain.PaymentStatusPending)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, domain.PaymentStatusSuccess, rec.Status)
	})

	t.Run("failed_after_success_with_first_terminal_wins", func(t *testing.T) {
		s := newTestStore(domain.FirstTerminalWins)
		_, _, _ = s.Put(ctx, &domain.PaymentRecord{TrackingID: "txn_1", Status: domain.PaymentStatusSuccess})

		rec, changed, err := s.MutateStatus(ctx, "txn_1", domain.PaymentStatusFailed)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, domain.PaymentStatusSuccess, rec.Status)
	})

	t.Run("failed_after_success_with_latest_terminal_wins", func(t *testing.T) {
		s := newTestStore(domain.LatestTerminalWins)
		_, _, _ = s.Put(ctx, &domain.PaymentRecord{TrackingID: "txn_1", Status: domain.PaymentStatusSuccess})

		rec, changed, err := s.MutateStatus(ctx, "txn_1", domain.PaymentStatusFailed)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, domain.PaymentStatusFailed, rec.Status)
	})

	t.Run("initiation_after_webhook_keeps_status_and_fills_details", func(t *testing.T) {
		s := newTestStore(domain.FirstTerminalWins)
		_, _, _ = s.Put(ctx, domain.NewRecoveredRecord("txn_1", domain.PaymentStatusSuccess, time.Time{}))

		rec, changed, err := s.Put(ctx, domain.NewPendingRecord("txn_1", "254712345678", 50, time.Time{}))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, domain.PaymentStatusSuccess, rec.Status)
		assert.Equal(t, "254712345678", rec.Phone)
		assert.Equal(t, int64(50), rec.Amount)
	})
}

func TestTransactionStore_MutateStatusMissing(t *testing.T) {
	s := newTestStore(domain.FirstTerminalWins)

	_, _, err := s.MutateStatus(context.Background(), "nope", domain.PaymentStatusSuccess)

	assert.ErrorIs(t, err, domain.ErrTxnNotFound)
}

func TestTransactionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(domain.FirstTerminalWins)
	rec, _, _ := s.Put(ctx, domain.NewPendingRecord("txn_1", "254712345678", 50, time.Time{}))

	rec.Status = domain.PaymentStatusFailed

	got, err := s.Get(ctx, "txn_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
}

// TestTransactionStore_ConcurrentWebhookAndStalePolls races a terminal write
// against many stale pending writes for the same id
func TestTransactionStore_ConcurrentWebhookAndStalePolls(t *testing.T) {
	ctx := context.Background()
	s := NewTransactionStore(domain.FirstTerminalWins)
	_, _, err := s.Put(ctx, domain.NewPendingRecord("txn_race", "254712345678", 50, time.Now()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = s.MutateStatus(ctx, "txn_race", domain.PaymentStatusPending)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = s.Put(ctx, &domain.PaymentRecord{TrackingID: "txn_race", Status: domain.PaymentStatusSuccess})
		}()
	}
	wg.Wait()

	rec, err := s.Get(ctx, "txn_race")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, rec.Status)
}

func TestTransactionStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewTransactionStore(domain.FirstTerminalWins)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, _, _ = s.Put(ctx, domain.NewPendingRecord("txn_b", "", 0, base.Add(time.Minute)))
	_, _, _ = s.Put(ctx, domain.NewPendingRecord("txn_a", "", 0, base))

	list, err := s.List(ctx)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "txn_a", list[0].TrackingID)
	assert.Equal(t, "txn_b", list[1].TrackingID)
}
