package reconciliation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/pkg/observability"
)

// Engine combines webhook pushes and on-demand polling into one view of
// each payment. Webhooks are authoritative and arrive first in the common
// case; polls fill the gap when a webhook is late, lost or was never
// delivered because the service restarted.
type Engine struct {
	store    ports.TransactionStore
	fetcher  ports.StatusFetcher
	logger   *zap.Logger
	inflight singleflight.Group
	now      func() time.Time
}

// NewEngine creates a reconciliation engine
func NewEngine(store ports.TransactionStore, fetcher ports.StatusFetcher, logger *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// ApplyWebhook merges a verified webhook notification into the store.
// Replays of the same notification leave the record unchanged.
func (e *Engine) ApplyWebhook(ctx context.Context, event *domain.WebhookEvent) (*domain.PaymentRecord, error) {
	if event == nil || event.TrackingID == "" {
		return nil, domain.ErrTrackingIDMissing
	}

	rec, changed, err := e.store.Put(ctx, event.Record(e.now()))
	if err != nil {
		e.logger.Error("Failed to apply webhook",
			zap.String("tracking_id", event.TrackingID),
			zap.Error(err))
		return nil, err
	}

	if changed {
		observability.RecordStatusTransition(rec.Status.String(), string(domain.SourceWebhook))
		observability.RecordWebhook("applied")
	} else {
		observability.RecordWebhook("unchanged")
	}

	e.logger.Info("Webhook applied",
		zap.String("tracking_id", rec.TrackingID),
		zap.String("event", event.Event),
		zap.String("raw_status", event.RawStatus),
		zap.String("status", rec.Status.String()),
		zap.Bool("changed", changed))

	return rec, nil
}

// ResolveStatus answers a status poll.
//
// Unknown ids are looked up remotely and materialized as recovered records
// when found. Pending ids get one best-effort remote lookup so a missed
// webhook does not leave the caller waiting forever. Terminal records are
// answered locally.
func (e *Engine) ResolveStatus(ctx context.Context, trackingID string) (*domain.PaymentRecord, error) {
	rec, err := e.store.Get(ctx, trackingID)
	switch {
	case err == nil:
		return e.refreshPending(ctx, rec), nil
	case domain.IsNotFoundError(err):
		return e.recover(ctx, trackingID)
	default:
		return nil, err
	}
}

// Snapshot returns every tracked record
func (e *Engine) Snapshot(ctx context.Context) ([]*domain.PaymentRecord, error) {
	return e.store.List(ctx)
}

func (e *Engine) refreshPending(ctx context.Context, rec *domain.PaymentRecord) *domain.PaymentRecord {
	if rec.Status != domain.PaymentStatusPending {
		observability.RecordStatusPoll("local")
		return rec
	}

	result := e.fetch(ctx, rec.TrackingID)
	if !result.Found() || result.Status == domain.PaymentStatusPending {
		observability.RecordStatusPoll("local")
		return rec
	}

	updated, changed, err := e.store.MutateStatus(ctx, rec.TrackingID, result.Status)
	if err != nil {
		e.logger.Warn("Failed to store polled status",
			zap.String("tracking_id", rec.TrackingID),
			zap.String("status", result.Status.String()),
			zap.Error(err))
		observability.RecordStatusPoll("local")
		return rec
	}

	if changed {
		observability.RecordStatusTransition(updated.Status.String(), "poll")
		e.logger.Info("Pending payment resolved by poll",
			zap.String("tracking_id", updated.TrackingID),
			zap.String("status", updated.Status.String()))
	}
	observability.RecordStatusPoll("resolved")
	return updated
}

func (e *Engine) recover(ctx context.Context, trackingID string) (*domain.PaymentRecord, error) {
	result := e.fetch(ctx, trackingID)
	if !result.Found() {
		observability.RecordStatusPoll("not_found")
		return nil, domain.ErrTxnNotFound
	}

	rec, _, err := e.store.Put(ctx, domain.NewRecoveredRecord(trackingID, result.Status, e.now()))
	if err != nil {
		e.logger.Error("Failed to store recovered payment",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		return nil, err
	}

	observability.RecordStatusTransition(rec.Status.String(), string(domain.SourceRecovery))
	observability.RecordStatusPoll("recovered")
	e.logger.Info("Payment recovered from provider",
		zap.String("tracking_id", trackingID),
		zap.String("status", rec.Status.String()),
		zap.Int("pages_scanned", result.PagesScanned))
	return rec, nil
}

// fetch runs one remote lookup per tracking id at a time; concurrent callers
// share the result. The shared scan is detached from the first caller's
// cancellation and bounded by the fetcher's own timeout.
func (e *Engine) fetch(ctx context.Context, trackingID string) ports.FetchResult {
	ch := e.inflight.DoChan(trackingID, func() (interface{}, error) {
		start := time.Now()
		result := e.fetcher.FetchStatus(context.WithoutCancel(ctx), trackingID)
		observability.RecordStatusFetch(result.Outcome.String(), result.PagesScanned, time.Since(start).Seconds())

		switch result.Outcome {
		case ports.FetchTransportFailure:
			e.logger.Warn("Remote status lookup failed",
				zap.String("tracking_id", trackingID),
				zap.Int("pages_scanned", result.PagesScanned),
				zap.Error(result.Err))
		case ports.FetchNotFound:
			e.logger.Debug("Transaction not in recent provider history",
				zap.String("tracking_id", trackingID),
				zap.Int("pages_scanned", result.PagesScanned))
		}
		return result, nil
	})

	select {
	case res := <-ch:
		return res.Val.(ports.FetchResult)
	case <-ctx.Done():
		return ports.FetchResult{Outcome: ports.FetchTransportFailure, Err: ctx.Err()}
	}
}
