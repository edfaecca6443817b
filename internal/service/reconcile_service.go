package service

import (
	"context"
	"fmt"
	"time"

	"adgen/internal/domain"
	"adgen/internal/metrics"
	"adgen/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReconcileService settles debits that the request path could not: refunds whose transaction
// failed, and debits left pending by a crashed or stuck request.
type ReconcileService struct {
	ledgerRepo *repository.LedgerRepository
	assetRepo  *repository.AssetRepository
	refundRepo *repository.PendingRefundRepository
	notifier   AssetNotifier
	staleAfter time.Duration
	batchSize  int
	log        *logrus.Entry
	now        func() time.Time
	cron       *cron.Cron

	// a queued refund is tried at most maxAttempts times; after n failures the next try
	// waits retryBackoff<<(n-1), capped at maxRetryBackoff
	maxAttempts  int
	retryBackoff time.Duration
}

func NewReconcileService(
	ledgerRepo *repository.LedgerRepository,
	assetRepo *repository.AssetRepository,
	refundRepo *repository.PendingRefundRepository,
	staleAfter time.Duration,
	batchSize int,
	log *logrus.Entry,
) *ReconcileService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconcileService{
		ledgerRepo:   ledgerRepo,
		assetRepo:    assetRepo,
		refundRepo:   refundRepo,
		staleAfter:   staleAfter,
		batchSize:    batchSize,
		log:          log,
		now:          time.Now,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: time.Minute,
	}
}

const (
	defaultMaxAttempts = 10
	maxRetryBackoff    = time.Hour
)

// SetRetryPolicy bounds pending refund retries. Non-positive maxAttempts keeps the default.
func (s *ReconcileService) SetRetryPolicy(maxAttempts int, backoff time.Duration) {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if backoff >= 0 {
		s.retryBackoff = backoff
	}
}

// due reports whether a queued refund has waited out its backoff.
func (s *ReconcileService) due(attempts int, lastTry time.Time) bool {
	if attempts == 0 || s.retryBackoff == 0 {
		return true
	}
	wait := maxRetryBackoff
	if attempts < 16 {
		if d := s.retryBackoff << uint(attempts-1); d < wait {
			wait = d
		}
	}
	return !s.now().Before(lastTry.Add(wait))
}

func (s *ReconcileService) SetNotifier(n AssetNotifier) {
	s.notifier = n
}

// Start runs RunOnce on the cron schedule (e.g. "@every 1m"). Overlapping runs are skipped.
func (s *ReconcileService) Start(schedule string) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	if _, err := c.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("reconcile schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	s.log.WithField("schedule", schedule).Info("reconciler started")
	return nil
}

// Stop halts scheduling and waits for a running pass to finish or ctx to end.
func (s *ReconcileService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one pass: queued refunds first, then the orphan sweep.
func (s *ReconcileService) RunOnce(ctx context.Context) {
	if n, err := s.RetryPendingRefunds(ctx); err != nil {
		s.log.WithError(err).Error("retry pending refunds")
	} else if n > 0 {
		s.log.WithField("resolved", n).Info("pending refunds resolved")
	}
	if n, err := s.SweepOrphans(ctx); err != nil {
		s.log.WithError(err).Error("sweep orphan debits")
	} else if n > 0 {
		s.log.WithField("reclaimed", n).Warn("orphan debits refunded")
	}
	if n, err := s.refundRepo.CountUnresolved(ctx); err == nil {
		metrics.SetPendingRefunds(n)
	}
}

// RetryPendingRefunds replays queued refunds that are due. A row already settled by another
// path is resolved without crediting again. A row that exhausts maxAttempts stays unresolved
// and is reported once as refund_lost.
func (s *ReconcileService) RetryPendingRefunds(ctx context.Context) (int, error) {
	rows, err := s.refundRepo.ListRetryable(ctx, s.maxAttempts, s.batchSize)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, pr := range rows {
		if !s.due(pr.Attempts, pr.UpdatedAt) {
			continue
		}
		log := s.log.WithFields(logrus.Fields{
			"correlation_id": pr.CorrelationID,
			"user_id":        pr.UserID,
			"amount":         pr.Amount,
		})
		applied, err := s.ledgerRepo.Refund(ctx, repository.RefundParams{
			UserID:        pr.UserID,
			CorrelationID: pr.CorrelationID,
			Amount:        pr.Amount,
			Reason:        pr.Reason,
		})
		if err != nil {
			log.WithError(err).WithField("attempts", pr.Attempts+1).Warn("pending refund retry failed")
			if rErr := s.refundRepo.RecordFailure(ctx, pr.ID, err.Error()); rErr != nil {
				log.WithError(rErr).Error("record refund failure")
				continue
			}
			if pr.Attempts+1 >= s.maxAttempts {
				metrics.IncRefundFailures()
				log.WithError(err).WithField("event", "refund_lost").
					Error("pending refund abandoned after max attempts; manual credit required")
			}
			continue
		}
		if err := s.refundRepo.MarkResolved(ctx, pr.ID, s.now()); err != nil {
			log.WithError(err).Error("mark refund resolved")
			continue
		}
		if applied {
			metrics.AddTokensRefunded(pr.Amount)
			s.publishFailed(ctx, pr.CorrelationID)
		}
		resolved++
	}
	return resolved, nil
}

// SweepOrphans refunds generation debits still pending after staleAfter.
func (s *ReconcileService) SweepOrphans(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	debits, err := s.ledgerRepo.ListOrphanDebits(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, d := range debits {
		cid := *d.CorrelationID
		log := s.log.WithFields(logrus.Fields{"correlation_id": cid, "user_id": d.UserID})
		applied, err := s.ledgerRepo.Refund(ctx, repository.RefundParams{
			UserID:        d.UserID,
			CorrelationID: cid,
			Amount:        -d.Delta,
			Reason:        "generation did not complete in time",
		})
		if err != nil {
			metrics.IncRefundFailures()
			log.WithError(err).WithField("event", "refund_lost").Error("orphan refund failed")
			continue
		}
		if applied {
			metrics.AddTokensRefunded(-d.Delta)
			s.publishFailed(ctx, cid)
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *ReconcileService) publishFailed(ctx context.Context, correlationID string) {
	if s.notifier == nil {
		return
	}
	a, err := s.assetRepo.GetByCorrelation(ctx, correlationID)
	if err != nil || a.Status != domain.AssetStatusFailed {
		return
	}
	s.notifier.PublishAsset(a)
}
