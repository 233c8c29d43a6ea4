package services

import (
	"context"
	"time"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/rs/zerolog/log"
)

// Sweeper polls the gateway for intents nobody came back to reconcile and
// expires the ones abandoned for longer than the expiry window.
type Sweeper struct {
	ledger *ContributionLedger
	expiry time.Duration
}

type SweepResult struct {
	Checked  int   `json:"checked"`
	Approved int   `json:"approved"`
	Rejected int   `json:"rejected"`
	Failed   int   `json:"failed"`
	Expired  int64 `json:"expired"`
}

func NewSweeper(ledger *ContributionLedger, expiry time.Duration) *Sweeper {
	return &Sweeper{ledger: ledger, expiry: expiry}
}

// RunOnce reconciles every unsettled intent. An intent past the expiry window is
// expired only when its status query in this pass succeeded and did not report
// approval; intents whose reconcile failed stay as they are for the next pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := time.Now().Add(-s.expiry)

	pending, err := s.ledger.Pending(ctx)
	if err != nil {
		return result, err
	}

	for _, intent := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		updated, err := s.ledger.Reconcile(ctx, intent.ID)
		if err != nil {
			result.Failed++
			if !apperror.Is(err, apperror.KindGateway) {
				log.Warn().Err(err).Str("intent_id", intent.ID.String()).Msg("sweep reconcile failed")
			}
			continue
		}
		switch updated.Status {
		case models.IntentApproved:
			result.Approved++
		case models.IntentRejected:
			result.Rejected++
		case models.IntentExpired:
			result.Expired++
		case models.IntentCreated, models.IntentPending:
			if s.expiry <= 0 || !updated.CreatedAt.Before(cutoff) {
				continue
			}
			expired, err := s.ledger.Expire(ctx, updated.ID, cutoff)
			if err != nil {
				return result, err
			}
			if expired {
				result.Expired++
			}
		}
	}

	if s.expiry > 0 {
		expired, err := s.ledger.ExpireProvisional(ctx, cutoff)
		if err != nil {
			return result, err
		}
		result.Expired += expired
	}

	log.Info().Int("checked", result.Checked).Int("approved", result.Approved).Int("rejected", result.Rejected).
		Int64("expired", result.Expired).Int("failed", result.Failed).Msg("🧹 contribution sweep finished")
	return result, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("contribution sweep failed")
			}
		}
	}
}
