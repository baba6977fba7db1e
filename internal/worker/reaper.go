package worker

// reaper.go
// Background goroutine that fails analyses stuck past a configurable timeout:
// "processing" rows left behind by a worker crash, and "pending" rows whose
// queued job was lost (crash after the pop, a dead-lettered payload, or a
// crash between record creation and enqueue). Without it, a dead analysis
// would hold the single-in-flight admission slot forever. Reaped analyses are
// NOT retried: the record ends in "failed" and a new analysis must be
// requested explicitly.

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rilaconsulting/pmpulse/internal/metrics"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
)

const reaperTickInterval = time.Minute

// StartReaper launches a goroutine that ticks every minute and fails
// non-terminal analyses older than staleAfter. It respects the context for
// graceful shutdown.
func StartReaper(ctx context.Context, repo repository.AnalysisRepository, staleAfter time.Duration) {
	go func() {
		ticker := time.NewTicker(reaperTickInterval)
		defer ticker.Stop()

		log.Info().Dur("stale_after", staleAfter).Msg("reaper: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reaper: shutting down")
				return
			case <-ticker.C:
				reapStale(ctx, repo, staleAfter)
			}
		}
	}()
}

func reapStale(ctx context.Context, repo repository.AnalysisRepository, staleAfter time.Duration) {
	cutoff := time.Now().UTC().Add(-staleAfter)
	stale, err := repo.ListStale(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("reaper: failed to query stale analyses")
		return
	}

	for i := range stale {
		analysis := &stale[i]
		from := analysis.Status

		msg := fmt.Sprintf("analysis exceeded the %s processing deadline and was abandoned", staleAfter)
		if from == model.AnalysisPending {
			msg = fmt.Sprintf("analysis was not picked up by a worker within %s and was abandoned", staleAfter)
		}

		completed := time.Now().UTC()
		analysis.Status = model.AnalysisFailed
		analysis.ErrorMessage = &msg
		analysis.CompletedAt = &completed
		ok, err := repo.UpdateIfStatus(ctx, analysis, from)
		if err != nil {
			log.Error().Err(err).Str("analysis_id", analysis.ID.String()).Msg("reaper: failed to reap analysis")
			continue
		}
		if !ok {
			// A worker finished it between the query and here.
			continue
		}
		metrics.AnalysesFailed.Inc()
		log.Warn().
			Str("analysis_id", analysis.ID.String()).
			Str("stuck_in", from).
			Msg("reaper: stale analysis marked failed")
	}
}
