package worker

// analysis_worker.go
// Processes duplicate-analysis jobs from QueueAnalysis: loads the canonical
// vendor set, runs the pairwise finder, and writes results back onto the
// tracked analysis record. Every failure path ends in the "failed" terminal
// state — errors are never re-thrown to the requester, who only holds the
// async handle.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rilaconsulting/pmpulse/internal/dedup"
	"github.com/rilaconsulting/pmpulse/internal/metrics"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
)

// AnalysisJobPayload is the job envelope sent to QueueAnalysis.
type AnalysisJobPayload struct {
	AnalysisID string `json:"analysis_id"`
}

// EmailEnqueuer is the slice of the Dispatcher the analysis worker needs;
// kept as an interface so tests can capture notifications without Redis.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload interface{}) error
}

// AnalysisWorker drives one analysis record through
// pending → processing → completed | failed.
type AnalysisWorker struct {
	analysisRepo repository.AnalysisRepository
	vendorRepo   repository.VendorRepository
	userRepo     repository.UserRepository
	emails       EmailEnqueuer
}

func NewAnalysisWorker(
	analysisRepo repository.AnalysisRepository,
	vendorRepo repository.VendorRepository,
	userRepo repository.UserRepository,
	emails EmailEnqueuer,
) *AnalysisWorker {
	return &AnalysisWorker{
		analysisRepo: analysisRepo,
		vendorRepo:   vendorRepo,
		userRepo:     userRepo,
		emails:       emails,
	}
}

// Process handles a single analysis job:
//  1. Parse AnalysisJobPayload and load the analysis record
//  2. Transition pending → processing, set started_at
//  3. Load the canonical vendor projection and run the finder
//  4. Store results + counters, transition to completed
//  5. Notify the requester by email if they have one
//
// Any panic or error along the way lands the record in "failed" with a
// human-readable error_message. There is no automatic retry — a new analysis
// must be requested explicitly.
func (w *AnalysisWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload AnalysisJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("analysis_worker: invalid payload")
		return
	}

	analysisID, err := uuid.Parse(payload.AnalysisID)
	if err != nil {
		log.Error().Str("analysis_id", payload.AnalysisID).Msg("analysis_worker: invalid analysis_id")
		return
	}

	analysis, err := w.analysisRepo.FindByID(ctx, analysisID)
	if err != nil {
		log.Error().Err(err).Str("analysis_id", payload.AnalysisID).Msg("analysis_worker: analysis not found")
		return
	}
	if analysis.Status != model.AnalysisPending {
		// Terminal states never transition backward; a reaped or replayed
		// job is dropped here.
		log.Warn().
			Str("analysis_id", analysis.ID.String()).
			Str("status", analysis.Status).
			Msg("analysis_worker: analysis not pending, skipping")
		return
	}

	started := time.Now().UTC()
	analysis.Status = model.AnalysisProcessing
	analysis.StartedAt = &started
	ok, err := w.analysisRepo.UpdateIfStatus(ctx, analysis, model.AnalysisPending)
	if err != nil {
		log.Error().Err(err).Str("analysis_id", analysis.ID.String()).Msg("analysis_worker: failed to mark processing")
		return
	}
	if !ok {
		// Reaped between the dequeue and here; the stored row is terminal.
		log.Warn().Str("analysis_id", analysis.ID.String()).Msg("analysis_worker: analysis no longer pending, skipping")
		return
	}
	metrics.AnalysesStarted.Inc()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("analysis_id", analysis.ID.String()).
				Msg("analysis_worker: panic recovered")
			w.fail(ctx, analysis, fmt.Sprintf("internal error: %v", r))
		}
	}()

	records, err := w.vendorRepo.ListCanonicalRecords(ctx, nil)
	if err != nil {
		w.fail(ctx, analysis, "loading canonical vendors: "+err.Error())
		return
	}

	pairs := dedup.Find(records, analysis.Threshold, analysis.Limit)

	completed := time.Now().UTC()
	analysis.Status = model.AnalysisCompleted
	analysis.Results = pairs
	analysis.TotalVendors = len(records)
	analysis.ComparisonsMade = dedup.Comparisons(len(records))
	analysis.DuplicatesFound = len(pairs)
	analysis.CompletedAt = &completed
	ok, err = w.analysisRepo.UpdateIfStatus(ctx, analysis, model.AnalysisProcessing)
	if err != nil {
		w.fail(ctx, analysis, "persisting results: "+err.Error())
		return
	}
	if !ok {
		// The reaper failed this analysis mid-run. Terminal states never
		// transition, so the late results are dropped.
		log.Warn().Str("analysis_id", analysis.ID.String()).Msg("analysis_worker: analysis already terminal, dropping results")
		return
	}

	metrics.AnalysesCompleted.Inc()
	metrics.ComparisonsMade.Add(float64(analysis.ComparisonsMade))
	metrics.DuplicatePairsFound.Add(float64(analysis.DuplicatesFound))

	log.Info().
		Str("analysis_id", analysis.ID.String()).
		Int("total_vendors", analysis.TotalVendors).
		Int("comparisons", analysis.ComparisonsMade).
		Int("duplicates_found", analysis.DuplicatesFound).
		Msg("analysis_worker: analysis completed")

	w.notifyRequester(ctx, analysis)
}

// fail transitions the analysis to its failed terminal state. A no-op when
// another actor (the reaper) already finished the row.
func (w *AnalysisWorker) fail(ctx context.Context, analysis *model.VendorDuplicateAnalysis, msg string) {
	completed := time.Now().UTC()
	analysis.Status = model.AnalysisFailed
	analysis.ErrorMessage = &msg
	analysis.CompletedAt = &completed
	ok, err := w.analysisRepo.UpdateIfStatus(ctx, analysis, model.AnalysisProcessing)
	if err != nil {
		log.Error().Err(err).Str("analysis_id", analysis.ID.String()).Msg("analysis_worker: failed to mark failed")
		return
	}
	if !ok {
		log.Warn().Str("analysis_id", analysis.ID.String()).Msg("analysis_worker: analysis already terminal, keeping stored state")
		return
	}
	metrics.AnalysesFailed.Inc()
	log.Warn().Str("analysis_id", analysis.ID.String()).Str("error", msg).Msg("analysis_worker: analysis failed")
}

// notifyRequester enqueues a summary email when the requester has an address.
// Best effort — a notification failure never touches the analysis outcome.
func (w *AnalysisWorker) notifyRequester(ctx context.Context, analysis *model.VendorDuplicateAnalysis) {
	if w.emails == nil {
		return
	}
	user, err := w.userRepo.FindByID(ctx, analysis.RequestedBy)
	if err != nil || user.Email == nil || *user.Email == "" {
		return
	}

	job := EmailJobPayload{
		ToEmail: *user.Email,
		Subject: "Vendor duplicate analysis completed",
		Body: fmt.Sprintf(
			"Your duplicate analysis finished.\n\nVendors scanned: %d\nComparisons made: %d\nPotential duplicates found: %d\n",
			analysis.TotalVendors, analysis.ComparisonsMade, analysis.DuplicatesFound),
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("to", *user.Email).Msg("analysis_worker: failed to enqueue notification email")
		return
	}
	log.Info().Str("to", *user.Email).Msg("analysis_worker: notification email enqueued")
}
