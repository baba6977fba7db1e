package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/config"
	"github.com/rilaconsulting/pmpulse/internal/dedup"
	"github.com/rilaconsulting/pmpulse/internal/dto"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
	"github.com/rilaconsulting/pmpulse/internal/worker"
)

// AnalysisEnqueuer is the slice of the worker.Dispatcher this service needs.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(ctx context.Context, payload interface{}) error
}

// DedupService exposes the deduplication engine to the HTTP boundary: the
// synchronous bounded scan, the asynchronous full-population analysis, and
// the analysis queries.
type DedupService interface {
	ScanDuplicates(ctx context.Context, req dto.ScanDuplicatesRequest) (*dto.ScanDuplicatesResponse, error)
	// StartAnalysis admits at most one non-terminal analysis system-wide.
	// Returns apierror.ErrAnalysisInFlight when another is pending or
	// processing.
	StartAnalysis(ctx context.Context, requestedBy uuid.UUID, req dto.StartAnalysisRequest) (*dto.AnalysisResponse, error)
	GetAnalysis(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error)
	GetLatestAnalysis(ctx context.Context) (*dto.AnalysisResponse, error)
}

type dedupService struct {
	vendorRepo   repository.VendorRepository
	analysisRepo repository.AnalysisRepository
	dispatcher   AnalysisEnqueuer
	cfg          *config.Config
}

func NewDedupService(
	vendorRepo repository.VendorRepository,
	analysisRepo repository.AnalysisRepository,
	dispatcher AnalysisEnqueuer,
	cfg *config.Config,
) DedupService {
	return &dedupService{
		vendorRepo:   vendorRepo,
		analysisRepo: analysisRepo,
		dispatcher:   dispatcher,
		cfg:          cfg,
	}
}

// applyDefaults fills omitted scan parameters from configuration. Validation
// at the boundary already rejected out-of-range values.
func (s *dedupService) applyDefaults(threshold *float64, limit *int) {
	if *threshold == 0 {
		*threshold = s.cfg.DedupDefaultThreshold
	}
	if *limit == 0 {
		*limit = s.cfg.DedupDefaultLimit
	}
}

func (s *dedupService) ScanDuplicates(ctx context.Context, req dto.ScanDuplicatesRequest) (*dto.ScanDuplicatesResponse, error) {
	s.applyDefaults(&req.Threshold, &req.Limit)

	ids := make([]uuid.UUID, 0, len(req.VendorIDs))
	for _, raw := range req.VendorIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid vendor id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}

	records, err := s.vendorRepo.ListCanonicalRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	pairs := dedup.Find(records, req.Threshold, req.Limit)
	return &dto.ScanDuplicatesResponse{
		TotalVendors:    len(records),
		ComparisonsMade: dedup.Comparisons(len(records)),
		DuplicatesFound: len(pairs),
		Pairs:           pairs,
	}, nil
}

func (s *dedupService) StartAnalysis(ctx context.Context, requestedBy uuid.UUID, req dto.StartAnalysisRequest) (*dto.AnalysisResponse, error) {
	s.applyDefaults(&req.Threshold, &req.Limit)

	// Admission check: best-effort query first for a clean conflict message,
	// backed by the partial unique index for the race window.
	active, err := s.analysisRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apierror.ErrAnalysisInFlight
	}

	analysis := &model.VendorDuplicateAnalysis{
		RequestedBy: requestedBy,
		Status:      model.AnalysisPending,
		Threshold:   req.Threshold,
		Limit:       req.Limit,
	}
	if err := s.analysisRepo.Create(ctx, analysis); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent request.
			return nil, apierror.ErrAnalysisInFlight
		}
		return nil, err
	}

	payload := worker.AnalysisJobPayload{AnalysisID: analysis.ID.String()}
	if err := s.dispatcher.EnqueueAnalysis(ctx, payload); err != nil {
		// The record would otherwise sit in "pending" until the reaper
		// abandons it and block all analyses meanwhile. Fail it right here.
		msg := "failed to enqueue analysis job: " + err.Error()
		analysis.Status = model.AnalysisFailed
		analysis.ErrorMessage = &msg
		if _, updateErr := s.analysisRepo.UpdateIfStatus(ctx, analysis, model.AnalysisPending); updateErr != nil {
			log.Error().Err(updateErr).Str("analysis_id", analysis.ID.String()).Msg("failed to mark unqueued analysis as failed")
		}
		return nil, err
	}

	log.Info().
		Str("analysis_id", analysis.ID.String()).
		Float64("threshold", analysis.Threshold).
		Int("limit", analysis.Limit).
		Msg("duplicate analysis enqueued")

	return analysisResponse(analysis), nil
}

func (s *dedupService) GetAnalysis(ctx context.Context, id uuid.UUID) (*dto.AnalysisResponse, error) {
	analysis, err := s.analysisRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return analysisResponse(analysis), nil
}

func (s *dedupService) GetLatestAnalysis(ctx context.Context) (*dto.AnalysisResponse, error) {
	analysis, err := s.analysisRepo.FindLatest(ctx)
	if err != nil {
		return nil, err
	}
	return analysisResponse(analysis), nil
}

func analysisResponse(a *model.VendorDuplicateAnalysis) *dto.AnalysisResponse {
	return &dto.AnalysisResponse{
		ID:              a.ID.String(),
		RequestedBy:     a.RequestedBy.String(),
		Status:          a.Status,
		Threshold:       a.Threshold,
		Limit:           a.Limit,
		Results:         a.Results,
		TotalVendors:    a.TotalVendors,
		ComparisonsMade: a.ComparisonsMade,
		DuplicatesFound: a.DuplicatesFound,
		ErrorMessage:    a.ErrorMessage,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
		CreatedAt:       a.CreatedAt,
	}
}
