package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/model"
)

type AnalysisRepository interface {
	Create(ctx context.Context, a *model.VendorDuplicateAnalysis) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.VendorDuplicateAnalysis, error)
	FindLatest(ctx context.Context) (*model.VendorDuplicateAnalysis, error)
	// FindActive returns the pending or processing analysis, or (nil, nil)
	// when none is in flight.
	FindActive(ctx context.Context) (*model.VendorDuplicateAnalysis, error)
	// ListStale returns non-terminal analyses stuck past the cutoff:
	// processing rows by started_at, pending rows by created_at (a pending
	// row can outlive its queued job when the worker crashes after the pop
	// or the process dies before the enqueue). Consumed by the reaper.
	ListStale(ctx context.Context, cutoff time.Time) ([]model.VendorDuplicateAnalysis, error)
	// UpdateIfStatus persists a only while the stored row still has the
	// given status, returning false when another actor transitioned it
	// first. All status transitions go through this guard so a terminal row
	// is never overwritten.
	UpdateIfStatus(ctx context.Context, a *model.VendorDuplicateAnalysis, status string) (bool, error)
}

type analysisRepo struct{ db *gorm.DB }

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository { return &analysisRepo{db: db} }

func (r *analysisRepo) Create(ctx context.Context, a *model.VendorDuplicateAnalysis) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *analysisRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.VendorDuplicateAnalysis, error) {
	var a model.VendorDuplicateAnalysis
	err := r.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrAnalysisNotFound
	}
	return &a, err
}

func (r *analysisRepo) FindLatest(ctx context.Context) (*model.VendorDuplicateAnalysis, error) {
	var a model.VendorDuplicateAnalysis
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrAnalysisNotFound
	}
	return &a, err
}

func (r *analysisRepo) FindActive(ctx context.Context) (*model.VendorDuplicateAnalysis, error) {
	var a model.VendorDuplicateAnalysis
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{model.AnalysisPending, model.AnalysisProcessing}).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analysisRepo) ListStale(ctx context.Context, cutoff time.Time) ([]model.VendorDuplicateAnalysis, error) {
	var stale []model.VendorDuplicateAnalysis
	err := r.db.WithContext(ctx).
		Where("(status = ? AND started_at < ?) OR (status = ? AND created_at < ?)",
			model.AnalysisProcessing, cutoff, model.AnalysisPending, cutoff).
		Find(&stale).Error
	return stale, err
}

func (r *analysisRepo) UpdateIfStatus(ctx context.Context, a *model.VendorDuplicateAnalysis, status string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.VendorDuplicateAnalysis{}).
		Where("id = ? AND status = ?", a.ID, status).
		Select("status", "results", "total_vendors", "comparisons_made",
			"duplicates_found", "error_message", "started_at", "completed_at").
		Updates(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
