package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rilaconsulting/pmpulse/internal/model"
)

func TestReapStale_FailsStuckProcessing(t *testing.T) {
	repo := newFakeAnalysisRepo()
	started := time.Now().UTC().Add(-2 * time.Hour)
	a := &model.VendorDuplicateAnalysis{
		ID:          uuid.New(),
		RequestedBy: uuid.New(),
		Status:      model.AnalysisProcessing,
		StartedAt:   &started,
		CreatedAt:   started,
	}
	repo.analyses[a.ID] = a

	reapStale(context.Background(), repo, 30*time.Minute)

	stored := repo.analyses[a.ID]
	assert.Equal(t, model.AnalysisFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "processing deadline")
	require.NotNil(t, stored.CompletedAt)
}

func TestReapStale_FailsOrphanedPending(t *testing.T) {
	// A pending row whose queued job was lost (worker crash after the pop, or
	// a crash between record creation and enqueue) would hold the
	// single-analysis admission slot forever.
	repo := newFakeAnalysisRepo()
	a := &model.VendorDuplicateAnalysis{
		ID:          uuid.New(),
		RequestedBy: uuid.New(),
		Status:      model.AnalysisPending,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	repo.analyses[a.ID] = a

	reapStale(context.Background(), repo, 30*time.Minute)

	stored := repo.analyses[a.ID]
	assert.Equal(t, model.AnalysisFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "not picked up")
	require.NotNil(t, stored.CompletedAt)
}

func TestReapStale_LeavesFreshAndTerminalAlone(t *testing.T) {
	repo := newFakeAnalysisRepo()
	now := time.Now().UTC()
	old := now.Add(-2 * time.Hour)

	fresh := &model.VendorDuplicateAnalysis{
		ID:        uuid.New(),
		Status:    model.AnalysisProcessing,
		StartedAt: &now,
		CreatedAt: now,
	}
	done := &model.VendorDuplicateAnalysis{
		ID:          uuid.New(),
		Status:      model.AnalysisCompleted,
		StartedAt:   &old,
		CompletedAt: &old,
		CreatedAt:   old,
	}
	repo.analyses[fresh.ID] = fresh
	repo.analyses[done.ID] = done

	reapStale(context.Background(), repo, 30*time.Minute)

	assert.Equal(t, model.AnalysisProcessing, repo.analyses[fresh.ID].Status)
	assert.Equal(t, model.AnalysisCompleted, repo.analyses[done.ID].Status)
}
