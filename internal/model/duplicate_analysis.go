package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/rilaconsulting/pmpulse/internal/dedup"
)

// Analysis status values. Transitions only move forward:
// pending → processing → completed | failed. Terminal rows are immutable.
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// VendorDuplicateAnalysis tracks one asynchronous batch scan over the full
// canonical vendor set. At most one row may be pending or processing at any
// time; a partial unique index enforces this at the database level (see
// infra.applySchemaPatches).
type VendorDuplicateAnalysis struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequestedBy uuid.UUID `gorm:"type:uuid;not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	Threshold   float64   `gorm:"not null"`
	// Limit is the maximum number of pairs kept in Results
	Limit int `gorm:"column:result_limit;not null"`

	Results []dedup.ScoredPair `gorm:"type:jsonb;serializer:json"`

	TotalVendors    int `gorm:"not null;default:0"`
	ComparisonsMade int `gorm:"not null;default:0"`
	DuplicatesFound int `gorm:"not null;default:0"`

	ErrorMessage *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (VendorDuplicateAnalysis) TableName() string { return "vendor_duplicate_analyses" }

// IsTerminal reports whether the analysis has reached a final state.
func (a *VendorDuplicateAnalysis) IsTerminal() bool {
	return a.Status == AnalysisCompleted || a.Status == AnalysisFailed
}
