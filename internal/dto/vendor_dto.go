package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rilaconsulting/pmpulse/internal/dedup"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ScanDuplicatesRequest drives the synchronous, bounded duplicate scan.
// Omitted threshold/limit fall back to the configured defaults. VendorIDs
// optionally restricts the working set; empty means all canonical vendors.
type ScanDuplicatesRequest struct {
	Threshold float64  `json:"threshold"  validate:"omitempty,gte=0.1,lte=1"`
	Limit     int      `json:"limit"      validate:"omitempty,gte=1,lte=500"`
	VendorIDs []string `json:"vendor_ids" validate:"omitempty,dive,uuid"`
}

type StartAnalysisRequest struct {
	Threshold float64 `json:"threshold" validate:"omitempty,gte=0.1,lte=1"`
	Limit     int     `json:"limit"     validate:"omitempty,gte=1,lte=500"`
}

type MarkDuplicateRequest struct {
	CanonicalVendorID string `json:"canonical_vendor_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VendorResponse struct {
	ID                   string           `json:"id"`
	CompanyName          string           `json:"company_name"`
	ContactName          *string          `json:"contact_name"`
	Email                *string          `json:"email"`
	Phone                *string          `json:"phone"`
	AddressLine          *string          `json:"address_line"`
	City                 *string          `json:"city"`
	State                *string          `json:"state"`
	PostalCode           *string          `json:"postal_code"`
	Trades               []string         `json:"trades"`
	HourlyRate           *decimal.Decimal `json:"hourly_rate"`
	Active               bool             `json:"active"`
	DoNotUse             bool             `json:"do_not_use"`
	GLInsuranceExpiresAt *time.Time       `json:"gl_insurance_expires_at"`
	WCInsuranceExpiresAt *time.Time       `json:"wc_insurance_expires_at"`
	CanonicalVendorID    *string          `json:"canonical_vendor_id"`
	IsCanonical          bool             `json:"is_canonical"`
}

// VendorLinkResponse reports the outcome of a canonical-link mutation.
// Changed=false marks the idempotent no-op cases (already linked to the same
// canonical vendor, or already canonical).
type VendorLinkResponse struct {
	VendorID          string  `json:"vendor_id"`
	CanonicalVendorID *string `json:"canonical_vendor_id"`
	Changed           bool    `json:"changed"`
}

type ScanDuplicatesResponse struct {
	TotalVendors    int                `json:"total_vendors"`
	ComparisonsMade int                `json:"comparisons_made"`
	DuplicatesFound int                `json:"duplicates_found"`
	Pairs           []dedup.ScoredPair `json:"pairs"`
}

type AnalysisResponse struct {
	ID              string             `json:"id"`
	RequestedBy     string             `json:"requested_by"`
	Status          string             `json:"status"`
	Threshold       float64            `json:"threshold"`
	Limit           int                `json:"limit"`
	Results         []dedup.ScoredPair `json:"results"`
	TotalVendors    int                `json:"total_vendors"`
	ComparisonsMade int                `json:"comparisons_made"`
	DuplicatesFound int                `json:"duplicates_found"`
	ErrorMessage    *string            `json:"error_message"`
	StartedAt       *time.Time         `json:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at"`
	CreatedAt       time.Time          `json:"created_at"`
}
