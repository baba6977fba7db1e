package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is a party that performs paid work on managed properties
// (contractors, plumbers, electricians, ...). Records are created by the
// external ingestion pipeline; this service only mutates CanonicalVendorID.
type Vendor struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyName string    `gorm:"not null;index"`
	ContactName *string
	Email       *string
	Phone       *string
	AddressLine *string
	City        *string
	State       *string `gorm:"type:varchar(10)"`
	PostalCode  *string `gorm:"type:varchar(20)"`
	// Trades holds trade/category tags, e.g. ["plumbing", "hvac"]
	Trades     []string         `gorm:"type:jsonb;serializer:json"`
	HourlyRate *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Active     bool             `gorm:"not null;default:true"`
	DoNotUse   bool             `gorm:"not null;default:false"`

	GLInsuranceExpiresAt *time.Time `gorm:"column:gl_insurance_expires_at"`
	WCInsuranceExpiresAt *time.Time `gorm:"column:wc_insurance_expires_at"`

	// CanonicalVendorID is nil for canonical (authoritative) vendors.
	// Non-nil marks this record as a duplicate of the referenced vendor.
	// The relationship is kept at depth 1: a vendor with duplicates pointing
	// at it can never itself become a duplicate.
	CanonicalVendorID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Vendor) TableName() string { return "vendors" }

// IsCanonical reports whether this record is the authoritative one.
func (v *Vendor) IsCanonical() bool { return v.CanonicalVendorID == nil }

// IsDuplicate reports whether this record points at a canonical vendor.
func (v *Vendor) IsDuplicate() bool { return v.CanonicalVendorID != nil }
