package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/dedup"
	"github.com/rilaconsulting/pmpulse/internal/model"
)

type VendorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, canonicalOnly bool) ([]model.Vendor, error)
	// ListCanonicalRecords returns the scorer projection of canonical vendors,
	// ordered by creation time for deterministic finder output. An empty ids
	// slice means all canonical vendors.
	ListCanonicalRecords(ctx context.Context, ids []uuid.UUID) ([]dedup.Record, error)
	FindDuplicatesOf(ctx context.Context, id uuid.UUID) ([]model.Vendor, error)
	// LinkToCanonical sets canonical_vendor_id inside a transaction that
	// re-verifies the depth-1 invariant before writing, so two concurrent
	// merges cannot both pass the check.
	LinkToCanonical(ctx context.Context, vendorID, canonicalID uuid.UUID) error
	ClearCanonical(ctx context.Context, vendorID uuid.UUID) error
}

type vendorRepo struct{ db *gorm.DB }

func NewVendorRepository(db *gorm.DB) VendorRepository { return &vendorRepo{db: db} }

func (r *vendorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrVendorNotFound
	}
	return &v, err
}

func (r *vendorRepo) List(ctx context.Context, canonicalOnly bool) ([]model.Vendor, error) {
	q := r.db.WithContext(ctx).Order("company_name")
	if canonicalOnly {
		q = q.Where("canonical_vendor_id IS NULL")
	}
	var vendors []model.Vendor
	err := q.Find(&vendors).Error
	return vendors, err
}

// vendorScanRow mirrors the minimal column set the scorer needs — full
// records are never loaded for a scan.
type vendorScanRow struct {
	ID          uuid.UUID
	CompanyName string
	ContactName *string
	Email       *string
	Phone       *string
}

func (r *vendorRepo) ListCanonicalRecords(ctx context.Context, ids []uuid.UUID) ([]dedup.Record, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Vendor{}).
		Select("id, company_name, contact_name, email, phone").
		Where("canonical_vendor_id IS NULL").
		Order("created_at, id")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}

	var rows []vendorScanRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]dedup.Record, len(rows))
	for i, row := range rows {
		records[i] = dedup.Record{
			ID:          row.ID,
			CompanyName: row.CompanyName,
			ContactName: deref(row.ContactName),
			Email:       deref(row.Email),
			Phone:       deref(row.Phone),
		}
	}
	return records, nil
}

func (r *vendorRepo) FindDuplicatesOf(ctx context.Context, id uuid.UUID) ([]model.Vendor, error) {
	var vendors []model.Vendor
	err := r.db.WithContext(ctx).
		Where("canonical_vendor_id = ?", id).
		Order("company_name").
		Find(&vendors).Error
	return vendors, err
}

func (r *vendorRepo) LinkToCanonical(ctx context.Context, vendorID, canonicalID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction: the vendor being demoted must have
		// no duplicates of its own, and the target must still be canonical.
		var dupCount int64
		if err := tx.Model(&model.Vendor{}).
			Where("canonical_vendor_id = ?", vendorID).
			Count(&dupCount).Error; err != nil {
			return err
		}
		if dupCount > 0 {
			return apierror.ErrChainCreation
		}

		var canonical model.Vendor
		if err := tx.First(&canonical, canonicalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.ErrVendorNotFound
			}
			return err
		}
		if canonical.IsDuplicate() {
			return apierror.ErrChainCreation
		}

		return tx.Model(&model.Vendor{}).
			Where("id = ?", vendorID).
			Update("canonical_vendor_id", canonicalID).Error
	})
}

func (r *vendorRepo) ClearCanonical(ctx context.Context, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).
		Where("id = ?", vendorID).
		Update("canonical_vendor_id", nil).Error
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
