package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/dto"
	"github.com/rilaconsulting/pmpulse/internal/metrics"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
)

// VendorService exposes vendor reads for the review flow plus the canonical
// link manager: the only component allowed to mutate canonical_vendor_id.
// The link operations keep the canonical/duplicate relationship a flat,
// depth-1 forest — no chains, no cycles — purely by write-time checks.
type VendorService interface {
	List(ctx context.Context, canonicalOnly bool) ([]dto.VendorResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error)
	// MarkDuplicate points vendorID at canonicalID. Idempotent when the link
	// already exists. Fails with apierror.ErrSelfReference or
	// apierror.ErrChainCreation on invariant violations.
	MarkDuplicate(ctx context.Context, vendorID, canonicalID uuid.UUID) (*dto.VendorLinkResponse, error)
	// MarkCanonical clears the link. Reports Changed=false, not an error,
	// when the vendor is already canonical.
	MarkCanonical(ctx context.Context, vendorID uuid.UUID) (*dto.VendorLinkResponse, error)
	// ListDuplicates returns every vendor pointing at vendorID. Empty for a
	// vendor that is itself a duplicate — duplicates-of-duplicates are
	// structurally impossible under the depth-1 invariant.
	ListDuplicates(ctx context.Context, vendorID uuid.UUID) ([]dto.VendorResponse, error)
}

type vendorService struct {
	repo repository.VendorRepository
}

func NewVendorService(repo repository.VendorRepository) VendorService {
	return &vendorService{repo: repo}
}

func (s *vendorService) List(ctx context.Context, canonicalOnly bool) ([]dto.VendorResponse, error) {
	vendors, err := s.repo.List(ctx, canonicalOnly)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.VendorResponse, len(vendors))
	for i := range vendors {
		resp[i] = *vendorResponse(&vendors[i])
	}
	return resp, nil
}

func (s *vendorService) Get(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return vendorResponse(vendor), nil
}

func (s *vendorService) MarkDuplicate(ctx context.Context, vendorID, canonicalID uuid.UUID) (*dto.VendorLinkResponse, error) {
	if vendorID == canonicalID {
		metrics.LinkOperations.WithLabelValues("mark_duplicate", "rejected").Inc()
		return nil, apierror.ErrSelfReference
	}

	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	// Already pointing at the same canonical vendor — confirm, don't re-write.
	if vendor.CanonicalVendorID != nil && *vendor.CanonicalVendorID == canonicalID {
		metrics.LinkOperations.WithLabelValues("mark_duplicate", "noop").Inc()
		return linkResponse(vendorID, &canonicalID, false), nil
	}

	// A vendor with duplicates of its own cannot be demoted — that would
	// create a depth-2 chain. Reassign its duplicates first.
	existing, err := s.repo.FindDuplicatesOf(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		metrics.LinkOperations.WithLabelValues("mark_duplicate", "rejected").Inc()
		return nil, apierror.ErrChainCreation
	}

	canonical, err := s.repo.FindByID(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	if canonical.IsDuplicate() {
		metrics.LinkOperations.WithLabelValues("mark_duplicate", "rejected").Inc()
		return nil, apierror.ErrChainCreation
	}

	// The repo re-runs both chain checks inside the transaction, so two
	// concurrent merges cannot both slip past the read above.
	if err := s.repo.LinkToCanonical(ctx, vendorID, canonicalID); err != nil {
		return nil, err
	}
	metrics.LinkOperations.WithLabelValues("mark_duplicate", "applied").Inc()
	return linkResponse(vendorID, &canonicalID, true), nil
}

func (s *vendorService) MarkCanonical(ctx context.Context, vendorID uuid.UUID) (*dto.VendorLinkResponse, error) {
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.IsCanonical() {
		metrics.LinkOperations.WithLabelValues("mark_canonical", "noop").Inc()
		return linkResponse(vendorID, nil, false), nil
	}

	if err := s.repo.ClearCanonical(ctx, vendorID); err != nil {
		return nil, err
	}
	metrics.LinkOperations.WithLabelValues("mark_canonical", "applied").Inc()
	return linkResponse(vendorID, nil, true), nil
}

func (s *vendorService) ListDuplicates(ctx context.Context, vendorID uuid.UUID) ([]dto.VendorResponse, error) {
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.IsDuplicate() {
		return []dto.VendorResponse{}, nil
	}

	duplicates, err := s.repo.FindDuplicatesOf(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.VendorResponse, len(duplicates))
	for i := range duplicates {
		resp[i] = *vendorResponse(&duplicates[i])
	}
	return resp, nil
}

func vendorResponse(v *model.Vendor) *dto.VendorResponse {
	var canonicalID *string
	if v.CanonicalVendorID != nil {
		s := v.CanonicalVendorID.String()
		canonicalID = &s
	}
	return &dto.VendorResponse{
		ID:                   v.ID.String(),
		CompanyName:          v.CompanyName,
		ContactName:          v.ContactName,
		Email:                v.Email,
		Phone:                v.Phone,
		AddressLine:          v.AddressLine,
		City:                 v.City,
		State:                v.State,
		PostalCode:           v.PostalCode,
		Trades:               v.Trades,
		HourlyRate:           v.HourlyRate,
		Active:               v.Active,
		DoNotUse:             v.DoNotUse,
		GLInsuranceExpiresAt: v.GLInsuranceExpiresAt,
		WCInsuranceExpiresAt: v.WCInsuranceExpiresAt,
		CanonicalVendorID:    canonicalID,
		IsCanonical:          v.IsCanonical(),
	}
}

func linkResponse(vendorID uuid.UUID, canonicalID *uuid.UUID, changed bool) *dto.VendorLinkResponse {
	var c *string
	if canonicalID != nil {
		s := canonicalID.String()
		c = &s
	}
	return &dto.VendorLinkResponse{
		VendorID:          vendorID.String(),
		CanonicalVendorID: c,
		Changed:           changed,
	}
}
