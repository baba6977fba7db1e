package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/dedup"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
)

// ── In-memory VendorRepository stub ──────────────────────────────────────────

type stubVendorRepo struct {
	vendors map[uuid.UUID]*model.Vendor
	order   []uuid.UUID
}

func newStubVendorRepo() *stubVendorRepo {
	return &stubVendorRepo{vendors: make(map[uuid.UUID]*model.Vendor)}
}

func (r *stubVendorRepo) add(v *model.Vendor) {
	r.vendors[v.ID] = v
	r.order = append(r.order, v.ID)
}

func (r *stubVendorRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return nil, apierror.ErrVendorNotFound
	}
	return v, nil
}

func (r *stubVendorRepo) List(_ context.Context, canonicalOnly bool) ([]model.Vendor, error) {
	var result []model.Vendor
	for _, id := range r.order {
		v := r.vendors[id]
		if canonicalOnly && v.IsDuplicate() {
			continue
		}
		result = append(result, *v)
	}
	return result, nil
}

func (r *stubVendorRepo) ListCanonicalRecords(_ context.Context, ids []uuid.UUID) ([]dedup.Record, error) {
	requested := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}
	var records []dedup.Record
	for _, id := range r.order {
		v := r.vendors[id]
		if v.IsDuplicate() {
			continue
		}
		if len(ids) > 0 && !requested[v.ID] {
			continue
		}
		records = append(records, dedup.Record{
			ID:          v.ID,
			CompanyName: v.CompanyName,
			ContactName: strOrEmpty(v.ContactName),
			Email:       strOrEmpty(v.Email),
			Phone:       strOrEmpty(v.Phone),
		})
	}
	return records, nil
}

func (r *stubVendorRepo) FindDuplicatesOf(_ context.Context, id uuid.UUID) ([]model.Vendor, error) {
	var result []model.Vendor
	for _, vid := range r.order {
		v := r.vendors[vid]
		if v.CanonicalVendorID != nil && *v.CanonicalVendorID == id {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (r *stubVendorRepo) LinkToCanonical(_ context.Context, vendorID, canonicalID uuid.UUID) error {
	// Mirrors the transactional re-check the real repository performs.
	for _, v := range r.vendors {
		if v.CanonicalVendorID != nil && *v.CanonicalVendorID == vendorID {
			return apierror.ErrChainCreation
		}
	}
	canonical, ok := r.vendors[canonicalID]
	if !ok {
		return apierror.ErrVendorNotFound
	}
	if canonical.IsDuplicate() {
		return apierror.ErrChainCreation
	}
	r.vendors[vendorID].CanonicalVendorID = &canonicalID
	return nil
}

func (r *stubVendorRepo) ClearCanonical(_ context.Context, vendorID uuid.UUID) error {
	r.vendors[vendorID].CanonicalVendorID = nil
	return nil
}

var _ repository.VendorRepository = (*stubVendorRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }

func seedVendor(repo *stubVendorRepo, company string) *model.Vendor {
	v := &model.Vendor{
		ID:          uuid.New(),
		CompanyName: company,
		Active:      true,
	}
	repo.add(v)
	return v
}

func seedDuplicate(repo *stubVendorRepo, company string, canonicalID uuid.UUID) *model.Vendor {
	v := seedVendor(repo, company)
	v.CanonicalVendorID = &canonicalID
	return v
}

func buildVendorSvc() (VendorService, *stubVendorRepo) {
	repo := newStubVendorRepo()
	return NewVendorService(repo), repo
}

// ── MarkDuplicate ────────────────────────────────────────────────────────────

func TestMarkDuplicate(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	dup := seedVendor(repo, "Acme Industrial Supply LLC")

	resp, err := svc.MarkDuplicate(context.Background(), dup.ID, canonical.ID)

	require.NoError(t, err)
	assert.True(t, resp.Changed)
	require.NotNil(t, resp.CanonicalVendorID)
	assert.Equal(t, canonical.ID.String(), *resp.CanonicalVendorID)
	require.NotNil(t, repo.vendors[dup.ID].CanonicalVendorID)
	assert.Equal(t, canonical.ID, *repo.vendors[dup.ID].CanonicalVendorID)
}

func TestMarkDuplicate_SelfReference(t *testing.T) {
	svc, repo := buildVendorSvc()
	v := seedVendor(repo, "Acme Industrial Supply")

	_, err := svc.MarkDuplicate(context.Background(), v.ID, v.ID)

	assert.ErrorIs(t, err, apierror.ErrSelfReference)
}

func TestMarkDuplicate_VendorNotFound(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")

	_, err := svc.MarkDuplicate(context.Background(), uuid.New(), canonical.ID)

	assert.ErrorIs(t, err, apierror.ErrVendorNotFound)
}

func TestMarkDuplicate_CanonicalNotFound(t *testing.T) {
	svc, repo := buildVendorSvc()
	dup := seedVendor(repo, "Acme Industrial Supply LLC")

	_, err := svc.MarkDuplicate(context.Background(), dup.ID, uuid.New())

	assert.ErrorIs(t, err, apierror.ErrVendorNotFound)
}

func TestMarkDuplicate_Idempotent(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	dup := seedDuplicate(repo, "Acme Industrial Supply LLC", canonical.ID)

	resp, err := svc.MarkDuplicate(context.Background(), dup.ID, canonical.ID)

	require.NoError(t, err)
	assert.False(t, resp.Changed)
	require.NotNil(t, resp.CanonicalVendorID)
	assert.Equal(t, canonical.ID.String(), *resp.CanonicalVendorID)
}

func TestMarkDuplicate_VendorWithDuplicatesCannotBeDemoted(t *testing.T) {
	svc, repo := buildVendorSvc()
	target := seedVendor(repo, "Acme Industrial Supply")
	mid := seedVendor(repo, "Acme Supply")
	seedDuplicate(repo, "Acme Supply Inc", mid.ID)

	// mid has a duplicate of its own; demoting it would create a chain.
	_, err := svc.MarkDuplicate(context.Background(), mid.ID, target.ID)

	assert.ErrorIs(t, err, apierror.ErrChainCreation)
	assert.True(t, repo.vendors[mid.ID].IsCanonical(), "rejected merge must not mutate the vendor")
}

func TestMarkDuplicate_TargetIsDuplicate(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	dup := seedDuplicate(repo, "Acme Supply", canonical.ID)
	v := seedVendor(repo, "Acme Supply Co")

	// Pointing v at dup would create a depth-2 chain through canonical.
	_, err := svc.MarkDuplicate(context.Background(), v.ID, dup.ID)

	assert.ErrorIs(t, err, apierror.ErrChainCreation)
	assert.True(t, repo.vendors[v.ID].IsCanonical())
}

func TestMarkDuplicate_Relink(t *testing.T) {
	svc, repo := buildVendorSvc()
	first := seedVendor(repo, "Acme Industrial Supply")
	second := seedVendor(repo, "Acme Industrial")
	dup := seedDuplicate(repo, "Acme Supply", first.ID)

	// Re-pointing an existing duplicate at a different canonical vendor is a
	// normal correction, not a chain.
	resp, err := svc.MarkDuplicate(context.Background(), dup.ID, second.ID)

	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, second.ID, *repo.vendors[dup.ID].CanonicalVendorID)
}

// ── MarkCanonical ────────────────────────────────────────────────────────────

func TestMarkCanonical(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	dup := seedDuplicate(repo, "Acme Supply", canonical.ID)

	resp, err := svc.MarkCanonical(context.Background(), dup.ID)

	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Nil(t, resp.CanonicalVendorID)
	assert.True(t, repo.vendors[dup.ID].IsCanonical())
}

func TestMarkCanonical_AlreadyCanonicalIsNoop(t *testing.T) {
	svc, repo := buildVendorSvc()
	v := seedVendor(repo, "Acme Industrial Supply")

	resp, err := svc.MarkCanonical(context.Background(), v.ID)

	require.NoError(t, err)
	assert.False(t, resp.Changed)
}

func TestMarkCanonical_VendorNotFound(t *testing.T) {
	svc, _ := buildVendorSvc()

	_, err := svc.MarkCanonical(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apierror.ErrVendorNotFound)
}

// ── ListDuplicates ───────────────────────────────────────────────────────────

func TestListDuplicates(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	seedDuplicate(repo, "Acme Supply", canonical.ID)
	seedDuplicate(repo, "Acme Industrial Supply LLC", canonical.ID)
	seedVendor(repo, "Zenith Plumbing")

	resp, err := svc.ListDuplicates(context.Background(), canonical.ID)

	require.NoError(t, err)
	assert.Len(t, resp, 2)
}

func TestListDuplicates_OfDuplicateIsEmpty(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	dup := seedDuplicate(repo, "Acme Supply", canonical.ID)

	resp, err := svc.ListDuplicates(context.Background(), dup.ID)

	require.NoError(t, err)
	assert.Empty(t, resp)
}

// ── Reads ────────────────────────────────────────────────────────────────────

func TestListVendors_CanonicalOnly(t *testing.T) {
	svc, repo := buildVendorSvc()
	canonical := seedVendor(repo, "Acme Industrial Supply")
	seedDuplicate(repo, "Acme Supply", canonical.ID)

	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	canonicalOnly, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, canonicalOnly, 1)
	assert.Equal(t, canonical.ID.String(), canonicalOnly[0].ID)
	assert.True(t, canonicalOnly[0].IsCanonical)
}

func TestGetVendor(t *testing.T) {
	svc, repo := buildVendorSvc()
	v := seedVendor(repo, "Acme Industrial Supply")
	v.Email = strPtr("info@acmesupply.com")

	resp, err := svc.Get(context.Background(), v.ID)

	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial Supply", resp.CompanyName)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "info@acmesupply.com", *resp.Email)
}
