package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/dto"
	"github.com/rilaconsulting/pmpulse/internal/service"
)

type VendorsHandler struct {
	svc service.VendorService
}

func NewVendorsHandler(svc service.VendorService) *VendorsHandler {
	return &VendorsHandler{svc: svc}
}

// writeServiceError maps the engine's typed errors onto HTTP statuses.
// Validation failures carry the specific violated rule verbatim — a review
// UI needs to show the reviewer which rule blocked the merge.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apierror.ErrSelfReference) || errors.Is(err, apierror.ErrChainCreation):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, apierror.ErrAnalysisInFlight):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, apierror.ErrVendorNotFound) || errors.Is(err, apierror.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

// List godoc
// @Summary List vendors
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Param canonical query bool false "Only canonical vendors"
// @Success 200 {array} dto.VendorResponse
// @Router /v1/vendors [get]
func (h *VendorsHandler) List(c *gin.Context) {
	canonicalOnly := c.Query("canonical") == "true"
	resp, err := h.svc.List(c.Request.Context(), canonicalOnly)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a vendor
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vendor ID"
// @Success 200 {object} dto.VendorResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/{id} [get]
func (h *VendorsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid vendor id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkDuplicate godoc
// @Summary Mark a vendor as a duplicate of a canonical vendor
// @Tags vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vendor ID"
// @Param body body dto.MarkDuplicateRequest true "Canonical vendor"
// @Success 200 {object} dto.VendorLinkResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/{id}/mark-duplicate [post]
func (h *VendorsHandler) MarkDuplicate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid vendor id"))
		return
	}
	var req dto.MarkDuplicateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	canonicalID, err := uuid.Parse(req.CanonicalVendorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid canonical_vendor_id"))
		return
	}

	resp, err := h.svc.MarkDuplicate(c.Request.Context(), id, canonicalID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkCanonical godoc
// @Summary Clear a vendor's duplicate link, restoring it to canonical
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vendor ID"
// @Success 200 {object} dto.VendorLinkResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/{id}/mark-canonical [post]
func (h *VendorsHandler) MarkCanonical(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid vendor id"))
		return
	}
	resp, err := h.svc.MarkCanonical(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListDuplicates godoc
// @Summary List vendors marked as duplicates of this vendor
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Vendor ID"
// @Success 200 {array} dto.VendorResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/{id}/duplicates [get]
func (h *VendorsHandler) ListDuplicates(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid vendor id"))
		return
	}
	resp, err := h.svc.ListDuplicates(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
