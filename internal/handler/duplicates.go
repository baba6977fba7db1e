package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rilaconsulting/pmpulse/internal/apierror"
	"github.com/rilaconsulting/pmpulse/internal/dto"
	"github.com/rilaconsulting/pmpulse/internal/middleware"
	"github.com/rilaconsulting/pmpulse/internal/service"
)

type DuplicatesHandler struct {
	svc service.DedupService
}

func NewDuplicatesHandler(svc service.DedupService) *DuplicatesHandler {
	return &DuplicatesHandler{svc: svc}
}

// Scan godoc
// @Summary Run a synchronous, bounded duplicate scan
// @Tags duplicates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ScanDuplicatesRequest true "Scan parameters"
// @Success 200 {object} dto.ScanDuplicatesResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/vendors/duplicates/scan [post]
func (h *DuplicatesHandler) Scan(c *gin.Context) {
	var req dto.ScanDuplicatesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ScanDuplicates(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StartAnalysis godoc
// @Summary Start an asynchronous duplicate analysis over all canonical vendors
// @Tags duplicates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.StartAnalysisRequest true "Analysis parameters"
// @Success 201 {object} dto.AnalysisResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/vendors/duplicates/analyses [post]
func (h *DuplicatesHandler) StartAnalysis(c *gin.Context) {
	var req dto.StartAnalysisRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	requestedBy, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("malformed token"))
		return
	}

	resp, err := h.svc.StartAnalysis(c.Request.Context(), requestedBy, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetAnalysis godoc
// @Summary Get a duplicate analysis by id
// @Tags duplicates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Analysis ID"
// @Success 200 {object} dto.AnalysisResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/duplicates/analyses/{id} [get]
func (h *DuplicatesHandler) GetAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid analysis id"))
		return
	}
	resp, err := h.svc.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetLatestAnalysis godoc
// @Summary Get the most recently requested duplicate analysis
// @Tags duplicates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AnalysisResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/vendors/duplicates/analyses/latest [get]
func (h *DuplicatesHandler) GetLatestAnalysis(c *gin.Context) {
	resp, err := h.svc.GetLatestAnalysis(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
