package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/aegis/internal/api/middleware"
	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// RecordHandler is the doctor-facing record surface. It exists to exercise
// the access scope guard: every read or mutation of a specific record runs
// through the ownership check first.
type RecordHandler struct {
	recordService *services.RecordService
	scopeService  *services.ScopeService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(records *services.RecordService, scope *services.ScopeService) *RecordHandler {
	return &RecordHandler{recordService: records, scopeService: scope}
}

// guardRecord loads the record and runs the ownership check. A scope miss
// has already been audited by the time the 403 goes out.
func (h *RecordHandler) guardRecord(c *gin.Context, id middleware.Identity) (*models.PatientRecord, bool) {
	recordID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return nil, false
	}

	rec, err := h.recordService.Get(uint(recordID))
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return nil, false
		}
		// A failed ownership lookup denies rather than allows.
		c.JSON(http.StatusForbidden, gin.H{"error": "record access denied"})
		return nil, false
	}

	endpoint := c.Request.Method + " " + c.Request.URL.Path
	if err := h.scopeService.AuthorizeRecordAccess(id.Actor(), id.Department, rec, endpoint, c.ClientIP()); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "record access denied"})
		return nil, false
	}
	return rec, true
}

// ListMine returns the records assigned to the acting doctor.
func (h *RecordHandler) ListMine(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	recs, err := h.recordService.ListByDoctor(id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "data": recs})
}

// Get returns one record after the ownership check.
func (h *RecordHandler) Get(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	rec, ok := h.guardRecord(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

type CreateRecordRequest struct {
	PatientName  string `json:"patient_name" binding:"required"`
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Prescription string `json:"prescription" binding:"required"`
	Notes        string `json:"notes"`
}

// Create stores a record assigned to the acting doctor in their department.
func (h *RecordHandler) Create(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := &models.PatientRecord{
		PatientName:      req.PatientName,
		Department:       id.Department,
		AssignedDoctorID: id.UserID,
		Diagnosis:        req.Diagnosis,
		Prescription:     req.Prescription,
		Notes:            req.Notes,
	}
	if err := h.recordService.Create(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create record"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": rec})
}

type UpdateRecordRequest struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
	Status       string `json:"status"`
}

// Update mutates one record after the ownership check.
func (h *RecordHandler) Update(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	rec, ok := h.guardRecord(c, id)
	if !ok {
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Diagnosis != "" {
		rec.Diagnosis = req.Diagnosis
	}
	if req.Prescription != "" {
		rec.Prescription = req.Prescription
	}
	if req.Notes != "" {
		rec.Notes = req.Notes
	}
	if req.Status != "" {
		rec.Status = req.Status
	}

	if err := h.recordService.Update(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}
