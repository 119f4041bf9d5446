package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Wikid82/aegis/internal/models"
)

func TestScopeService_OwnerAllowed(t *testing.T) {
	db := setupAuditTestDB(t)
	audit := NewAuditService(db)
	svc := NewScopeService(audit, nil)

	actor := Actor{ID: 7, Name: "Dr. Reyes", Role: models.RoleDoctor}
	record := &models.PatientRecord{ID: 1, Department: "cardiology", AssignedDoctorID: 7}

	err := svc.AuthorizeRecordAccess(actor, "cardiology", record, "GET /api/v1/doctor/records/1", "10.0.0.7")
	assert.NoError(t, err)

	var count int64
	db.Model(&models.AuditEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestScopeService_AdminBypass(t *testing.T) {
	db := setupAuditTestDB(t)
	audit := NewAuditService(db)
	svc := NewScopeService(audit, nil)

	actor := Actor{ID: 3, Name: "System Admin", Role: models.RoleAdmin}
	record := &models.PatientRecord{ID: 1, Department: "cardiology", AssignedDoctorID: 7}

	err := svc.AuthorizeRecordAccess(actor, "administration", record, "GET /api/v1/doctor/records/1", "10.0.0.2")
	assert.NoError(t, err)

	var count int64
	db.Model(&models.AuditEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestScopeService_CrossDoctorDenied(t *testing.T) {
	db := setupAuditTestDB(t)
	audit := NewAuditService(db)
	svc := NewScopeService(audit, nil)

	actor := Actor{ID: 8, Name: "Dr. Okafor", Role: models.RoleDoctor}
	record := &models.PatientRecord{ID: 1, Department: "cardiology", AssignedDoctorID: 7}

	err := svc.AuthorizeRecordAccess(actor, "neurology", record, "GET /api/v1/doctor/records/1", "10.0.0.8")
	assert.ErrorIs(t, err, ErrRecordScope)

	var events []models.AuditEvent
	assert.NoError(t, db.Find(&events).Error)
	assert.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, models.ActionUnauthorizedAccess, e.Action)
	assert.True(t, e.Flagged)
	assert.False(t, e.Resolved)
	assert.Equal(t, "attempted access to record in department cardiology from department neurology", e.FlagReason)
	assert.Equal(t, "GET /api/v1/doctor/records/1", e.Endpoint)
	assert.Equal(t, "10.0.0.8", e.SourceIP)
	assert.Equal(t, uint(8), *e.ActorID)
}

func TestScopeService_SameDepartmentNotAssignedDenied(t *testing.T) {
	db := setupAuditTestDB(t)
	audit := NewAuditService(db)
	svc := NewScopeService(audit, nil)

	// Department alone is not enough; the record must be assigned to the actor.
	actor := Actor{ID: 9, Name: "Dr. Chen", Role: models.RoleDoctor}
	record := &models.PatientRecord{ID: 1, Department: "cardiology", AssignedDoctorID: 7}

	err := svc.AuthorizeRecordAccess(actor, "cardiology", record, "GET /api/v1/doctor/records/1", "10.0.0.9")
	assert.ErrorIs(t, err, ErrRecordScope)
}
