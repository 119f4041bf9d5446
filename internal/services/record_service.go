package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/models"
)

// ErrRecordNotFound is returned for lookups of unknown patient records.
var ErrRecordNotFound = errors.New("patient record not found")

// RecordService is the thin stand-in for the external record subsystem. The
// security layer consumes it for ownership lookups; the handlers here exist
// to exercise the guard, not to be a full clinical CRUD surface.
type RecordService struct {
	db *gorm.DB
}

// NewRecordService returns a RecordService using the provided DB.
func NewRecordService(db *gorm.DB) *RecordService {
	return &RecordService{db: db}
}

// Get loads one record by id.
func (s *RecordService) Get(id uint) (*models.PatientRecord, error) {
	var rec models.PatientRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListByDoctor returns the records assigned to one doctor, newest first.
func (s *RecordService) ListByDoctor(doctorID uint) ([]models.PatientRecord, error) {
	var recs []models.PatientRecord
	err := s.db.Where("assigned_doctor_id = ?", doctorID).
		Order("created_at desc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Create stores a new record assigned to the creating doctor.
func (s *RecordService) Create(rec *models.PatientRecord) error {
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = "active"
	}
	return s.db.Create(rec).Error
}

// Update saves changes to an existing record. Scope checks happen before
// this is called.
func (s *RecordService) Update(rec *models.PatientRecord) error {
	return s.db.Save(rec).Error
}
