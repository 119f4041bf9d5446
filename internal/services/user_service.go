package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/models"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrSelfRoleChange = errors.New("cannot change your own role")
	ErrSelfDelete     = errors.New("cannot delete your own account")
)

// UserStats summarizes the account population for the admin dashboard.
type UserStats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalDoctors int64 `json:"total_doctors"`
	TotalNurses  int64 `json:"total_nurses"`
	TotalAdmins  int64 `json:"total_admins"`
	TotalRecords int64 `json:"total_records"`
}

// UserService carries the admin-facing account operations the guard layer
// protects: listing, role changes, and deletion.
type UserService struct {
	db *gorm.DB
}

// NewUserService returns a UserService using the provided DB.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// List returns all accounts, newest first.
func (s *UserService) List() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole changes a user's role. The acting identity may never change
// its own role, regardless of how privileged it is.
func (s *UserService) UpdateRole(actingID, targetID uint, role models.Role) (*models.User, error) {
	if !models.ValidAssignableRole(role) {
		return nil, ErrInvalidRole
	}
	if actingID == targetID {
		return nil, ErrSelfRoleChange
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// Delete removes a user account. Self-deletion is blocked by identity
// comparison, independent of role.
func (s *UserService) Delete(actingID, targetID uint) error {
	if actingID == targetID {
		return ErrSelfDelete
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.db.Delete(&user).Error
}

// Stats returns per-role account counts and the record count.
func (s *UserService) Stats() (*UserStats, error) {
	stats := &UserStats{}
	counts := []struct {
		dest *int64
		role models.Role
	}{
		{&stats.TotalDoctors, models.RoleDoctor},
		{&stats.TotalNurses, models.RoleNurse},
		{&stats.TotalAdmins, models.RoleAdmin},
	}
	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		if err := s.db.Model(&models.User{}).Where("role = ?", c.role).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.Model(&models.PatientRecord{}).Count(&stats.TotalRecords).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
