package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the read-mostly account record consumed for role and department
// lookups. Credential management beyond login lives outside this service.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UUID         string `json:"uuid" gorm:"uniqueIndex"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"` // never serialized
	Name         string `json:"name"`
	Role         Role   `json:"role" gorm:"default:'nurse'"`

	// Department doubles as a doctor's specialization and scopes which
	// patient records the account may touch.
	Department string `json:"department"`
	Enabled    bool   `json:"enabled" gorm:"default:true"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SetPassword hashes and sets the user's password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the provided password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
