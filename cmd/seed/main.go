package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Wikid82/aegis/internal/models"
)

func main() {
	db, err := gorm.Open(sqlite.Open("./data/aegis.db"), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.PatientRecord{},
		&models.AuditEvent{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("✓ Database migrated successfully")

	users := []struct {
		email      string
		name       string
		role       models.Role
		department string
		password   string
	}{
		{"admin@aegis.local", "System Admin", models.RoleAdmin, "administration", "admin12345"},
		{"dr.reyes@aegis.local", "Dr. Elena Reyes", models.RoleDoctor, "cardiology", "doctor12345"},
		{"dr.okafor@aegis.local", "Dr. Sam Okafor", models.RoleDoctor, "neurology", "doctor12345"},
		{"nurse.lin@aegis.local", "Nurse Wei Lin", models.RoleNurse, "cardiology", "nurse12345"},
	}

	seeded := map[string]uint{}
	for _, u := range users {
		var existing models.User
		if err := db.Where("email = ?", u.email).First(&existing).Error; err == nil {
			seeded[u.email] = existing.ID
			fmt.Printf("- %s already exists, skipping\n", u.email)
			continue
		}

		user := models.User{
			UUID:       uuid.NewString(),
			Email:      u.email,
			Name:       u.name,
			Role:       u.role,
			Department: u.department,
			Enabled:    true,
		}
		if err := user.SetPassword(u.password); err != nil {
			log.Fatal("Failed to hash password:", err)
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatal("Failed to seed user:", err)
		}
		seeded[u.email] = user.ID
		fmt.Printf("✓ Seeded %s (%s)\n", u.name, u.role)
	}

	records := []models.PatientRecord{
		{
			UUID:             uuid.NewString(),
			PatientName:      "John Appleseed",
			Department:       "cardiology",
			AssignedDoctorID: seeded["dr.reyes@aegis.local"],
			Diagnosis:        "Hypertension",
			Prescription:     "Lisinopril 10mg daily",
			Status:           "active",
		},
		{
			UUID:             uuid.NewString(),
			PatientName:      "Maria Santos",
			Department:       "neurology",
			AssignedDoctorID: seeded["dr.okafor@aegis.local"],
			Diagnosis:        "Chronic migraine",
			Prescription:     "Sumatriptan as needed",
			Status:           "active",
		},
	}
	for _, rec := range records {
		var count int64
		db.Model(&models.PatientRecord{}).Where("patient_name = ?", rec.PatientName).Count(&count)
		if count > 0 {
			fmt.Printf("- record for %s already exists, skipping\n", rec.PatientName)
			continue
		}
		if err := db.Create(&rec).Error; err != nil {
			log.Fatal("Failed to seed patient record:", err)
		}
		fmt.Printf("✓ Seeded record for %s\n", rec.PatientName)
	}

	fmt.Println("✓ Seeding complete")
}
