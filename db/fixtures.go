package db

import (
	"context"
	"errors"
	"log"

	"telehealth/models"
)

// fixtureUser is a seeded account with its plaintext password.
type fixtureUser struct {
	record   models.UserRecord
	password string
}

var fixtureUsers = []fixtureUser{
	{
		record: models.UserRecord{
			FullName:    "Jolie Princesse Ishimwe",
			NationalID:  "1234567890123",
			Email:       "jolieprincesseishimwe@gmail.com",
			MedicalCode: "DOC001",
			PhoneNumber: "+250788123456",
			Role:        models.RoleDoctor,
		},
		password: "Jolie1234",
	},
	{
		record: models.UserRecord{
			FullName:    "Hope Ndindabahizi",
			NationalID:  "9876543210987",
			Email:       "hopendindabahizi@gmail.com",
			PhoneNumber: "+250788654321",
			Role:        models.RolePatient,
		},
		password: "Hope12345",
	},
}

// SeedFixtures creates the demo doctor and patient accounts when they are absent.
// Existing accounts are left untouched.
func SeedFixtures(ctx context.Context, users *UserRepository) error {
	for _, f := range fixtureUsers {
		_, err := users.Create(ctx, f.record, f.password)
		switch {
		case err == nil:
			log.Printf("INFO: Seeded fixture %s account %s", f.record.Role, f.record.Email)
		case errors.Is(err, ErrEmailExists):
			log.Printf("DEBUG: Fixture account %s already present", f.record.Email)
		default:
			return err
		}
	}
	return nil
}
