package helpers

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedUser creates an active user whose password is "secret".
func SeedUser(t *testing.T, s store.Store, username string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: string(hash), IsActive: true}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// SeedLead creates a lead; mutate adjusts the defaults before insert.
func SeedLead(t *testing.T, s store.Store, crmID string, mutate func(*domain.Lead)) *domain.Lead {
	t.Helper()

	lo, hi := 500000.0, 800000.0
	lead := &domain.Lead{
		CRMID:              crmID,
		FirstName:          "Asha",
		LastName:           "Menon",
		Email:              crmID + "@example.com",
		PhoneNumber:        "+971 50-123-4567",
		ProjectEnquired:    domain.ProjectSobhaWaves,
		UnitType:           domain.UnitTwoBed,
		Status:             domain.LeadStatusNotConnected,
		BudgetMin:          &lo,
		BudgetMax:          &hi,
		LocationPreference: "Dubai Marina",
		ProfileMetadata:    map[string]any{},
	}
	if mutate != nil {
		mutate(lead)
	}
	if err := s.CreateLead(context.Background(), lead); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	return lead
}
