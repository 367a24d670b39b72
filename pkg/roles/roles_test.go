package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required Role
		want     bool
	}{
		{"pharmacist as pharmacist", Pharmacist, Pharmacist, true},
		{"pharmacist as tech", Pharmacist, PharmacyTech, true},
		{"tech as pharmacist", PharmacyTech, Pharmacist, false},
		{"nurse as nurse", Nurse, Nurse, true},
		{"nurse as tech", Nurse, PharmacyTech, false},
		{"unknown role", Role("ADMIN"), Nurse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.HasPermission(tt.required))
		})
	}
}

func TestNewRole(t *testing.T) {
	r, err := NewRole(" pharmacy_tech ")
	assert.NoError(t, err)
	assert.Equal(t, PharmacyTech, r)

	_, err = NewRole("doctor")
	assert.Error(t, err)
}
