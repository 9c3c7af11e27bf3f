package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"strong passphrase", "C0rrect-H0rse#42", true},
		{"too short", "Ab1!xyz", false},
		{"no upper case", "all-lower-case-1!", false},
		{"no lower case", "ALL-UPPER-CASE-1!", false},
		{"no digits", "No-Digits-Here!!", false},
		{"no specials", "NoSpecialsHere12", false},
		{"contains password", "MyPassword!2345", false},
		{"contains qwerty", "Qwerty!23456789x", false},
		{"contains admin uppercased", "SuperADMIN!2345x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("C0rrect-H0rse#42")
	require.NoError(t, err)
	assert.NotEqual(t, "C0rrect-H0rse#42", hash)

	assert.NoError(t, hasher.Compare(hash, "C0rrect-H0rse#42"))
	assert.Error(t, hasher.Compare(hash, "Wrong-Phrase#421"))
}

func TestHashRejectsWeakPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	_, err := hasher.Hash("weak")
	assert.Error(t, err)
}

func TestHasherClampsInvalidCost(t *testing.T) {
	// Out-of-range cost falls back to the bcrypt default instead of
	// failing at hash time.
	hasher := NewBcryptHasher(99)

	hash, err := hasher.Hash("C0rrect-H0rse#42")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(hash, "C0rrect-H0rse#42"))
}
