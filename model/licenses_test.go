package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLicenseIsValidAt(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	license := License{Licensee: "holder", Expiry: now.Unix() + 60}

	assert.True(t, license.IsValidAt(now))
	assert.True(t, license.IsValidAt(now.Add(59*time.Second)))
	assert.False(t, license.IsValidAt(now.Add(60*time.Second)))

	license.Revoked = true
	assert.False(t, license.IsValidAt(now))
}

func TestLicenseView(t *testing.T) {
	license := License{
		ID:              4,
		Licensor:        "issuer",
		Licensee:        "holder",
		Expiry:          1700000000,
		DocumentPointer: "QmL",
		Revoked:         true,
	}

	assert.Equal(t, LicenseView{
		Owner:           "holder",
		Expiry:          1700000000,
		DocumentPointer: "QmL",
		Revoked:         true,
	}, license.View())
}
