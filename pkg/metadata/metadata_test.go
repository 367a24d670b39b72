package metadata

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDiscardReason(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DiscardReason
		wantErr bool
	}{
		{"exact", "Expired", DiscardExpired, false},
		{"lower case", "fridge failure", DiscardFridgeFailure, false},
		{"extra spaces", "  Broken/Damaged ", DiscardBroken, false},
		{"collapsed inner spaces", "Fridge   Failure", DiscardFridgeFailure, false},
		{"unknown", "stolen", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDiscardReason(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, got.IsValid())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLocationType(t *testing.T) {
	tests := []struct {
		input   string
		want    LocationType
		wantErr bool
	}{
		{"HUB", LocationHub, false},
		{"ward", LocationWard, false},
		{" Remote ", LocationRemote, false},
		{"clinic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NewLocationType(tt.input)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, LocationHub.NeedsParentHub())
	assert.True(t, LocationWard.NeedsParentHub())
	assert.True(t, LocationRemote.NeedsParentHub())
}

func TestStatuses(t *testing.T) {
	s, err := NewVialStatus("used_clinical")
	assert.NoError(t, err)
	assert.Equal(t, VialUsedClinical, s)
	assert.True(t, s.IsTerminal())
	assert.False(t, VialInTransit.IsTerminal())

	_, err = NewVialStatus("lost")
	assert.Error(t, err)

	ts, err := NewTransferStatus("pending")
	assert.NoError(t, err)
	assert.False(t, ts.IsTerminal())
	assert.True(t, TransferCancelled.IsTerminal())
	assert.True(t, TransferCompleted.IsTerminal())
}

var assetIDPattern = regexp.MustCompile(`^[A-Z0-9]{3}-[A-Z0-9]{5}-\d+-[0-9A-F]{8}$`)

func TestNewAssetID(t *testing.T) {
	tests := []struct {
		name     string
		drug     string
		location string
		prefix   string
	}{
		{"plain names", "Tenecteplase", "Whyalla Hospital", "TEN-WHYAL-"},
		{"punctuation skipped", "Anti-D (IgG)", "Ward 4B", "ANT-WARD4-"},
		{"short names padded", "X", "ICU", "XXX-ICUXX-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewAssetID(tt.drug, tt.location, 1760000000).String()
			assert.Regexp(t, assetIDPattern, id)
			assert.Contains(t, id, tt.prefix+"1760000000-")
		})
	}
}

func TestNewAssetIDIsUniqueForSameInputs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id := NewAssetID("Tenecteplase", "Port Augusta", 42).String()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate asset id %s", id)
		seen[id] = struct{}{}
	}
}

func TestExpiryColor(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		days   int
		color  ExpiryColor
	}{
		{"expired", now.AddDate(0, 0, -2), -2, ExpiryRed},
		{"thirty days", now.AddDate(0, 0, 30), 30, ExpiryRed},
		{"thirty one days", now.AddDate(0, 0, 31), 31, ExpiryAmber},
		{"ninety days", now.AddDate(0, 0, 90), 90, ExpiryAmber},
		{"far away", now.AddDate(1, 0, 0), 365, ExpiryGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := DaysUntilExpiry(tt.expiry, now)
			assert.Equal(t, tt.days, days)
			assert.Equal(t, tt.color, ExpiryColorFor(days))
		})
	}
}
