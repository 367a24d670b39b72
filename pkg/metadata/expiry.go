package metadata

import "time"

type ExpiryColor string

const (
	ExpiryRed   ExpiryColor = "red"
	ExpiryAmber ExpiryColor = "amber"
	ExpiryGreen ExpiryColor = "green"
)

// DaysUntilExpiry counts whole calendar days between now and expiry, both taken in UTC.
func DaysUntilExpiry(expiry, now time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

func ExpiryColorFor(days int) ExpiryColor {
	switch {
	case days <= 30:
		return ExpiryRed
	case days <= 90:
		return ExpiryAmber
	default:
		return ExpiryGreen
	}
}
