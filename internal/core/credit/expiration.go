package credit

import (
	"time"

	"go.jetify.com/typeid/v2"
)

// ExpirationTime returns when a grant issued at now stops counting, or nil
// for a grant that never expires.
func ExpirationTime(now time.Time, validDays int, periodEnd *time.Time) *time.Time {
	if validDays <= 0 {
		return nil
	}
	var t time.Time
	if periodEnd != nil && !periodEnd.IsZero() {
		t = periodEnd.UTC()
	} else {
		t = now.UTC().AddDate(0, 0, validDays)
	}
	return &t
}

// NewTransactionNo returns a sortable, prefixed ledger transaction number.
func NewTransactionNo() (string, error) {
	tid, err := typeid.Generate("ctx")
	if err != nil {
		return "", err
	}
	return tid.String(), nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
