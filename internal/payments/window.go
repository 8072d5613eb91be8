package payments

import (
	"time"

	"github.com/mahafpc/fpo-ledger/internal/records"
)

// earliest returns the first date with activity in snap, or fallback.
func earliest(snap records.Snapshot, fallback time.Time) time.Time {
	first := fallback
	for _, l := range snap.Procurements {
		if l.Date.Before(first) {
			first = l.Date
		}
	}
	for _, p := range snap.Payments {
		if p.Date.Before(first) {
			first = p.Date
		}
	}
	return records.Day(first)
}
