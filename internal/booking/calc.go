// Package booking handles rental requests: pricing a date range, recording the
// request, paying it from the wallet and moving it through its lifecycle.
package booking

import (
	"time"

	"github.com/gurman-sys/rentbuddy/pkg/models"
)

const day = 24 * time.Hour

// Days returns the number of rental days between start and end: the absolute
// difference, at millisecond precision, rounded up to whole days, never less
// than one.
func Days(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Millisecond)
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return max(n, 1)
}

// Total is the price of renting at rate per day from start to end.
func Total(start, end time.Time, rate float64) float64 {
	return float64(Days(start, end)) * rate
}

// Quote is the priced breakdown of a prospective booking.
type Quote struct {
	ItemID          string    `json:"item_id"`
	ItemTitle       string    `json:"item_title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Days            int       `json:"days"`
	DailyRate       float64   `json:"daily_rate"`
	TotalAmount     float64   `json:"total_amount"`
	SecurityDeposit float64   `json:"security_deposit"`
}

// NewQuote prices renting it over r.
func NewQuote(it models.Item, r models.BookingRange) Quote {
	return Quote{
		ItemID:          it.ID,
		ItemTitle:       it.Title,
		Start:           r.Start,
		End:             r.End,
		Days:            Days(r.Start, r.End),
		DailyRate:       it.Price,
		TotalAmount:     Total(r.Start, r.End, it.Price),
		SecurityDeposit: it.SecurityDeposit,
	}
}
