package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// ErrInvalidRange reports a missing, unparseable or past booking date.
var ErrInvalidRange = errors.New("invalid booking range")

// ParseRange parses client-supplied start and end dates. Any format understood
// by dateparse is accepted; dates without a zone are read in loc.
func ParseRange(start, end string, loc *time.Location) (models.BookingRange, error) {
	if start == "" || end == "" {
		return models.BookingRange{}, fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	s, err := dateparse.ParseIn(start, loc)
	if err != nil {
		return models.BookingRange{}, fmt.Errorf("%w: start %q: %v", ErrInvalidRange, start, err)
	}
	e, err := dateparse.ParseIn(end, loc)
	if err != nil {
		return models.BookingRange{}, fmt.Errorf("%w: end %q: %v", ErrInvalidRange, end, err)
	}
	return models.BookingRange{Start: s.UTC(), End: e.UTC()}, nil
}
