// Package geo turns the position reported by the client platform into
// coordinates and an approximate address label.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// DefaultTimeout bounds a single resolution.
const DefaultTimeout = 10 * time.Second

// Code identifies why a position could not be obtained.
type Code string

// Platform error codes.
const (
	CodePermissionDenied    Code = "permission_denied"
	CodePositionUnavailable Code = "position_unavailable"
	CodeTimeout             Code = "timeout"
	CodeUnsupported         Code = "unsupported"
	CodeUnknown             Code = "unknown"
)

var messages = map[Code]string{
	CodePermissionDenied:    "Location permission denied",
	CodePositionUnavailable: "Location information unavailable",
	CodeTimeout:             "Location request timed out",
	CodeUnsupported:         "Geolocation is not supported by this browser",
	CodeUnknown:             "Failed to get location",
}

// Error is a geolocation failure carrying the message shown to the user.
type Error struct {
	Code    Code
	Message string
}

// NewError returns the Error for code. Unrecognized codes map to CodeUnknown.
func NewError(code Code) *Error {
	msg, ok := messages[code]
	if !ok {
		code = CodeUnknown
		msg = messages[CodeUnknown]
	}
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied    = NewError(CodePermissionDenied)
	ErrPositionUnavailable = NewError(CodePositionUnavailable)
	ErrTimeout             = NewError(CodeTimeout)
	ErrUnsupported         = NewError(CodeUnsupported)
)

// Reading is what the platform reported: coordinates, or an error code.
type Reading struct {
	Coords *models.Coordinates `json:"coords,omitempty"`
	Error  Code                `json:"error,omitempty"`
}

// Location is a resolved position.
type Location struct {
	Coords  models.Coordinates `json:"coords"`
	Address string             `json:"address"`
}

// Geocoder maps coordinates to an address label.
type Geocoder interface {
	Address(ctx context.Context, c models.Coordinates) (string, error)
}

// Labels are the neighbourhoods MockGeocoder picks from.
var Labels = []string{
	"Connaught Place, New Delhi",
	"Karol Bagh, New Delhi",
	"Lajpat Nagar, New Delhi",
	"Nehru Place, New Delhi",
	"Khan Market, New Delhi",
}

// MockGeocoder returns a random label regardless of the coordinates.
type MockGeocoder struct {
	Labels []string
	IntN   func(n int) int
}

// NewMockGeocoder returns a MockGeocoder over Labels using math/rand/v2.
func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{Labels: Labels, IntN: rand.IntN}
}

func (g *MockGeocoder) Address(ctx context.Context, _ models.Coordinates) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(g.Labels) == 0 {
		return "", errors.New("no address labels")
	}
	return g.Labels[g.IntN(len(g.Labels))], nil
}

// Resolver resolves platform readings.
type Resolver struct {
	geocoder Geocoder
	timeout  time.Duration
}

// NewResolver creates a Resolver. A non-positive timeout uses DefaultTimeout.
func NewResolver(g Geocoder, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{geocoder: g, timeout: timeout}
}

// Timeout returns the resolution deadline.
func (r *Resolver) Timeout() time.Duration { return r.timeout }

// Resolve returns the location for rd or an *Error. A reading that carries an
// error code is reported as is; there is no retry.
func (r *Resolver) Resolve(ctx context.Context, rd Reading) (Location, error) {
	if rd.Error != "" {
		return Location{}, NewError(rd.Error)
	}
	if rd.Coords == nil {
		return Location{}, ErrUnsupported
	}
	if !valid(*rd.Coords) {
		return Location{}, ErrPositionUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addr, err := r.geocoder.Address(ctx, *rd.Coords)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Location{}, ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return Location{}, err
		}
		return Location{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return Location{Coords: *rd.Coords, Address: addr}, nil
}

func valid(c models.Coordinates) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
