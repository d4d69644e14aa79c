package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound        = "https://rentbuddy.app/problems/not-found"
	ProblemTypeBadRequest      = "https://rentbuddy.app/problems/bad-request"
	ProblemTypeInternal        = "https://rentbuddy.app/problems/internal-error"
	ProblemTypeUnauthorized    = "https://rentbuddy.app/problems/unauthorized"
	ProblemTypeForbidden       = "https://rentbuddy.app/problems/forbidden"
	ProblemTypeRateLimited     = "https://rentbuddy.app/problems/rate-limited"
	ProblemTypeConflict        = "https://rentbuddy.app/problems/conflict"
	ProblemTypePaymentRequired = "https://rentbuddy.app/problems/insufficient-balance"
	ProblemTypeUnprocessable   = "https://rentbuddy.app/problems/unprocessable"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Code is a machine-readable reason within Type, e.g. "permission_denied".
	Code string `json:"code,omitempty"`
	// Shortfall is set on insufficient-balance problems.
	Shortfall float64 `json:"shortfall,omitempty"`
	// RetryAfterSeconds is set on rate-limited problems when known.
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// Unauthorized writes a 401 problem response.
func Unauthorized(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: instance,
	})
}

// Conflict writes a 409 problem response.
func Conflict(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// PaymentRequired writes a 402 problem response for a balance that cannot
// cover a payment.
func PaymentRequired(w http.ResponseWriter, detail, instance string, shortfall float64) {
	WriteProblem(w, Problem{
		Type:      ProblemTypePaymentRequired,
		Title:     "Insufficient Balance",
		Status:    http.StatusPaymentRequired,
		Detail:    detail,
		Instance:  instance,
		Shortfall: shortfall,
	})
}

// Unprocessable writes a 422 problem response carrying a reason code.
func Unprocessable(w http.ResponseWriter, code, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeUnprocessable,
		Title:    "Unprocessable Entity",
		Status:   http.StatusUnprocessableEntity,
		Detail:   detail,
		Instance: instance,
		Code:     code,
	})
}
