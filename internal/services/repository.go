// Package services provides repository interfaces and SQLite implementations
// for the state RentBuddy keeps outside individual modules: the per-user
// key-value store and the profile collaborator.
package services

import "errors"

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int // Max results per page (default 50, max 500).
	Offset int // Number of results to skip.
}

// ListResult wraps a paginated result set with a total count.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Sentinel errors returned by repositories.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// NormalizeListOptions applies defaults and caps to list options.
func NormalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
