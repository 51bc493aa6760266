// Package provider talks to optional always-indexed search tools.
//
// A provider is a fast path only. Every failure it reports is recoverable:
// callers fall back to walking the filesystem.
package provider

import (
	"context"
	"errors"

	"github.com/harrison/scout/internal/models"
)

// ErrUnavailable is returned by Probe when the provider is not installed or
// does not answer in time.
var ErrUnavailable = errors.New("provider unavailable")

// Answer is what a provider returned for one query.
type Answer struct {
	Entries []models.FileEntry
	// Capped is set when the tool stopped at its row cap, so rows past the
	// cap were never seen and an empty or short Entries proves nothing.
	Capped bool
}

// Provider is an external indexed search backend.
type Provider interface {
	// Name identifies the provider in logs and result metadata
	Name() string
	// Probe checks that the provider is installed and responsive
	Probe(ctx context.Context) error
	// Search returns at most q.ResultLimit() entries satisfying every filter of q
	Search(ctx context.Context, q *models.Query) (*Answer, error)
}
