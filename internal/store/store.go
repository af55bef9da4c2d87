// Package store persists leads and their delivery status. Two drivers
// implement the same interface: Postgres (pgxpool) and SQLite
// (modernc.org/sqlite) for local single-user setups.
package store

import (
	"context"
	"time"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status model.DeliveryStatus `json:"status,omitempty"`
	Niche  string               `json:"niche,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// FetchPendingBatch returns up to limit pending leads in store order
	// (random on Postgres, matching the original selection policy).
	FetchPendingBatch(ctx context.Context, limit int) ([]model.Lead, error)

	// UpdateStatus bulk-updates the status and send timestamp of the given
	// leads. An empty id set is a no-op. Atomic per call.
	UpdateStatus(ctx context.Context, ids []string, status model.DeliveryStatus, at time.Time) error

	// FindPendingByBaseNumber returns pending leads whose phone collapses
	// to the given base number.
	FindPendingByBaseNumber(ctx context.Context, base string) ([]model.Lead, error)

	// InsertLeads bulk-inserts scraped leads and returns the count stored.
	InsertLeads(ctx context.Context, leads []model.Lead) (int64, error)

	// ListLeads returns leads matching the filter, newest first.
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// CountByStatus returns lead counts grouped by delivery status.
	CountByStatus(ctx context.Context) (map[model.DeliveryStatus]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
