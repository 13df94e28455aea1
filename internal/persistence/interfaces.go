// Package persistence provides database abstractions for dealers, their
// inventory and the generated content calendar
package persistence

import (
	"context"
	"errors"
	"time"

	"dealerstudio/internal/core"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// DealerRepository reads dealer storefronts
type DealerRepository interface {
	// Get retrieves a dealer by ID
	Get(ctx context.Context, id string) (*core.DealerContext, error)

	// GetByUserID retrieves the dealer owned by a user account
	GetByUserID(ctx context.Context, userID string) (*core.DealerContext, error)

	// Upsert creates or updates a dealer
	Upsert(ctx context.Context, dealer *core.DealerContext) error
}

// CarRepository reads dealer inventory
type CarRepository interface {
	// ListAvailable returns the dealer's unsold cars, newest first. When ids is
	// non-empty only those cars are returned.
	ListAvailable(ctx context.Context, dealerID string, ids []string) ([]core.Car, error)

	// Upsert creates or updates a car
	Upsert(ctx context.Context, car *core.Car) error
}

// CalendarEntry is one stored content item together with its run metadata
type CalendarEntry struct {
	core.ContentItem
	RunID       string    `json:"run_id"`
	DealerID    string    `json:"dealer_id"`
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Calendar entry statuses
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)

// ContentCalendarRepository stores generated content
type ContentCalendarRepository interface {
	// CreateBatch inserts all entries of one run
	CreateBatch(ctx context.Context, entries []CalendarEntry) error

	// ListByRun returns the entries of one run in insertion order
	ListByRun(ctx context.Context, runID string) ([]CalendarEntry, error)

	// RecentCarIDs returns the cars that still have unexpired content
	RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error)

	// DeleteExpired removes entries that expired before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Database is the full persistence layer
type Database interface {
	Dealers() DealerRepository
	Cars() CarRepository
	ContentCalendar() ContentCalendarRepository

	Close() error
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction groups repository calls that commit together
type Transaction interface {
	Commit() error
	Rollback() error

	Dealers() DealerRepository
	Cars() CarRepository
	ContentCalendar() ContentCalendarRepository
}

// NewCalendarEntries wraps one run's items for storage
func NewCalendarEntries(result core.PipelineResult) []CalendarEntry {
	entries := make([]CalendarEntry, 0, len(result.Content))
	for _, item := range result.Content {
		entries = append(entries, CalendarEntry{
			ContentItem: item,
			RunID:       result.RunID,
			DealerID:    result.DealerID,
			Status:      StatusDraft,
			GeneratedAt: result.GeneratedAt,
			ExpiresAt:   result.ExpiresAt,
		})
	}
	return entries
}
