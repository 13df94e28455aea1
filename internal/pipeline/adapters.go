package pipeline

import (
	"context"
	"fmt"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
)

// DatabaseAdapter wraps internal/persistence to implement DataSource and ContentStore
type DatabaseAdapter struct {
	db persistence.Database
}

func NewDatabaseAdapter(db persistence.Database) *DatabaseAdapter {
	return &DatabaseAdapter{db: db}
}

func (a *DatabaseAdapter) DealerByUserID(ctx context.Context, userID string) (core.DealerContext, error) {
	dealer, err := a.db.Dealers().GetByUserID(ctx, userID)
	if err != nil {
		return core.DealerContext{}, err
	}
	return *dealer, nil
}

func (a *DatabaseAdapter) AvailableCars(ctx context.Context, dealerID string, carIDs []string) ([]core.Car, error) {
	return a.db.Cars().ListAvailable(ctx, dealerID, carIDs)
}

func (a *DatabaseAdapter) RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error) {
	return a.db.ContentCalendar().RecentCarIDs(ctx, dealerID, now)
}

// SaveRun stores every item of the run in one transaction
func (a *DatabaseAdapter) SaveRun(ctx context.Context, result core.PipelineResult) error {
	tx, err := a.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := tx.ContentCalendar().CreateBatch(ctx, persistence.NewCalendarEntries(result)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// StaticSource serves a fixed dealer and inventory, used by the CLI when
// cars are read from a file instead of the database
type StaticSource struct {
	Dealer core.DealerContext
	Cars   []core.Car
}

func (s *StaticSource) DealerByUserID(ctx context.Context, userID string) (core.DealerContext, error) {
	if s.Dealer.UserID != "" && s.Dealer.UserID != userID {
		return core.DealerContext{}, persistence.ErrNotFound
	}
	return s.Dealer, nil
}

func (s *StaticSource) AvailableCars(ctx context.Context, dealerID string, carIDs []string) ([]core.Car, error) {
	if len(carIDs) == 0 {
		return s.Cars, nil
	}
	want := make(map[string]struct{}, len(carIDs))
	for _, id := range carIDs {
		want[id] = struct{}{}
	}
	var out []core.Car
	for _, car := range s.Cars {
		if _, ok := want[car.ID]; ok {
			out = append(out, car)
		}
	}
	return out, nil
}

func (s *StaticSource) RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error) {
	return nil, nil
}
