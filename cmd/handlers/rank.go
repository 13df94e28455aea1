package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"dealerstudio/internal/pipeline"
	"dealerstudio/internal/scoring"
	"dealerstudio/internal/selector"

	"github.com/spf13/cobra"
)

// NewRankCmd creates the rank command that previews car selection
func NewRankCmd() *cobra.Command {
	var (
		userID    string
		count     int
		inventory string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a dealer's cars by marketability",
		Long: `Score every available car the way the content pipeline does and print
the ranking. Nothing is generated and no model is called.

Examples:
  # Top 5 cars from the database
  dealerstudio rank --user user_123

  # Every car in an inventory file
  dealerstudio rank --inventory ./inventory.json --count 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), cmd.OutOrStdout(), userID, inventory, count, asJSON)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Dealer account user ID")
	cmd.Flags().IntVarP(&count, "count", "n", -1, "Number of cars to show, 0 for all (default from config: pipeline.max_cars)")
	cmd.Flags().StringVar(&inventory, "inventory", "", "JSON file with a dealer and cars to use instead of the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ranking as JSON")

	return cmd
}

func runRank(ctx context.Context, out io.Writer, userID, inventory string, count int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if count < 0 {
		count = cfg.Pipeline.MaxCars
	}

	var source pipeline.DataSource
	if inventory != "" {
		static, err := loadInventory(inventory)
		if err != nil {
			return err
		}
		if userID == "" {
			userID = static.Dealer.UserID
		}
		source = static
	} else {
		if userID == "" {
			return fmt.Errorf("--user is required when reading from the database")
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		source = pipeline.NewDatabaseAdapter(db)
	}

	ranking, err := rankCars(ctx, source, userID, count, time.Now)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranking)
	}
	fmt.Fprint(out, renderRanking(ranking))
	return nil
}

func rankCars(ctx context.Context, source pipeline.DataSource, userID string, count int, now func() time.Time) (selector.Ranking, error) {
	dealer, err := source.DealerByUserID(ctx, userID)
	if err != nil {
		return selector.Ranking{}, fmt.Errorf("failed to load dealer for user %s: %w", userID, err)
	}
	cars, err := source.AvailableCars(ctx, dealer.ID, nil)
	if err != nil {
		return selector.Ranking{}, fmt.Errorf("failed to load cars for dealer %s: %w", dealer.ID, err)
	}
	return selector.New(scoring.DefaultPolicy(), now).SelectTop(cars, count), nil
}
