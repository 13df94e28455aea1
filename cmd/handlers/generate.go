package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"dealerstudio/internal/logger"
	"dealerstudio/internal/observability"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"

	"github.com/spf13/cobra"
)

type generateOptions struct {
	userID    string
	carIDs    []string
	inventory string
	asJSON    bool
	persist   bool
	showText  bool
}

// NewGenerateCmd creates the generate command that runs the content pipeline once
func NewGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a week of social content for a dealer",
		Long: `Run the weekly content pipeline for one dealer.

The pipeline will:
  • Rank available cars and pick the most marketable ones
  • Write captions for every enabled platform
  • Stage each car's cover photo in a showroom scene
  • Stop at the research, image and final quality checkpoints when a
    threshold is missed

Cars posted during the current validity window are skipped unless cars
are named explicitly with --car.

Examples:
  # Generate from the database
  dealerstudio generate --user user_123

  # Generate for two specific cars and save to the content calendar
  dealerstudio generate --user user_123 --car car_1 --car car_2 --persist

  # Generate from a JSON inventory file without a database
  dealerstudio generate --inventory ./inventory.json --show-text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "Dealer account user ID")
	cmd.Flags().StringSliceVar(&opts.carIDs, "car", nil, "Car ID to generate for (repeatable, bypasses the recent-post filter)")
	cmd.Flags().StringVar(&opts.inventory, "inventory", "", "JSON file with a dealer and cars to use instead of the database")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Save the result to the content calendar")
	cmd.Flags().BoolVar(&opts.showText, "show-text", false, "Print generated captions")

	return cmd
}

func runGenerate(ctx context.Context, out io.Writer, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	builder := pipeline.NewBuilder(cfg)
	userID := opts.userID

	var db *persistence.PostgresDB
	if opts.inventory == "" || opts.persist {
		db, err = openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		builder = builder.WithDatabase(pipeline.NewDatabaseAdapter(db))
	}
	if opts.inventory != "" {
		source, err := loadInventory(opts.inventory)
		if err != nil {
			return err
		}
		if userID == "" {
			userID = source.Dealer.UserID
		}
		builder = builder.WithSource(source)
	}
	if userID == "" {
		if opts.inventory == "" {
			return fmt.Errorf("--user is required when reading from the database")
		}
		userID = "cli"
	}

	analytics, err := observability.NewPostHogClient(cfg.Analytics.PostHog)
	if err != nil {
		logger.Warn("PostHog disabled", "error", err.Error())
	} else {
		defer func() { _ = analytics.Close() }()
		if analytics.IsEnabled() {
			builder = builder.WithAnalytics(analytics)
		}
	}

	p, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build content pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	result, err := p.GenerateWeeklyContent(ctx, userID, opts.carIDs)
	if err != nil {
		var qe *pipeline.QualityBelowThresholdError
		if errors.As(err, &qe) {
			fmt.Fprintln(out, failStyle.Render(fmt.Sprintf("❌ %s checkpoint failed: %s %.1f < %.1f",
				qe.Checkpoint, qe.Metric, qe.Value, qe.Threshold)))
		}
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		fmt.Fprint(out, renderResult(result, opts.showText))
	}

	if opts.persist {
		if err := p.Persist(ctx, result); err != nil {
			return err
		}
		if !opts.asJSON {
			fmt.Fprintf(out, "\n💾 Saved %d items to the content calendar\n", len(result.Content))
		}
	}
	return nil
}
