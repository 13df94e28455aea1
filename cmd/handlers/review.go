package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"dealerstudio/internal/core"
	"dealerstudio/internal/tui"

	"github.com/spf13/cobra"
)

// NewReviewCmd creates the review command that browses a saved run
func NewReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <result.json>",
		Short: "Browse a generated run in the terminal",
		Long: `Open an interactive viewer for a run saved with 'dealerstudio generate --json'.

Example:
  dealerstudio generate --inventory ./inventory.json --json > run.json
  dealerstudio review run.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadResult(args[0])
			if err != nil {
				return err
			}
			return tui.Run(*result)
		},
	}
}

func loadResult(path string) (*core.PipelineResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	var result core.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result file %s: %w", path, err)
	}
	return &result, nil
}
