package handlers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"dealerstudio/internal/research"
	"dealerstudio/internal/scoring"

	"github.com/spf13/cobra"
)

// NewSeasonCmd creates the season command
func NewSeasonCmd() *cobra.Command {
	var (
		month int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "season",
		Short: "Show the demand season used in captions",
		Long: `Print the demand season detected for a month and the message that is
woven into captions during it.

Examples:
  # Current month
  dealerstudio season

  # October
  dealerstudio season --month 10

  # The whole year
  dealerstudio season --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				fmt.Fprint(cmd.OutOrStdout(), renderSeasonCalendar(scoring.DefaultPolicy()))
				return nil
			}
			m := time.Now().Month()
			if month != 0 {
				if month < 1 || month > 12 {
					return fmt.Errorf("--month must be between 1 and 12, got %d", month)
				}
				m = time.Month(month)
			}
			return printSeason(cmd.OutOrStdout(), scoring.DefaultPolicy(), m)
		},
	}

	cmd.Flags().IntVarP(&month, "month", "m", 0, "Month number 1-12 (default: current month)")
	cmd.Flags().BoolVar(&all, "all", false, "Show every month")

	return cmd
}

func printSeason(out io.Writer, policy *scoring.Policy, month time.Month) error {
	season := research.DetectSeason(policy.Seasons, month)
	fmt.Fprintln(out, titleStyle.Render("📅 "+month.String()))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Season:"), season.Kind)
	fmt.Fprintf(out, "%s %.2f\n", labelStyle.Render("Demand multiplier:"), season.Multiplier)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Message:"), season.Message)
	return nil
}

func renderSeasonCalendar(policy *scoring.Policy) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📅 Season Calendar"))
	b.WriteString("\n")
	for m := time.January; m <= time.December; m++ {
		season := research.DetectSeason(policy.Seasons, m)
		fmt.Fprintf(&b, "%-10s %-10s x%.2f\n", m.String(), season.Kind, season.Multiplier)
	}
	return b.String()
}
