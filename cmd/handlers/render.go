package handlers

import (
	"fmt"
	"strings"

	"dealerstudio/internal/core"
	"dealerstudio/internal/selector"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	captionStyle = lipgloss.NewStyle().Width(72).PaddingLeft(2).Foreground(lipgloss.Color("252"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(0, 1)
)

// renderResult formats a finished run for the terminal
func renderResult(result *core.PipelineResult, showText bool) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🚗 Weekly content for dealer " + result.DealerID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Run:"), result.RunID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Valid until:"), result.ExpiresAt.Format("Mon 02 Jan 2006 15:04"))
	b.WriteString("\n")

	for _, item := range result.Content {
		icon := okStyle.Render("✅")
		if !item.Success {
			icon = failStyle.Render("❌")
		}
		image := string(item.ImageStatus)
		if item.ImageStatus == core.ImageFallback {
			image = warnStyle.Render(image)
		}
		cached := ""
		if item.Cached {
			cached = labelStyle.Render(" (cached)")
		}
		fmt.Fprintf(&b, "%s %-10s %-16s image:%s cost:$%s%s\n",
			icon, item.Platform, item.CarID, image, item.Cost.StringFixed(4), cached)
		if showText && item.Text != "" {
			b.WriteString(captionStyle.Render(item.Text))
			b.WriteString("\n")
		}
		for _, e := range item.Errors {
			b.WriteString(failStyle.Render("   ⚠ " + e))
			b.WriteString("\n")
		}
	}
	if len(result.SkippedCars) > 0 {
		fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("Skipped cars:"), strings.Join(result.SkippedCars, ", "))
	}

	b.WriteString("\n")
	b.WriteString(renderQuality(result.QualityMetrics))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s $%s\n", labelStyle.Render("Total cost:"), result.TotalCost.StringFixed(4))
	return b.String()
}

func renderQuality(q core.QualitySummary) string {
	m := q.Metrics
	rows := []string{
		fmt.Sprintf("Text uniqueness     %6.1f", m.TextUniqueness),
		fmt.Sprintf("Accuracy            %6.1f", m.Accuracy),
		fmt.Sprintf("Brand compliance    %6.1f", m.BrandCompliance),
		fmt.Sprintf("Engagement          %6.1f", m.Engagement),
		fmt.Sprintf("Regional relevance  %6.1f", m.RegionalRelevance),
		fmt.Sprintf("Image success rate  %6.1f%%", m.ImageSuccessRate),
		fmt.Sprintf("Research score      %6.1f", m.ResearchScore),
	}
	verdict := okStyle.Render("Approved")
	if !q.Report.Approved {
		verdict = failStyle.Render("Not approved")
	}
	rows = append(rows, "", fmt.Sprintf("Overall %.1f · %s", q.Report.Overall, verdict))

	out := panelStyle.Render(strings.Join(rows, "\n"))
	if len(q.Report.Suggestions) > 0 {
		out += "\n" + labelStyle.Render("Suggestions:")
		for _, s := range q.Report.Suggestions {
			out += "\n  • " + s
		}
	}
	return out + "\n"
}

// renderRanking formats selector output as a table
func renderRanking(r selector.Ranking) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📊 Car Ranking"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-4s %-16s %-32s %6s %6s %6s %6s %6s %6s %5s\n",
		"#", "ID", "Car", "Price", "Brand", "Cond", "Verif", "Demand", "Total", "Sale%")
	for i, s := range r.Scores {
		fmt.Fprintf(&b, "%-4d %-16s %-32s %6.1f %6.1f %6.1f %6.1f %6.1f %6.2f %5.0f\n",
			i+1, s.Car.ID, truncateLabel(s.Car.DisplayName(), 32),
			s.Price, s.Brand, s.Condition, s.Verification, s.Demand, s.Total, s.Probability)
	}
	if len(r.Scores) == 0 {
		b.WriteString(labelStyle.Render("No eligible cars"))
		b.WriteString("\n")
	}
	for _, sk := range r.Skipped {
		b.WriteString(warnStyle.Render(fmt.Sprintf("⏭  %s skipped: %s", sk.CarID, sk.Reason)))
		b.WriteString("\n")
	}
	return b.String()
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
