package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a pool report as Markdown string.
func RenderMarkdown(r *PoolReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Reward Distribution Report: %s\n\n", r.PoolID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Funding events: %d | Claims: %d | Live positions: %d\n\n",
		r.FundingEvents, r.Claims, r.LivePositions))

	// Per-mint breakdown
	sb.WriteString("## Reward Mints\n\n")
	sb.WriteString("| Mint | Funded | Claimed | Outstanding | Residual | Claimed % |\n")
	sb.WriteString("|------|--------|---------|-------------|----------|-----------|\n")
	for _, m := range r.Mints {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			m.Mint, m.TotalFunded, m.TotalClaimed, m.TotalOutstanding, m.Residual, m.ClaimedShare))
	}
	sb.WriteString("\n")

	if r.Conserved {
		sb.WriteString("**Conservation holds.** Nothing paid or owed beyond what was funded.\n")
	} else {
		sb.WriteString("**CONSERVATION VIOLATION.** At least one mint has a negative residual.\n")
	}

	return sb.String()
}

// RenderCSV renders the per-mint summaries as CSV string.
func RenderCSV(r *PoolReport) string {
	var sb strings.Builder

	sb.WriteString("pool_id,mint,funded,claimed,outstanding,residual,claimed_share\n")
	for _, m := range r.Mints {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
			r.PoolID, m.Mint, m.TotalFunded, m.TotalClaimed, m.TotalOutstanding, m.Residual, m.ClaimedShare))
	}

	return sb.String()
}
