package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phenomenon0/edgeboard/pkg/edge"
)

// BuildAnalysisBlock renders the scan result as a plain-text block for
// the dashboard's analysis pane. Signals are ordered by net edge.
func BuildAnalysisBlock(signals []*edge.Signal, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "EDGE SCAN %s\n", now.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 46))

	if len(signals) == 0 {
		b.WriteString("No edges above threshold.\n")
		return b.String()
	}

	ordered := make([]*edge.Signal, len(signals))
	copy(ordered, signals)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].NetEdgePct > ordered[j].NetEdgePct
	})

	for i, sig := range ordered {
		fmt.Fprintf(&b, "\n#%d %s [%s]\n", i+1, sig.Selection, strings.ToUpper(sig.Sport))
		if sig.Question != "" {
			fmt.Fprintf(&b, "   %s\n", sig.Question)
		}
		fmt.Fprintf(&b, "   book %s @ %.2f | market prob %.1f%% | fair %.1f%%\n",
			sig.Bookmaker, sig.BookOdds, sig.PolyPrice*100, sig.FairProb*100)
		fmt.Fprintf(&b, "   edge %.2f%% gross / %.2f%% net | EV $%.2f per $100 | stake $%s\n",
			sig.GrossEdgePct, sig.NetEdgePct, sig.EVPer100, sig.KellyStake.StringFixed(2))
		fmt.Fprintf(&b, "   confidence %d | urgency %s | %s\n",
			sig.Confidence, sig.Urgency, sig.Decision)
		if !sig.EventTime.IsZero() {
			fmt.Fprintf(&b, "   starts %s (%.1fh)\n",
				sig.EventTime.Format("Mon 15:04 MST"), sig.EventTime.Sub(now).Hours())
		}
	}

	return b.String()
}
