package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
)

// renderMarkdown builds the human-readable run summary.
func renderMarkdown(doc *Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trace Analysis Report\n\nGenerated: %s\n\n", doc.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Input Sources\n\n")
	b.WriteString("| Source | Lines | Records | Skipped |\n|---|---|---|---|\n")
	totalSkipped := 0
	for _, st := range doc.ParseStats {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", st.SourceID, st.Lines, st.Records, st.Skipped)
		totalSkipped += st.Skipped
	}
	fmt.Fprintf(&b, "\nSkipped lines: %d. Discarded records: %d. Unlinked handover triggers: %d.\n\n",
		totalSkipped, doc.DiscardedRecords, doc.UnlinkedTriggers)
	if len(doc.WithheldEntities) > 0 {
		fmt.Fprintf(&b, "Entities withheld after invariant violations: %s.\n\n",
			strings.Join(doc.WithheldEntities, ", "))
	}

	b.WriteString("## Message Distribution\n\n")
	writeDistribution(&b, "RRC message", labelDistribution(doc.Timelines, models.EntryRrc))

	b.WriteString("## Mobility Event Distribution\n\n")
	writeDistribution(&b, "Event", labelDistribution(doc.Timelines, models.EntryMobility))

	b.WriteString("## Performance Metrics\n\n")
	if len(doc.Summaries) == 0 {
		b.WriteString("No metric samples.\n\n")
	} else {
		b.WriteString("| Entity | Metric | Count | Min | Max | Mean | Median | StdDev |\n|---|---|---|---|---|---|---|---|\n")
		for _, s := range doc.Summaries {
			if s.Bucket != nil {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s | %s | %s |\n",
				s.EntityID, s.Metric, s.Count,
				mdFloat(s.Min), mdFloat(s.Max), mdFloat(s.Mean), mdFloat(s.Median), mdFloat(s.StdDev))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Handover Analysis\n\n")
	if len(doc.HandoverStats) == 0 {
		b.WriteString("No handover episodes.\n\n")
	} else {
		b.WriteString("| Entity | Attempts | Success | Failure | Timeout | Aborted | Ping-Pong | Success % | Ping-Pong % |\n|---|---|---|---|---|---|---|---|---|\n")
		for _, hs := range doc.HandoverStats {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d | %d | %s | %s |\n",
				hs.EntityID, hs.Attempts, hs.Successes, hs.Failures, hs.Timeouts, hs.Aborted, hs.PingPong,
				mdFloat(hs.SuccessRate), mdFloat(hs.PingPongRate))
		}
		b.WriteString("\n")
	}

	if len(doc.CommonPatterns) > 0 {
		b.WriteString("## Common Signalling Sequences\n\n")
		writePatterns(&b, doc.CommonPatterns, 10)
	}
	if len(doc.RarePatterns) > 0 {
		b.WriteString("## Rare Signalling Sequences\n\n")
		writePatterns(&b, doc.RarePatterns, 10)
	}

	return b.String()
}

func writeDistribution(b *strings.Builder, header string, dist [][2]string) {
	if len(dist) == 0 {
		b.WriteString("None observed.\n\n")
		return
	}
	fmt.Fprintf(b, "| %s | Count |\n|---|---|\n", header)
	for _, row := range dist {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], row[1])
	}
	b.WriteString("\n")
}

func writePatterns(b *strings.Builder, pats []models.SequencePattern, limit int) {
	b.WriteString("| Sequence | Count | Frequency |\n|---|---|---|\n")
	for i, p := range pats {
		if i >= limit {
			break
		}
		fmt.Fprintf(b, "| %s | %d | %.4f |\n", strings.Join(p.Labels, " > "), p.Count, p.Frequency)
	}
	b.WriteString("\n")
}

func mdFloat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
