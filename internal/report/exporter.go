// Package report serializes analysis results for downstream plotting and
// reporting tooling. It holds no business logic: numbers arrive computed and
// leave at full precision, with nil statistics preserved as empty cells or
// JSON null rather than fabricated zeros.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ranscope/trace-engine/internal/config"
	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/parser"
)

// Document is the full nested result of one analysis run.
type Document struct {
	GeneratedAt      time.Time                `json:"generated_at"`
	ParseStats       []parser.Stats           `json:"parse_stats"`
	DiscardedRecords int                      `json:"discarded_records"`
	UnlinkedTriggers int                      `json:"unlinked_triggers"`
	WithheldEntities []string                 `json:"withheld_entities,omitempty"`
	Summaries        []models.MetricSummary   `json:"metric_summaries"`
	HandoverStats    []models.HandoverStats   `json:"handover_stats"`
	Episodes         []models.HandoverEpisode `json:"handover_episodes"`
	Timelines        []models.Timeline        `json:"timelines"`
	CommonPatterns   []models.SequencePattern `json:"common_patterns,omitempty"`
	RarePatterns     []models.SequencePattern `json:"rare_patterns,omitempty"`
}

// Exporter writes a Document to the configured output directory.
type Exporter struct {
	dir     string
	formats map[string]bool
	logger  *slog.Logger
}

// New constructs an Exporter from the output configuration.
func New(cfg config.OutputConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats[strings.ToLower(f)] = true
	}
	return &Exporter{dir: cfg.Dir, formats: formats, logger: logger}
}

// Export writes every enabled format. The first write error aborts: a
// half-written output directory is worse than none.
func (e *Exporter) Export(doc *Document) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if e.formats[config.OutputCSV] {
		if err := e.exportCSV(doc); err != nil {
			return err
		}
	}
	if e.formats[config.OutputJSON] {
		if err := e.exportJSON(doc); err != nil {
			return err
		}
	}
	if e.formats[config.OutputMarkdown] {
		if err := e.exportMarkdown(doc); err != nil {
			return err
		}
	}
	e.logger.Info("analysis exported", slog.String("dir", e.dir))
	return nil
}

func (e *Exporter) exportCSV(doc *Document) error {
	if err := e.writeCSV("metric_summaries.csv", summaryRows(doc.Summaries)); err != nil {
		return err
	}
	if err := e.writeCSV("handover_episodes.csv", episodeRows(doc.Episodes)); err != nil {
		return err
	}
	if err := e.writeCSV("handover_stats.csv", handoverStatRows(doc.HandoverStats)); err != nil {
		return err
	}
	for _, tl := range doc.Timelines {
		name := "timeline_" + sanitizeName(tl.EntityID) + ".csv"
		if err := e.writeCSV(name, timelineRows(tl)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeCSV(name string, rows [][]string) error {
	f, err := os.Create(filepath.Join(e.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (e *Exporter) exportJSON(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	path := filepath.Join(e.dir, "analysis.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) exportMarkdown(doc *Document) error {
	path := filepath.Join(e.dir, "analysis_report.md")
	if err := os.WriteFile(path, []byte(renderMarkdown(doc)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func summaryRows(summaries []models.MetricSummary) [][]string {
	rows := [][]string{{"entity_id", "metric", "bucket", "count", "min", "max", "mean", "median", "stddev"}}
	for _, s := range summaries {
		bucket := ""
		if s.Bucket != nil {
			bucket = s.Bucket.UTC().Format(time.RFC3339Nano)
		}
		rows = append(rows, []string{
			s.EntityID, string(s.Metric), bucket, strconv.Itoa(s.Count),
			floatCell(s.Min), floatCell(s.Max), floatCell(s.Mean), floatCell(s.Median), floatCell(s.StdDev),
		})
	}
	return rows
}

func episodeRows(episodes []models.HandoverEpisode) [][]string {
	rows := [][]string{{"entity_id", "source_cell", "target_cell", "trigger_time", "command_time", "completion_time", "outcome", "ping_pong", "latency_ms"}}
	for _, ep := range episodes {
		latency := ""
		if ep.Latency != nil {
			latency = strconv.FormatFloat(ep.Latency.Seconds()*1000, 'g', -1, 64)
		}
		rows = append(rows, []string{
			ep.EntityID, ep.SourceCell, ep.TargetCell,
			timeCell(&ep.TriggerTime), timeCell(ep.CommandTime), timeCell(ep.CompletionTime),
			string(ep.Outcome), strconv.FormatBool(ep.PingPong), latency,
		})
	}
	return rows
}

func handoverStatRows(stats []models.HandoverStats) [][]string {
	rows := [][]string{{"entity_id", "attempts", "successes", "failures", "timeouts", "aborted", "ping_pong", "success_rate_pct", "ping_pong_rate_pct", "latency_mean_ms", "latency_stddev_ms"}}
	for _, hs := range stats {
		rows = append(rows, []string{
			hs.EntityID,
			strconv.Itoa(hs.Attempts), strconv.Itoa(hs.Successes), strconv.Itoa(hs.Failures),
			strconv.Itoa(hs.Timeouts), strconv.Itoa(hs.Aborted), strconv.Itoa(hs.PingPong),
			floatCell(hs.SuccessRate), floatCell(hs.PingPongRate),
			floatCell(hs.Latency.Mean), floatCell(hs.Latency.StdDev),
		})
	}
	return rows
}

func timelineRows(tl models.Timeline) [][]string {
	rows := [][]string{{"time", "kind", "label", "causal_link"}}
	for _, entry := range tl.Entries {
		link := ""
		if entry.CausalLink != nil {
			link = strconv.Itoa(*entry.CausalLink)
		}
		rows = append(rows, []string{
			entry.Time.UTC().Format(time.RFC3339Nano),
			string(entry.Kind),
			entry.Label(),
			link,
		})
	}
	return rows
}

// floatCell renders full precision; nil stays an empty cell so consumers can
// tell "no data" from zero.
func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var nameSanitizer = strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")

func sanitizeName(name string) string {
	if name == "" {
		return "unknown"
	}
	return nameSanitizer.Replace(name)
}

// labelDistribution tallies event labels across timelines, split by entry
// kind, sorted by count then label.
func labelDistribution(timelines []models.Timeline, kind models.EntryKind) [][2]string {
	counts := make(map[string]int)
	for _, tl := range timelines {
		for _, entry := range tl.Entries {
			if entry.Kind == kind {
				counts[entry.Label()]++
			}
		}
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	out := make([][2]string, 0, len(labels))
	for _, label := range labels {
		out = append(out, [2]string{label, strconv.Itoa(counts[label])})
	}
	return out
}
