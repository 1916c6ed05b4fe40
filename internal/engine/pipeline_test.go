package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ranscope/trace-engine/internal/config"
	"github.com/ranscope/trace-engine/internal/models"
)

const ueLogFixture = `2026-03-14 10:00:00.000000 [PHY] RSRP: -85.5 SINR: 21.3
2026-03-14 10:00:01.000000 [RRC] RRC Connection Request
this line is noise and has no timestamp
2026-03-14 10:00:05.200000 [RRC] Handover from gNB gnb1 to gNB gnb2
2026-03-14 10:00:05.600000 [RRC] RRC Connection Reconfiguration Complete
`

const mobilityFixture = `[
  {"timestamp": "2026-03-14 10:00:00.500000", "event_type": "UE_START", "details": {"ue_id": 1}},
  {"timestamp": "2026-03-14 10:00:05.000000", "event_type": "HANDOVER", "details": {"ue_id": 1, "from_gnb": "gnb1", "to_gnb": "gnb2"}}
]
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	ueLog := writeFixture(t, dir, "ue1.log", ueLogFixture)
	mobility := writeFixture(t, dir, "mobility.json", mobilityFixture)

	cfg := &config.Config{
		Output: config.OutputConfig{
			Dir:             outDir,
			Formats:         []string{config.OutputCSV, config.OutputJSON, config.OutputMarkdown},
			MetricsTextfile: filepath.Join(outDir, "run_metrics.prom"),
		},
		Sources: []config.SourceConfig{
			{Path: ueLog, EntityID: "ue1", Role: "ue", Format: config.FormatUELog},
			{Path: mobility, Format: config.FormatMobilityJSON},
		},
		Correlation: config.CorrelationConfig{ToleranceWindow: 500 * time.Millisecond},
		Handover: config.HandoverConfig{
			PendingTimeout:   5 * time.Second,
			ExecutingTimeout: 5 * time.Second,
			PingPongWindow:   30 * time.Second,
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p, err := NewPipeline(cfg, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	doc, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The noise line is counted, not fatal.
	var ueStats, mobStats int
	for _, st := range doc.ParseStats {
		switch st.SourceID {
		case "ue1:ue-log":
			ueStats = st.Skipped
			if st.Lines != 5 || st.Records != 4 {
				t.Errorf("ue log stats = %+v", st)
			}
		case "mobility.json:mobility-json":
			mobStats = st.Records
		}
	}
	if ueStats != 1 {
		t.Errorf("ue log skipped = %d, want 1", ueStats)
	}
	if mobStats != 2 {
		t.Errorf("mobility records = %d, want 2", mobStats)
	}

	if len(doc.Episodes) != 1 {
		t.Fatalf("episodes = %d, want 1: %+v", len(doc.Episodes), doc.Episodes)
	}
	ep := doc.Episodes[0]
	if ep.EntityID != "ue1" || ep.Outcome != models.HandoverSuccess {
		t.Errorf("episode = %+v, want ue1 success", ep)
	}
	if ep.Latency == nil || *ep.Latency != 600*time.Millisecond {
		t.Errorf("latency = %v, want 600ms", ep.Latency)
	}
	if doc.UnlinkedTriggers != 0 {
		t.Errorf("unlinked = %d, want 0", doc.UnlinkedTriggers)
	}

	// RSRP and SINR summaries for ue1.
	foundRSRP := false
	for _, s := range doc.Summaries {
		if s.EntityID == "ue1" && s.Metric == models.MetricRSRP {
			foundRSRP = true
			if s.Count != 1 || s.Mean == nil || *s.Mean != -85.5 {
				t.Errorf("RSRP summary = %+v", s)
			}
		}
	}
	if !foundRSRP {
		t.Error("RSRP summary missing")
	}

	for _, name := range []string{
		"analysis.json",
		"analysis_report.md",
		"metric_summaries.csv",
		"handover_episodes.csv",
		"handover_stats.csv",
		"timeline_ue1.csv",
		"run_metrics.prom",
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("output %s missing: %v", name, err)
		}
	}
}

func TestPipelineDeterministicDocument(t *testing.T) {
	dir := t.TempDir()
	ueLog := writeFixture(t, dir, "ue1.log", ueLogFixture)
	mobility := writeFixture(t, dir, "mobility.json", mobilityFixture)

	run := func(out string) *config.Config {
		return &config.Config{
			Output: config.OutputConfig{Dir: out, Formats: []string{config.OutputJSON}},
			Sources: []config.SourceConfig{
				{Path: ueLog, EntityID: "ue1", Role: "ue", Format: config.FormatUELog},
				{Path: mobility, Format: config.FormatMobilityJSON},
			},
			Correlation: config.CorrelationConfig{ToleranceWindow: 500 * time.Millisecond},
			Handover: config.HandoverConfig{
				PendingTimeout:   5 * time.Second,
				ExecutingTimeout: 5 * time.Second,
				PingPongWindow:   30 * time.Second,
			},
		}
	}

	var docs [2]struct {
		episodes  int
		summaries int
		entities  int
	}
	for i := 0; i < 2; i++ {
		p, err := NewPipeline(run(filepath.Join(dir, "out", string(rune('a'+i)))), nil)
		if err != nil {
			t.Fatalf("NewPipeline: %v", err)
		}
		doc, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		docs[i].episodes = len(doc.Episodes)
		docs[i].summaries = len(doc.Summaries)
		docs[i].entities = len(doc.Timelines)
	}
	if docs[0] != docs[1] {
		t.Errorf("runs differ: %+v vs %+v", docs[0], docs[1])
	}
}
