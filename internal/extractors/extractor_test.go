package extractors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
)

func testRecord(kind models.RecordKind, fields map[string]string) models.LogRecord {
	return models.LogRecord{
		SourceID:  "ue1:ue-log",
		EntityID:  "ue1",
		Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Kind:      kind,
		Fields:    fields,
	}
}

func TestExtractRadioMetrics(t *testing.T) {
	rules, err := NewRuleSet("", nil)
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindRadioMetric, map[string]string{"RSRP": "-85.5", "SINR": "21.3", "CQI": "12"}),
	})
	if res.Discarded != 0 {
		t.Fatalf("discarded = %d, want 0", res.Discarded)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(res.Samples))
	}
	byMetric := make(map[models.MetricName]float64)
	for _, s := range res.Samples {
		if s.EntityID != "ue1" {
			t.Errorf("sample entity = %q, want ue1", s.EntityID)
		}
		byMetric[s.Metric] = s.Value
	}
	if byMetric[models.MetricRSRP] != -85.5 {
		t.Errorf("RSRP = %v, want -85.5", byMetric[models.MetricRSRP])
	}
	if byMetric[models.MetricCQI] != 12 {
		t.Errorf("CQI = %v, want 12", byMetric[models.MetricCQI])
	}
}

func TestExtractMacMetrics(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindMacMetric, map[string]string{"dl_throughput": "45.2", "ul_latency": "12.5"}),
	})
	if len(res.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(res.Samples))
	}
}

func TestExtractUnparsableValueIsSkipped(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindRadioMetric, map[string]string{"RSRP": "not-a-number"}),
	})
	if len(res.Samples) != 0 {
		t.Fatalf("samples = %d, want 0", len(res.Samples))
	}
	if res.Discarded != 1 {
		t.Errorf("discarded = %d, want 1", res.Discarded)
	}
}

func TestExtractRrcVocabulary(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	cases := []struct {
		label string
		want  models.RrcMessageType
	}{
		{"RRC Connection Request", models.RrcSetupRequest},
		{"RRC Setup Request", models.RrcSetupRequest},
		{"rrcSetupRequest", models.RrcSetupRequest},
		{"RRC Connection Reconfiguration Complete", models.RrcReconfigurationComplete},
		{"Measurement Report", models.RrcMeasurementReport},
		{"Handover Command", models.RrcHandoverCommand},
		{"RRC Connection Reestablishment Request", models.RrcReestablishmentRequest},
	}
	for _, c := range cases {
		res := ex.Extract([]models.LogRecord{
			testRecord(models.KindRrcMessage, map[string]string{"procedure": c.label}),
		})
		if len(res.Messages) != 1 {
			t.Fatalf("%s: messages = %d, want 1", c.label, len(res.Messages))
		}
		if res.Messages[0].Type != c.want {
			t.Errorf("%s: type = %q, want %q", c.label, res.Messages[0].Type, c.want)
		}
	}
}

func TestExtractRrcUnknownLabelRetained(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindRrcMessage, map[string]string{"procedure": "RRC SomeVendorExtension"}),
	})
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	got := res.Messages[0].Type
	if !got.IsUnknown() {
		t.Fatalf("type %q should be unknown", got)
	}
	if got != models.RrcMessageType("unknown:RRC SomeVendorExtension") {
		t.Errorf("type = %q, want unknown:RRC SomeVendorExtension", got)
	}
}

func TestExtractMeasurementReportCarriesSamples(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindRrcMessage, map[string]string{
			"procedure": "Measurement Report",
			"RSRP":      "-92.0",
			"RSRQ":      "-11.5",
		}),
	})
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	if len(res.Samples) != 2 {
		t.Fatalf("samples = %d, want 2 alongside the report", len(res.Samples))
	}
}

func TestExtractMobilityVocabulary(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	rec := testRecord(models.KindMobilityEvent, map[string]string{
		"event_type": "HANDOVER",
		"from_gnb":   "gnb1",
		"to_gnb":     "gnb2",
	})
	res := ex.Extract([]models.LogRecord{rec})
	if len(res.Mobility) != 1 {
		t.Fatalf("mobility events = %d, want 1", len(res.Mobility))
	}
	ev := res.Mobility[0]
	if ev.Type != models.MobilityHandoverTriggered {
		t.Errorf("type = %q, want %q", ev.Type, models.MobilityHandoverTriggered)
	}
	if ev.RelatedEntityID != "gnb2" {
		t.Errorf("related entity = %q, want gnb2", ev.RelatedEntityID)
	}
	if ev.Metadata["from_gnb"] != "gnb1" {
		t.Errorf("metadata from_gnb = %q, want gnb1", ev.Metadata["from_gnb"])
	}
}

func TestExtractMobilityLegacyNames(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	cases := map[string]models.MobilityEventType{
		"UE_START":       models.MobilityPowerOn,
		"UE_STOP":        models.MobilityPowerOff,
		"power_on":       models.MobilityPowerOn,
		"enter_coverage": models.MobilityEnterCoverage,
	}
	for label, want := range cases {
		res := ex.Extract([]models.LogRecord{
			testRecord(models.KindMobilityEvent, map[string]string{"event_type": label}),
		})
		if len(res.Mobility) != 1 {
			t.Fatalf("%s: mobility events = %d, want 1", label, len(res.Mobility))
		}
		if res.Mobility[0].Type != want {
			t.Errorf("%s: type = %q, want %q", label, res.Mobility[0].Type, want)
		}
	}
}

func TestExtractUnknownMobilityDiscarded(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindMobilityEvent, map[string]string{"event_type": "COFFEE_BREAK"}),
	})
	if len(res.Mobility) != 0 || res.Discarded != 1 {
		t.Fatalf("mobility = %d discarded = %d, want 0 and 1", len(res.Mobility), res.Discarded)
	}
}

func TestExtractNasDiscarded(t *testing.T) {
	rules, _ := NewRuleSet("", nil)
	ex := New(rules, nil)

	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindNasMessage, map[string]string{"message": "Attach Request"}),
	})
	if res.Discarded != 1 {
		t.Errorf("discarded = %d, want 1", res.Discarded)
	}
}

func TestRulePackOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	pack := `
metrics:
  - kind: radio-metric
    field: PathLoss
    metric: path_loss
rrc:
  - label: Vendor Handover Prep
    type: HandoverCommand
mobility:
  - label: CELL_CHANGE
    type: handover_triggered
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write rule pack: %v", err)
	}

	rules, err := NewRuleSet(path, nil)
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	if got := rules.LookupRrc("Vendor Handover Prep"); got != models.RrcHandoverCommand {
		t.Errorf("overlay rrc lookup = %q, want HandoverCommand", got)
	}
	if typ, ok := rules.LookupMobility("CELL_CHANGE"); !ok || typ != models.MobilityHandoverTriggered {
		t.Errorf("overlay mobility lookup = %q ok=%v", typ, ok)
	}

	ex := New(rules, nil)
	res := ex.Extract([]models.LogRecord{
		testRecord(models.KindRadioMetric, map[string]string{"PathLoss": "101.5"}),
	})
	if len(res.Samples) != 1 || res.Samples[0].Metric != models.MetricName("path_loss") {
		t.Fatalf("overlay metric rule did not fire: %+v", res.Samples)
	}
}

func TestRulePackMissingFileFallsBack(t *testing.T) {
	rules, err := NewRuleSet(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	if got := rules.LookupRrc("RRC Setup"); got != models.RrcSetup {
		t.Errorf("defaults missing after fallback: %q", got)
	}
}
