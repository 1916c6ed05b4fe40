package extractors

import (
	"errors"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ranscope/trace-engine/internal/models"
)

// MetricRule maps a field key on a record kind to a metric series. Rules are
// data so new log formats are additive configuration, not dispatch code.
type MetricRule struct {
	Kind   models.RecordKind `yaml:"kind"`
	Field  string            `yaml:"field"`
	Metric models.MetricName `yaml:"metric"`
}

// VocabRule maps a raw protocol or controller label to a typed value.
type VocabRule struct {
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

// RulePackFile is the YAML overlay root.
type RulePackFile struct {
	Metrics  []MetricRule `yaml:"metrics"`
	Rrc      []VocabRule  `yaml:"rrc"`
	Mobility []VocabRule  `yaml:"mobility"`
}

// RuleSet is the effective extraction mapping: built-in defaults plus any
// overlay loaded from a rule-pack file.
type RuleSet struct {
	metricRules []MetricRule
	rrcVocab    map[string]models.RrcMessageType
	mobility    map[string]models.MobilityEventType
}

// NewRuleSet returns the defaults, overlaid with the rule pack at path when
// one exists. A missing file falls back to defaults; a malformed one is an
// error.
func NewRuleSet(path string, logger *slog.Logger) (*RuleSet, error) {
	rs := defaultRuleSet()
	if path == "" {
		return rs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rs, nil
		}
		return nil, err
	}
	var pack RulePackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, err
	}
	rs.metricRules = append(rs.metricRules, pack.Metrics...)
	for _, v := range pack.Rrc {
		rs.rrcVocab[normalizeLabel(v.Label)] = models.RrcMessageType(v.Type)
	}
	for _, v := range pack.Mobility {
		rs.mobility[normalizeLabel(v.Label)] = models.MobilityEventType(v.Type)
	}
	if logger != nil {
		logger.Debug("extraction rule pack loaded",
			slog.String("path", path),
			slog.Int("metric_rules", len(pack.Metrics)),
			slog.Int("rrc_rules", len(pack.Rrc)),
			slog.Int("mobility_rules", len(pack.Mobility)))
	}
	return rs, nil
}

func defaultRuleSet() *RuleSet {
	rs := &RuleSet{
		rrcVocab: make(map[string]models.RrcMessageType),
		mobility: make(map[string]models.MobilityEventType),
	}

	for _, kind := range []models.RecordKind{models.KindRadioMetric, models.KindRrcMessage} {
		rs.metricRules = append(rs.metricRules,
			MetricRule{Kind: kind, Field: "RSRP", Metric: models.MetricRSRP},
			MetricRule{Kind: kind, Field: "RSRQ", Metric: models.MetricRSRQ},
			MetricRule{Kind: kind, Field: "SINR", Metric: models.MetricSINR},
			MetricRule{Kind: kind, Field: "CQI", Metric: models.MetricCQI},
			MetricRule{Kind: kind, Field: "MCS", Metric: models.MetricMCS},
			MetricRule{Kind: kind, Field: "BLER", Metric: models.MetricBLER},
		)
	}
	rs.metricRules = append(rs.metricRules,
		MetricRule{Kind: models.KindMacMetric, Field: "dl_throughput", Metric: models.MetricDLThroughput},
		MetricRule{Kind: models.KindMacMetric, Field: "ul_throughput", Metric: models.MetricULThroughput},
		MetricRule{Kind: models.KindMacMetric, Field: "dl_latency", Metric: models.MetricDLLatency},
		MetricRule{Kind: models.KindMacMetric, Field: "ul_latency", Metric: models.MetricULLatency},
	)

	// Protocol procedure vocabulary: 4G and 5G phrasings plus the capture
	// toolchain's camel-case labels, keyed by normalized label.
	rrcDefaults := map[string]models.RrcMessageType{
		"rrc connection request":                 models.RrcSetupRequest,
		"rrc setup request":                      models.RrcSetupRequest,
		"rrcconnectionrequest":                   models.RrcSetupRequest,
		"rrcsetuprequest":                        models.RrcSetupRequest,
		"rrc connection setup":                   models.RrcSetup,
		"rrc setup":                              models.RrcSetup,
		"rrcconnectionsetup":                     models.RrcSetup,
		"rrcsetup":                               models.RrcSetup,
		"rrc connection setup complete":          models.RrcSetupComplete,
		"rrc setup complete":                     models.RrcSetupComplete,
		"rrcsetupcomplete":                       models.RrcSetupComplete,
		"rrc connection reconfiguration":         models.RrcReconfiguration,
		"rrc reconfiguration":                    models.RrcReconfiguration,
		"rrcconnectionreconfiguration":           models.RrcReconfiguration,
		"rrcreconfiguration":                     models.RrcReconfiguration,
		"rrc connection reconfiguration complete": models.RrcReconfigurationComplete,
		"rrc reconfiguration complete":            models.RrcReconfigurationComplete,
		"rrcreconfigurationcomplete":              models.RrcReconfigurationComplete,
		"handover command":                        models.RrcHandoverCommand,
		"handovercommand":                         models.RrcHandoverCommand,
		"measurement report":                      models.RrcMeasurementReport,
		"measurementreport":                       models.RrcMeasurementReport,
		"rrc connection reestablishment request":  models.RrcReestablishmentRequest,
		"rrcconnectionreestablishmentrequest":     models.RrcReestablishmentRequest,
		"rrc connection reestablishment":          models.RrcReestablishment,
		"rrcconnectionreestablishment":            models.RrcReestablishment,
		"rrcreestablishment":                      models.RrcReestablishment,
		"rrc connection release":                  models.RrcRelease,
		"rrc release":                             models.RrcRelease,
		"rrcconnectionrelease":                    models.RrcRelease,
		"rrcrelease":                              models.RrcRelease,
	}
	for label, typ := range rrcDefaults {
		rs.rrcVocab[normalizeLabel(label)] = typ
	}

	// Controller event vocabulary: the legacy upper-case names and the
	// normalized ones both map.
	mobilityDefaults := map[string]models.MobilityEventType{
		"ue_start":           models.MobilityPowerOn,
		"power_on":           models.MobilityPowerOn,
		"gnb_start":          models.MobilityPowerOn,
		"ue_stop":            models.MobilityPowerOff,
		"power_off":          models.MobilityPowerOff,
		"gnb_stop":           models.MobilityPowerOff,
		"enter_coverage":     models.MobilityEnterCoverage,
		"leave_coverage":     models.MobilityLeaveCoverage,
		"handover":           models.MobilityHandoverTriggered,
		"handover_triggered": models.MobilityHandoverTriggered,
		"handover_target":    models.MobilityHandoverTarget,
	}
	for label, typ := range mobilityDefaults {
		rs.mobility[normalizeLabel(label)] = typ
	}

	return rs
}

var labelSepRe = regexp.MustCompile(`[\s_\-]+`)

// normalizeLabel folds case and separators so "RRC Setup", "rrc_setup" and
// "rrcSetup" all hit the same vocabulary entry.
func normalizeLabel(label string) string {
	return labelSepRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), " ")
}

// LookupRrc resolves a raw procedure label. Labels outside the vocabulary
// come back as unknown:<label> rather than being dropped; unclassified
// messages still matter for sequence analysis.
func (rs *RuleSet) LookupRrc(label string) models.RrcMessageType {
	norm := normalizeLabel(label)
	if typ, ok := rs.rrcVocab[norm]; ok {
		return typ
	}
	// Camel-case capture labels normalize without separators.
	if typ, ok := rs.rrcVocab[strings.ReplaceAll(norm, " ", "")]; ok {
		return typ
	}
	return models.UnknownRrcType(label)
}

// LookupMobility resolves a controller event label; false means the label is
// outside the closed mobility vocabulary.
func (rs *RuleSet) LookupMobility(label string) (models.MobilityEventType, bool) {
	typ, ok := rs.mobility[normalizeLabel(label)]
	return typ, ok
}

// MetricRules exposes the effective metric mapping table.
func (rs *RuleSet) MetricRules() []MetricRule {
	return rs.metricRules
}
