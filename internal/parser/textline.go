package parser

import (
	"regexp"
	"strings"

	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/utils"
)

// Line grammars for the srsRAN-style process logs. Every recognized line
// starts with a wall-clock timestamp; the remainder is classified by the
// tokens it carries.
var (
	timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s+(.*)$`)

	radioTokenRes = map[string]*regexp.Regexp{
		"RSRP": regexp.MustCompile(`RSRP[: =]+(-?\d+\.?\d*)`),
		"RSRQ": regexp.MustCompile(`RSRQ[: =]+(-?\d+\.?\d*)`),
		"SINR": regexp.MustCompile(`SINR[: =]+(-?\d+\.?\d*)`),
		"CQI":  regexp.MustCompile(`CQI[: =]+(\d+)`),
		"MCS":  regexp.MustCompile(`MCS[: =]+(\d+)`),
		"BLER": regexp.MustCompile(`BLER[: =]+(\d+\.?\d*)`),
	}

	macTokenRes = map[string]*regexp.Regexp{
		"dl_throughput": regexp.MustCompile(`dl_throughput[: =]+(\d+\.?\d*)`),
		"ul_throughput": regexp.MustCompile(`ul_throughput[: =]+(\d+\.?\d*)`),
		"dl_latency":    regexp.MustCompile(`dl_latency[: =]+(\d+\.?\d*)`),
		"ul_latency":    regexp.MustCompile(`ul_latency[: =]+(\d+\.?\d*)`),
	}

	handoverSourceRe = regexp.MustCompile(`from (?:cell|PCI|gNB)\s*(\w+)`)
	handoverTargetRe = regexp.MustCompile(`to (?:cell|PCI|gNB)\s*(\w+)`)
	handoverDelayRe  = regexp.MustCompile(`delay[:\s=]+(\d+\.?\d*)`)

	// RRC procedure phrases as the stack logs them, checked in order so the
	// most specific phrase wins.
	rrcPhrases = []string{
		"RRC Connection Reestablishment Request",
		"RRC Connection Reestablishment",
		"RRC Connection Reconfiguration Complete",
		"RRC Connection Reconfiguration",
		"RRC Connection Setup Complete",
		"RRC Connection Setup",
		"RRC Connection Request",
		"RRC Connection Release",
		"RRC Setup Request",
		"RRC Setup Complete",
		"RRC Setup",
		"RRC Reconfiguration Complete",
		"RRC Reconfiguration",
		"RRC Release",
		"Measurement Report",
		"Handover Command",
	}

	nasPhrases = []string{"NAS", "EMM", "Attach", "Registration", "PDU Session"}
)

// parseTextLine classifies one timestamped log line. Lines without a leading
// timestamp, or with no recognizable content, are reported unparseable.
func (p *Parser) parseTextLine(src Source, line string) (models.LogRecord, bool) {
	m := timestampRe.FindStringSubmatch(line)
	if m == nil {
		return models.LogRecord{}, false
	}
	ts, err := utils.ParseTimestamp(m[1])
	if err != nil {
		return models.LogRecord{}, false
	}
	rest := m[2]

	fields := make(map[string]string)
	for name, re := range radioTokenRes {
		if tok := re.FindStringSubmatch(rest); tok != nil {
			fields[name] = tok[1]
		}
	}
	radioCount := len(fields)
	for name, re := range macTokenRes {
		if tok := re.FindStringSubmatch(rest); tok != nil {
			fields[name] = tok[1]
		}
	}
	macCount := len(fields) - radioCount

	rec := models.LogRecord{
		SourceID:  src.ID,
		EntityID:  src.EntityID,
		Timestamp: ts,
		Fields:    fields,
		Raw:       line,
	}

	switch {
	// Only the "Handover from X to Y" narration carries cell parameters worth
	// coercing; other Handover mentions go through the procedure phrases.
	case strings.Contains(rest, "Handover") && handoverSourceRe.MatchString(rest) && handoverTargetRe.MatchString(rest):
		rec.Kind = models.KindRrcMessage
		fields["procedure"] = "Handover Command"
		if c := handoverSourceRe.FindStringSubmatch(rest); c != nil {
			fields["source_cell"] = c[1]
		}
		if c := handoverTargetRe.FindStringSubmatch(rest); c != nil {
			fields["target_cell"] = c[1]
		}
		if c := handoverDelayRe.FindStringSubmatch(rest); c != nil {
			fields["delay"] = c[1]
		}
		fields["layer"] = string(models.LayerLog)
	case containsRrcPhrase(rest, fields):
		rec.Kind = models.KindRrcMessage
		fields["layer"] = string(models.LayerLog)
	case containsAny(rest, nasPhrases):
		rec.Kind = models.KindNasMessage
		fields["message"] = strings.TrimSpace(rest)
	case macCount > 0 && radioCount == 0:
		rec.Kind = models.KindMacMetric
	case radioCount > 0 || macCount > 0:
		rec.Kind = models.KindRadioMetric
	default:
		return models.LogRecord{}, false
	}
	return rec, true
}

func containsRrcPhrase(rest string, fields map[string]string) bool {
	for _, phrase := range rrcPhrases {
		if strings.Contains(rest, phrase) {
			fields["procedure"] = phrase
			return true
		}
	}
	if strings.Contains(rest, "RRC") {
		// Keep unclassified RRC traffic; the extractor retains it with an
		// unknown:<label> message type.
		fields["procedure"] = strings.TrimSpace(rest)
		return true
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}
