// Package extractors turns normalized log records into typed telemetry
// events. All format knowledge lives in the rule tables; the extractor itself
// is a dispatcher.
package extractors

import (
	"log/slog"
	"strconv"

	"github.com/ranscope/trace-engine/internal/models"
)

// Result holds everything extracted from one batch of records.
type Result struct {
	Samples   []models.MetricSample
	Messages  []models.RrcMessage
	Mobility  []models.MobilityEvent
	Discarded int
}

// Extractor applies a RuleSet to parsed records.
type Extractor struct {
	rules  *RuleSet
	logger *slog.Logger
}

// New constructs an Extractor over the given rules.
func New(rules *RuleSet, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rules: rules, logger: logger}
}

// Extract maps records to typed events. Records that yield no event are
// counted as discarded, never fatal.
func (e *Extractor) Extract(records []models.LogRecord) Result {
	var res Result
	for _, rec := range records {
		switch rec.Kind {
		case models.KindRadioMetric, models.KindMacMetric:
			if n := e.extractSamples(rec, &res); n == 0 {
				res.Discarded++
			}
		case models.KindRrcMessage:
			e.extractRrc(rec, &res)
			// Measurement reports carry radio readings alongside the message.
			e.extractSamples(rec, &res)
		case models.KindMobilityEvent:
			if !e.extractMobility(rec, &res) {
				res.Discarded++
			}
		default:
			// NAS and anything future-shaped is recognized but carries no
			// event the correlation model consumes.
			res.Discarded++
		}
	}
	e.logger.Debug("extraction complete",
		slog.Int("records", len(records)),
		slog.Int("samples", len(res.Samples)),
		slog.Int("rrc_messages", len(res.Messages)),
		slog.Int("mobility_events", len(res.Mobility)),
		slog.Int("discarded", res.Discarded))
	return res
}

func (e *Extractor) extractSamples(rec models.LogRecord, res *Result) int {
	n := 0
	for _, rule := range e.rules.MetricRules() {
		if rule.Kind != rec.Kind {
			continue
		}
		raw, ok := rec.Fields[rule.Field]
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		res.Samples = append(res.Samples, models.MetricSample{
			EntityID:  rec.EntityID,
			Metric:    rule.Metric,
			Timestamp: rec.Timestamp,
			Value:     val,
		})
		n++
	}
	return n
}

func (e *Extractor) extractRrc(rec models.LogRecord, res *Result) {
	label, ok := rec.Fields["procedure"]
	if !ok || label == "" {
		res.Discarded++
		return
	}
	params := make(map[string]string)
	for k, v := range rec.Fields {
		switch k {
		case "procedure", "layer":
		default:
			params[k] = v
		}
	}
	if len(params) == 0 {
		params = nil
	}
	layer := models.SourceLayer(rec.Fields["layer"])
	if layer == "" {
		layer = models.LayerLog
	}
	res.Messages = append(res.Messages, models.RrcMessage{
		EntityID:  rec.EntityID,
		Timestamp: rec.Timestamp,
		Type:      e.rules.LookupRrc(label),
		Params:    params,
		Layer:     layer,
	})
}

func (e *Extractor) extractMobility(rec models.LogRecord, res *Result) bool {
	typ, ok := e.rules.LookupMobility(rec.Fields["event_type"])
	if !ok {
		return false
	}
	ev := models.MobilityEvent{
		EntityID:  rec.EntityID,
		Timestamp: rec.Timestamp,
		Type:      typ,
	}
	meta := make(map[string]string)
	for k, v := range rec.Fields {
		switch k {
		// ue_id and gnb_id already identify the record's entity.
		case "event_type", "ue_id", "gnb_id", "process_id":
		default:
			meta[k] = v
		}
	}
	if to, ok := meta["to_gnb"]; ok {
		ev.RelatedEntityID = to
	}
	if len(meta) > 0 {
		ev.Metadata = meta
	}
	res.Mobility = append(res.Mobility, ev)
	return true
}
