package engine

import (
	"time"

	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/utils"
)

// DeriveProcedureDurations turns paired protocol messages on each timeline
// into derived metric samples: connection setup time (setup request to the
// setup response) and measurement-to-handover time (measurement report to
// the handover command). Values are milliseconds, stamped at the closing
// message. Unpaired openers yield nothing; the next opener replaces a stale
// one so crossed pairs cannot form.
func DeriveProcedureDurations(timelines []models.Timeline) []models.MetricSample {
	var samples []models.MetricSample
	for _, tl := range timelines {
		var setupStart, measStart *time.Time
		for i := range tl.Entries {
			entry := tl.Entries[i]
			if entry.Kind != models.EntryRrc {
				continue
			}
			switch {
			case entry.Rrc.Type == models.RrcSetupRequest:
				t := entry.Time
				setupStart = &t
			case entry.Rrc.Type == models.RrcSetup:
				if setupStart != nil {
					samples = append(samples, durationSample(tl.EntityID, models.MetricSetupTime, *setupStart, entry.Time))
					setupStart = nil
				}
			case entry.Rrc.Type == models.RrcMeasurementReport:
				t := entry.Time
				measStart = &t
			case isHandoverCommand(entry.Rrc):
				if measStart != nil {
					samples = append(samples, durationSample(tl.EntityID, models.MetricMeasToHandover, *measStart, entry.Time))
					measStart = nil
				}
			}
		}
	}
	return samples
}

func durationSample(entity string, metric models.MetricName, start, end time.Time) models.MetricSample {
	return models.MetricSample{
		EntityID:  entity,
		Metric:    metric,
		Timestamp: end,
		Value:     utils.DurationBetween(start, end).Seconds() * 1000,
	}
}
