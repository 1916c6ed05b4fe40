package models

import "time"

// AggregateEntity is the EntityID used for run-wide summaries.
const AggregateEntity = "aggregate"

// MetricSummary is the statistical reduction of one metric series. The
// pointer statistics stay nil for an empty series (Count == 0) so exports can
// distinguish "no data" from a zero value.
type MetricSummary struct {
	EntityID string     `json:"entity_id"`
	Metric   MetricName `json:"metric_name"`
	Min      *float64   `json:"min"`
	Max      *float64   `json:"max"`
	Mean     *float64   `json:"mean"`
	Median   *float64   `json:"median"`
	StdDev   *float64   `json:"stddev"`
	Count    int        `json:"sample_count"`
	Bucket   *time.Time `json:"time_bucket,omitempty"`
}

// HandoverStats aggregates classified episodes for one entity, or for the
// whole run under AggregateEntity. Rates are percentages and stay nil when
// their denominator is zero. Latency summarizes successful episodes only.
type HandoverStats struct {
	EntityID     string        `json:"entity_id"`
	Attempts     int           `json:"attempts"`
	Successes    int           `json:"successes"`
	Failures     int           `json:"failures"`
	Timeouts     int           `json:"timeouts"`
	Aborted      int           `json:"aborted"`
	PingPong     int           `json:"ping_pong"`
	SuccessRate  *float64      `json:"success_rate_pct"`
	PingPongRate *float64      `json:"ping_pong_rate_pct"`
	Latency      MetricSummary `json:"latency"`
}

// SequencePattern is a recurring run of event labels mined from timelines.
type SequencePattern struct {
	Labels    []string `json:"labels"`
	Count     int      `json:"count"`
	Frequency float64  `json:"frequency"`
}
