package models

import (
	"strings"
	"time"
)

// MetricName identifies a performance metric series.
type MetricName string

const (
	MetricRSRP         MetricName = "RSRP"
	MetricRSRQ         MetricName = "RSRQ"
	MetricSINR         MetricName = "SINR"
	MetricCQI          MetricName = "CQI"
	MetricMCS          MetricName = "MCS"
	MetricBLER         MetricName = "BLER"
	MetricDLThroughput MetricName = "dl_throughput"
	MetricULThroughput MetricName = "ul_throughput"
	MetricDLLatency    MetricName = "dl_latency"
	MetricULLatency    MetricName = "ul_latency"

	// Derived procedure durations, computed from timeline message pairs
	// rather than read from any source.
	MetricSetupTime      MetricName = "connection_setup_ms"
	MetricMeasToHandover MetricName = "measurement_to_handover_ms"
)

// MetricSample is one reading of a metric for an entity. Samples for the same
// (entity, metric) pair form a time series ordered by timestamp.
type MetricSample struct {
	EntityID  string     `json:"entity_id"`
	Metric    MetricName `json:"metric_name"`
	Timestamp time.Time  `json:"timestamp"`
	Value     float64    `json:"value"`
}

// RrcMessageType names a known RRC procedure message.
type RrcMessageType string

const (
	RrcSetupRequest            RrcMessageType = "RRCSetupRequest"
	RrcSetup                   RrcMessageType = "RRCSetup"
	RrcSetupComplete           RrcMessageType = "RRCSetupComplete"
	RrcReconfiguration         RrcMessageType = "RRCReconfiguration"
	RrcHandoverCommand         RrcMessageType = "HandoverCommand"
	RrcReconfigurationComplete RrcMessageType = "RRCReconfigurationComplete"
	RrcMeasurementReport       RrcMessageType = "MeasurementReport"
	RrcReestablishmentRequest  RrcMessageType = "RRCReestablishmentRequest"
	RrcReestablishment         RrcMessageType = "RRCReestablishment"
	RrcRelease                 RrcMessageType = "RRCRelease"
)

// UnknownRrcType wraps an unrecognized protocol label so the message is kept
// for sequence analysis instead of being dropped.
func UnknownRrcType(rawLabel string) RrcMessageType {
	return RrcMessageType("unknown:" + strings.TrimSpace(rawLabel))
}

// IsUnknown reports whether the type is outside the known procedure vocabulary.
func (t RrcMessageType) IsUnknown() bool {
	return strings.HasPrefix(string(t), "unknown:")
}

// RrcMessage is a control-plane protocol message attributed to an entity.
type RrcMessage struct {
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      RrcMessageType    `json:"message_type"`
	Params    map[string]string `json:"parameters,omitempty"`
	Layer     SourceLayer       `json:"source_layer"`
}

// MobilityEventType enumerates mobility-controller event classes.
type MobilityEventType string

const (
	MobilityPowerOn           MobilityEventType = "power_on"
	MobilityPowerOff          MobilityEventType = "power_off"
	MobilityEnterCoverage     MobilityEventType = "enter_coverage"
	MobilityLeaveCoverage     MobilityEventType = "leave_coverage"
	MobilityHandoverTriggered MobilityEventType = "handover_triggered"
	MobilityHandoverTarget    MobilityEventType = "handover_target"
)

// MobilityEvent is an externally produced mobility-controller event. The
// engine ingests these as input and never generates them.
type MobilityEvent struct {
	EntityID        string            `json:"entity_id"`
	Timestamp       time.Time         `json:"timestamp"`
	Type            MobilityEventType `json:"event_type"`
	RelatedEntityID string            `json:"related_entity_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}
