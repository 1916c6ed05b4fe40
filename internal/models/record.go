package models

import "time"

// RecordKind enumerates the classes of telemetry a log line can carry.
type RecordKind string

const (
	KindRadioMetric   RecordKind = "radio-metric"
	KindMacMetric     RecordKind = "mac-metric"
	KindRrcMessage    RecordKind = "rrc-message"
	KindMobilityEvent RecordKind = "mobility-event"
	KindNasMessage    RecordKind = "nas-message"
)

// SourceRole identifies what kind of simulated entity produced a source file.
type SourceRole string

const (
	RoleUE   SourceRole = "ue"
	RoleGNB  SourceRole = "gnb"
	RoleCore SourceRole = "core"
)

// SourceLayer distinguishes capture-derived RRC records from log-derived ones.
type SourceLayer string

const (
	LayerCapture SourceLayer = "capture"
	LayerLog     SourceLayer = "log"
)

// LogRecord is one syntactically recognized line from a telemetry source,
// normalized to a uniform shape. Immutable once parsed.
type LogRecord struct {
	SourceID  string            `json:"source_id"`
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      RecordKind        `json:"record_kind"`
	Fields    map[string]string `json:"fields,omitempty"`
	Raw       string            `json:"-"`
}
