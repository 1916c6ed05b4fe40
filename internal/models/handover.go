package models

import "time"

// HandoverOutcome labels how a handover episode ended.
type HandoverOutcome string

const (
	HandoverSuccess HandoverOutcome = "success"
	HandoverFailure HandoverOutcome = "failure"
	HandoverTimeout HandoverOutcome = "timeout"
	HandoverAborted HandoverOutcome = "aborted"
)

// HandoverEpisode is one classified handover attempt for an entity.
// CompletionTime and Latency are nil unless the outcome is success.
type HandoverEpisode struct {
	EntityID       string          `json:"entity_id"`
	SourceCell     string          `json:"source_cell"`
	TargetCell     string          `json:"target_cell"`
	TriggerTime    time.Time       `json:"trigger_time"`
	CommandTime    *time.Time      `json:"command_time,omitempty"`
	CompletionTime *time.Time      `json:"completion_time,omitempty"`
	Outcome        HandoverOutcome `json:"outcome"`
	PingPong       bool            `json:"is_ping_pong"`
	Latency        *time.Duration  `json:"latency_ns,omitempty"`
}
