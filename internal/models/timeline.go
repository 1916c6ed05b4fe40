package models

import "time"

// EntryKind tags which union member a TimelineEntry carries.
type EntryKind string

const (
	EntryRrc      EntryKind = "rrc"
	EntryMobility EntryKind = "mobility"
)

// TimelineEntry is one event on an entity's merged timeline. Exactly one of
// Rrc or Mobility is set, matching Kind. CausalLink, when non-nil, is the
// index of the entry this one is causally paired with.
type TimelineEntry struct {
	Kind       EntryKind      `json:"kind"`
	Time       time.Time      `json:"time"`
	Seq        int            `json:"-"`
	Rrc        *RrcMessage    `json:"rrc_message,omitempty"`
	Mobility   *MobilityEvent `json:"mobility_event,omitempty"`
	CausalLink *int           `json:"causal_link,omitempty"`
}

// Label returns the event-type label used for sequence analysis.
func (e TimelineEntry) Label() string {
	switch e.Kind {
	case EntryRrc:
		if e.Rrc != nil {
			return string(e.Rrc.Type)
		}
	case EntryMobility:
		if e.Mobility != nil {
			return string(e.Mobility.Type)
		}
	}
	return "unknown"
}

// Timeline is the merged, time-ordered event sequence for one entity.
// Invariant: entry times are non-decreasing; ties keep arrival order.
type Timeline struct {
	EntityID string          `json:"entity_id"`
	Entries  []TimelineEntry `json:"entries"`
}
