package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/utils"
)

// Correlator merges per-entity protocol messages and mobility events into
// time-ordered timelines and annotates causal trigger/reaction pairs.
type Correlator struct {
	tolerance time.Duration
	logger    *slog.Logger
}

// NewCorrelator constructs a Correlator. The tolerance window bounds how far
// apart a mobility trigger and its protocol reaction may sit; it absorbs
// clock skew between the controller and the stack logs.
func NewCorrelator(tolerance time.Duration, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{tolerance: tolerance, logger: logger}
}

// CorrelationResult carries the built timelines and what could not be linked.
type CorrelationResult struct {
	Timelines []models.Timeline
	// UnlinkedTriggers counts handover_triggered events with no protocol
	// reaction inside the tolerance window. Not an error: the data model
	// represents the missing partner explicitly.
	UnlinkedTriggers int
}

// Correlate builds one Timeline per entity seen in the inputs, sorted by
// entity id. Entities share no state, so callers may split the inputs by
// entity and run Correlate per slice in parallel.
func (c *Correlator) Correlate(messages []models.RrcMessage, events []models.MobilityEvent) CorrelationResult {
	byEntity := make(map[string][]models.TimelineEntry)
	for i := range messages {
		m := &messages[i]
		byEntity[m.EntityID] = append(byEntity[m.EntityID], models.TimelineEntry{
			Kind: models.EntryRrc,
			Time: m.Timestamp,
			Rrc:  m,
		})
	}
	for i := range events {
		ev := &events[i]
		byEntity[ev.EntityID] = append(byEntity[ev.EntityID], models.TimelineEntry{
			Kind:     models.EntryMobility,
			Time:     ev.Timestamp,
			Mobility: ev,
		})
	}

	entities := make([]string, 0, len(byEntity))
	for entity := range byEntity {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	var result CorrelationResult
	for _, entity := range entities {
		tl := c.buildTimeline(entity, byEntity[entity])
		result.UnlinkedTriggers += c.linkCausalPairs(&tl)
		result.Timelines = append(result.Timelines, tl)
	}
	return result
}

// buildTimeline orders one entity's entries. Seq preserves arrival order so
// the sort is reproducible for equal timestamps.
func (c *Correlator) buildTimeline(entity string, entries []models.TimelineEntry) models.Timeline {
	for i := range entries {
		entries[i].Seq = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return models.Timeline{EntityID: entity, Entries: entries}
}

// linkCausalPairs annotates each handover_triggered mobility event with the
// first subsequent handover-class protocol message inside the tolerance
// window, and vice versa. The mobility event always precedes the reaction;
// an earlier protocol message is never linked backwards.
func (c *Correlator) linkCausalPairs(tl *models.Timeline) int {
	unlinked := 0
	for i := range tl.Entries {
		trigger := &tl.Entries[i]
		if trigger.Kind != models.EntryMobility || trigger.Mobility.Type != models.MobilityHandoverTriggered {
			continue
		}
		linked := false
		for j := i + 1; j < len(tl.Entries); j++ {
			reaction := &tl.Entries[j]
			if reaction.Time.Sub(trigger.Time) > c.tolerance {
				break
			}
			if reaction.Kind != models.EntryRrc || reaction.CausalLink != nil {
				continue
			}
			if !isHandoverReaction(reaction.Rrc.Type) {
				continue
			}
			ti, tj := i, j
			trigger.CausalLink = &tj
			reaction.CausalLink = &ti
			linked = true
			break
		}
		if !linked {
			unlinked++
			c.logger.Debug("handover trigger without protocol reaction",
				slog.String("entity", tl.EntityID),
				slog.Time("at", trigger.Time))
		}
	}
	return unlinked
}

// isHandoverReaction reports whether a message type is the protocol-side
// realization of a handover trigger.
func isHandoverReaction(t models.RrcMessageType) bool {
	switch t {
	case models.RrcHandoverCommand, models.RrcReconfiguration, models.RrcMeasurementReport:
		return true
	}
	return false
}

// VerifyMonotonic checks the timeline ordering invariant. A violation means
// a correlation bug, so the caller withholds the entity's results instead of
// exporting silently wrong statistics.
func VerifyMonotonic(tl models.Timeline) error {
	for i := 1; i < len(tl.Entries); i++ {
		if tl.Entries[i].Time.Before(tl.Entries[i-1].Time) {
			return utils.InvariantError("engine.VerifyMonotonic",
				fmt.Sprintf("timeline for %s not monotonic at entry %d", tl.EntityID, i))
		}
	}
	return nil
}
