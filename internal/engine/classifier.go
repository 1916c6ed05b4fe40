package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ranscope/trace-engine/internal/config"
	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/utils"
)

// hoState is the per-entity handover state machine position.
type hoState int

const (
	hoIdle hoState = iota
	hoPending
	hoExecuting
)

// Classifier walks an entity timeline chronologically and emits handover
// episodes. It keeps no cross-entity state, so one Classifier value may be
// shared across per-entity workers.
type Classifier struct {
	pendingTimeout   time.Duration
	executingTimeout time.Duration
	pingPongWindow   time.Duration
	logger           *slog.Logger
}

// NewClassifier constructs a Classifier from the handover tunables.
func NewClassifier(cfg config.HandoverConfig, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		pendingTimeout:   cfg.PendingTimeout,
		executingTimeout: cfg.ExecutingTimeout,
		pingPongWindow:   cfg.PingPongWindow,
		logger:           logger,
	}
}

// episode is the in-flight attempt being built.
type episode struct {
	sourceCell  string
	targetCell  string
	triggerTime time.Time
	commandTime *time.Time
}

// Classify runs the state machine over one timeline. Timeouts are logical:
// they are judged against the event timestamps in the data, never the wall
// clock. A non-monotonic timeline or negative latency returns an error
// chained to utils.ErrInvariant and the entity's episodes are withheld.
func (c *Classifier) Classify(tl models.Timeline) ([]models.HandoverEpisode, error) {
	if err := VerifyMonotonic(tl); err != nil {
		return nil, err
	}

	var (
		episodes []models.HandoverEpisode
		state    = hoIdle
		current  episode
	)

	finish := func(outcome models.HandoverOutcome, at *time.Time) error {
		ep := models.HandoverEpisode{
			EntityID:    tl.EntityID,
			SourceCell:  current.sourceCell,
			TargetCell:  current.targetCell,
			TriggerTime: current.triggerTime,
			CommandTime: current.commandTime,
			Outcome:     outcome,
		}
		if outcome == models.HandoverSuccess && at != nil {
			lat := at.Sub(current.triggerTime)
			if lat < 0 {
				return utils.InvariantError("engine.Classify",
					fmt.Sprintf("negative handover latency %s for %s", lat, tl.EntityID))
			}
			ep.CompletionTime = at
			ep.Latency = &lat
		}
		episodes = append(episodes, ep)
		state = hoIdle
		current = episode{}
		return nil
	}

	// checkTimeouts closes an overdue in-flight episode before the entry at
	// time now is applied.
	checkTimeouts := func(now time.Time) error {
		switch state {
		case hoPending:
			if now.Sub(current.triggerTime) > c.pendingTimeout {
				return finish(models.HandoverTimeout, nil)
			}
		case hoExecuting:
			if current.commandTime != nil && now.Sub(*current.commandTime) > c.executingTimeout {
				return finish(models.HandoverTimeout, nil)
			}
		}
		return nil
	}

	for i := range tl.Entries {
		entry := tl.Entries[i]
		if err := checkTimeouts(entry.Time); err != nil {
			return nil, err
		}

		switch entry.Kind {
		case models.EntryMobility:
			if entry.Mobility.Type != models.MobilityHandoverTriggered {
				continue
			}
			// A new trigger supersedes any attempt still in flight.
			if state != hoIdle {
				if err := finish(models.HandoverAborted, nil); err != nil {
					return nil, err
				}
			}
			current = episode{
				sourceCell:  entry.Mobility.Metadata["from_gnb"],
				targetCell:  entry.Mobility.RelatedEntityID,
				triggerTime: entry.Time,
			}
			state = hoPending

		case models.EntryRrc:
			switch {
			case entry.Rrc.Type == models.RrcMeasurementReport:
				if state == hoIdle {
					current = episode{triggerTime: entry.Time}
					state = hoPending
				}
			case isHandoverCommand(entry.Rrc):
				if state == hoIdle {
					current = episode{triggerTime: entry.Time}
				}
				t := entry.Time
				current.commandTime = &t
				if cell := entry.Rrc.Params["target_cell"]; cell != "" {
					current.targetCell = cell
				}
				if cell := entry.Rrc.Params["source_cell"]; cell != "" && current.sourceCell == "" {
					current.sourceCell = cell
				}
				state = hoExecuting
			case entry.Rrc.Type == models.RrcReconfigurationComplete:
				if state == hoExecuting {
					t := entry.Time
					if err := finish(models.HandoverSuccess, &t); err != nil {
						return nil, err
					}
				}
			case entry.Rrc.Type == models.RrcReestablishmentRequest || entry.Rrc.Type == models.RrcReestablishment:
				if state != hoIdle {
					if err := finish(models.HandoverFailure, nil); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	// An attempt still open when the data runs out never completed.
	if state != hoIdle {
		if err := finish(models.HandoverTimeout, nil); err != nil {
			return nil, err
		}
	}

	c.flagPingPong(episodes)

	if len(episodes) > 0 {
		c.logger.Debug("entity classified",
			slog.String("entity", tl.EntityID),
			slog.Int("episodes", len(episodes)))
	}
	return episodes, nil
}

// isHandoverCommand treats an explicit HandoverCommand, or a reconfiguration
// carrying mobility parameters, as the command step.
func isHandoverCommand(msg *models.RrcMessage) bool {
	if msg.Type == models.RrcHandoverCommand {
		return true
	}
	return msg.Type == models.RrcReconfiguration && msg.Params["target_cell"] != ""
}

// flagPingPong retroactively marks A-to-B then B-to-A bounces inside the window.
// Both episodes get the flag; episodes arrive in chronological order so one
// forward scan per success suffices.
func (c *Classifier) flagPingPong(episodes []models.HandoverEpisode) {
	for i := range episodes {
		first := &episodes[i]
		if first.Outcome != models.HandoverSuccess || first.SourceCell == "" || first.TargetCell == "" {
			continue
		}
		for j := i + 1; j < len(episodes); j++ {
			second := &episodes[j]
			if second.TriggerTime.Sub(first.TriggerTime) > c.pingPongWindow {
				break
			}
			if second.Outcome == models.HandoverAborted {
				continue
			}
			if second.SourceCell == first.TargetCell && second.TargetCell == first.SourceCell {
				first.PingPong = true
				second.PingPong = true
				break
			}
		}
	}
}
