// Package patterns mines recurring event-type sequences from entity
// timelines. Frequent sequences describe normal procedure flows; rare ones
// point at anomalous signalling worth a closer look.
package patterns

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/ranscope/trace-engine/internal/models"
)

// DefaultWindow is the sliding-window length over timeline labels.
const DefaultWindow = 5

// DefaultRareThreshold marks patterns whose frequency falls below it as rare.
const DefaultRareThreshold = 0.05

// Miner counts label sequences across timelines.
type Miner struct {
	window        int
	rareThreshold float64
	logger        *slog.Logger
}

// NewMiner constructs a Miner. Non-positive window or threshold fall back to
// the defaults.
func NewMiner(window int, rareThreshold float64, logger *slog.Logger) *Miner {
	if window <= 1 {
		window = DefaultWindow
	}
	if rareThreshold <= 0 {
		rareThreshold = DefaultRareThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{window: window, rareThreshold: rareThreshold, logger: logger}
}

// Result separates the common flows from the rare ones.
type Result struct {
	Common []models.SequencePattern
	Rare   []models.SequencePattern
}

// Mine slides a fixed window over each timeline's labels and tallies the
// sequences seen. Frequency is the share of all windows; patterns under the
// rare threshold land in Rare. Timelines shorter than the window contribute
// one whole-timeline sequence so short entities are not invisible.
func (m *Miner) Mine(timelines []models.Timeline) Result {
	counts := make(map[string]int)
	total := 0
	for _, tl := range timelines {
		labels := make([]string, 0, len(tl.Entries))
		for _, e := range tl.Entries {
			labels = append(labels, e.Label())
		}
		if len(labels) == 0 {
			continue
		}
		if len(labels) < m.window {
			counts[strings.Join(labels, "|")]++
			total++
			continue
		}
		for i := 0; i+m.window <= len(labels); i++ {
			counts[strings.Join(labels[i:i+m.window], "|")]++
			total++
		}
	}
	if total == 0 {
		return Result{}
	}

	all := make([]models.SequencePattern, 0, len(counts))
	for key, n := range counts {
		all = append(all, models.SequencePattern{
			Labels:    strings.Split(key, "|"),
			Count:     n,
			Frequency: float64(n) / float64(total),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return strings.Join(all[i].Labels, "|") < strings.Join(all[j].Labels, "|")
	})

	var res Result
	for _, p := range all {
		if p.Frequency < m.rareThreshold {
			res.Rare = append(res.Rare, p)
		} else {
			res.Common = append(res.Common, p)
		}
	}
	m.logger.Debug("sequence mining complete",
		slog.Int("windows", total),
		slog.Int("common", len(res.Common)),
		slog.Int("rare", len(res.Rare)))
	return res
}
