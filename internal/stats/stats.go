// Package stats reduces metric sample series and classified handover
// episodes to summary statistics.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
)

// Summarize reduces samples to one MetricSummary per (entity, metric) pair.
// A positive bucketWidth instead yields one summary per fixed-width time
// bucket, so a series becomes a coarse trend line.
func Summarize(samples []models.MetricSample, bucketWidth time.Duration) []models.MetricSummary {
	type key struct {
		entity string
		metric models.MetricName
		bucket int64
	}
	groups := make(map[key][]float64)
	for _, s := range samples {
		k := key{entity: s.EntityID, metric: s.Metric}
		if bucketWidth > 0 {
			k.bucket = s.Timestamp.UnixNano() / int64(bucketWidth)
		}
		groups[k] = append(groups[k], s.Value)
	}

	summaries := make([]models.MetricSummary, 0, len(groups))
	for k, values := range groups {
		sum := summarizeValues(values)
		sum.EntityID = k.entity
		sum.Metric = k.metric
		if bucketWidth > 0 {
			t := time.Unix(0, k.bucket*int64(bucketWidth)).UTC()
			sum.Bucket = &t
		}
		summaries = append(summaries, sum)
	}
	sortSummaries(summaries)
	return summaries
}

// summarizeValues computes the five statistics over one series. An empty
// series keeps every pointer nil so exports can tell "no data" from zero.
func summarizeValues(values []float64) models.MetricSummary {
	sum := models.MetricSummary{Count: len(values)}
	if len(values) == 0 {
		return sum
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	min := sorted[0]
	max := sorted[len(sorted)-1]
	mean := meanOf(sorted)
	median := medianOf(sorted)
	stddev := stdDevOf(sorted, mean)

	sum.Min = &min
	sum.Max = &max
	sum.Mean = &mean
	sum.Median = &median
	sum.StdDev = &stddev
	return sum
}

func meanOf(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// medianOf expects a sorted slice.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDevOf is the population standard deviation.
func stdDevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

func sortSummaries(summaries []models.MetricSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		switch {
		case a.Bucket == nil:
			return b.Bucket != nil
		case b.Bucket == nil:
			return false
		default:
			return a.Bucket.Before(*b.Bucket)
		}
	})
}

// SummarizeHandovers aggregates episodes per entity plus a run-wide row under
// models.AggregateEntity. Rates stay nil when their denominator is zero; the
// latency summary covers successful episodes only.
func SummarizeHandovers(episodes []models.HandoverEpisode) []models.HandoverStats {
	byEntity := make(map[string][]models.HandoverEpisode)
	for _, ep := range episodes {
		byEntity[ep.EntityID] = append(byEntity[ep.EntityID], ep)
	}

	entities := make([]string, 0, len(byEntity))
	for entity := range byEntity {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	out := make([]models.HandoverStats, 0, len(entities)+1)
	out = append(out, summarizeEpisodes(models.AggregateEntity, episodes))
	for _, entity := range entities {
		out = append(out, summarizeEpisodes(entity, byEntity[entity]))
	}
	return out
}

func summarizeEpisodes(entity string, episodes []models.HandoverEpisode) models.HandoverStats {
	hs := models.HandoverStats{EntityID: entity, Attempts: len(episodes)}
	var latencies []float64
	for _, ep := range episodes {
		switch ep.Outcome {
		case models.HandoverSuccess:
			hs.Successes++
			if ep.Latency != nil {
				latencies = append(latencies, ep.Latency.Seconds()*1000)
			}
		case models.HandoverFailure:
			hs.Failures++
		case models.HandoverTimeout:
			hs.Timeouts++
		case models.HandoverAborted:
			hs.Aborted++
		}
		if ep.PingPong {
			hs.PingPong++
		}
	}
	if hs.Attempts > 0 {
		rate := 100 * float64(hs.Successes) / float64(hs.Attempts)
		hs.SuccessRate = &rate
	}
	// Ping-pong is judged against completed handovers; an aborted attempt
	// never moved the UE so it cannot bounce back.
	if completed := hs.Attempts - hs.Aborted; completed > 0 {
		rate := 100 * float64(hs.PingPong) / float64(completed)
		hs.PingPongRate = &rate
	}
	hs.Latency = summarizeValues(latencies)
	hs.Latency.EntityID = entity
	hs.Latency.Metric = "handover_latency_ms"
	return hs
}
