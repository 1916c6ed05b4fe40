// Package engine hosts the correlation core: timeline building, handover
// classification, and the batch pipeline that drives a whole run.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ranscope/trace-engine/internal/config"
	"github.com/ranscope/trace-engine/internal/extractors"
	"github.com/ranscope/trace-engine/internal/metrics"
	"github.com/ranscope/trace-engine/internal/models"
	"github.com/ranscope/trace-engine/internal/parser"
	"github.com/ranscope/trace-engine/internal/patterns"
	"github.com/ranscope/trace-engine/internal/report"
	"github.com/ranscope/trace-engine/internal/stats"
	"github.com/ranscope/trace-engine/internal/utils"
)

// Pipeline wires the whole batch flow: parse, extract, correlate, classify,
// aggregate, mine, export. One invocation is a pure transformation from
// input files to output files; nothing persists across runs.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	parser     *parser.Parser
	extractor  *extractors.Extractor
	correlator *Correlator
	classifier *Classifier
	miner      *patterns.Miner
	exporter   *report.Exporter
	run        *metrics.Run
}

// NewPipeline constructs a Pipeline from validated configuration.
func NewPipeline(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules, err := extractors.NewRuleSet(cfg.Rules.Path, logger)
	if err != nil {
		return nil, utils.NewAppError("engine.NewPipeline", "load extraction rules", err)
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		parser:     parser.New(logger),
		extractor:  extractors.New(rules, logger),
		correlator: NewCorrelator(cfg.Correlation.ToleranceWindow, logger),
		classifier: NewClassifier(cfg.Handover, logger),
		miner:      patterns.NewMiner(patterns.DefaultWindow, patterns.DefaultRareThreshold, logger),
		exporter:   report.New(cfg.Output, logger),
		run:        metrics.NewRun(),
	}, nil
}

// Run executes the full analysis and exports the results. Data-quality
// problems never fail the run; they surface as counters and withheld
// entities in the returned document.
func (p *Pipeline) Run(ctx context.Context) (*report.Document, error) {
	doc := &report.Document{GeneratedAt: time.Now().UTC()}

	records, parseStats, err := p.parseSources(ctx)
	if err != nil {
		return nil, err
	}
	doc.ParseStats = parseStats

	extractStart := time.Now()
	extracted := p.extractor.Extract(records)
	p.run.ObserveStage("extract", time.Since(extractStart))
	p.run.ObserveExtraction(len(extracted.Samples), len(extracted.Messages), len(extracted.Mobility), extracted.Discarded)
	doc.DiscardedRecords = extracted.Discarded

	timelines, episodes, unlinked, withheld, err := p.correlateAndClassify(ctx, extracted)
	if err != nil {
		return nil, err
	}
	doc.Timelines = timelines
	doc.Episodes = episodes
	doc.UnlinkedTriggers = unlinked
	doc.WithheldEntities = withheld

	aggStart := time.Now()
	samples := append(extracted.Samples, DeriveProcedureDurations(timelines)...)
	doc.Summaries = stats.Summarize(samples, p.cfg.Metrics.BucketWidth)
	doc.HandoverStats = stats.SummarizeHandovers(episodes)
	p.run.ObserveStage("aggregate", time.Since(aggStart))

	mined := p.miner.Mine(timelines)
	doc.CommonPatterns = mined.Common
	doc.RarePatterns = mined.Rare

	exportStart := time.Now()
	if err := p.exporter.Export(doc); err != nil {
		return nil, utils.NewAppError("engine.Run", "export results", err)
	}
	p.run.ObserveStage("export", time.Since(exportStart))

	if err := p.run.WriteTextfile(p.cfg.Output.MetricsTextfile); err != nil {
		p.logger.Warn("metrics textfile write failed", slog.Any("error", err))
	}

	p.logger.Info("run complete",
		slog.Int("entities", len(timelines)),
		slog.Int("episodes", len(episodes)),
		slog.Int("discarded", doc.DiscardedRecords),
		slog.Int("unlinked_triggers", unlinked),
		slog.Int("withheld", len(withheld)))
	return doc, nil
}

// parseSources reads every configured source concurrently. Ordering across
// files does not matter here since correlation re-sorts by timestamp.
func (p *Pipeline) parseSources(ctx context.Context) ([]models.LogRecord, []parser.Stats, error) {
	sources := parser.FromConfig(p.cfg.Sources)
	perSource := make([][]models.LogRecord, len(sources))
	statsOut := make([]parser.Stats, len(sources))

	start := time.Now()
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, src := range sources {
		g.Go(func() error {
			recs, st, err := p.parser.ParseSource(src)
			if err != nil {
				return err
			}
			perSource[i] = recs
			statsOut[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, utils.NewAppError("engine.parseSources", "read input sources", err)
	}
	p.run.ObserveStage("parse", time.Since(start))

	var records []models.LogRecord
	for i := range perSource {
		records = append(records, perSource[i]...)
		p.run.ObserveSource(statsOut[i].SourceID, statsOut[i].Records, statsOut[i].Skipped)
	}
	return records, statsOut, nil
}

// correlateAndClassify fans out per entity. Entities share no state, so each
// worker owns its slice exclusively and the merge is a plain gather. An
// invariant violation withholds that entity's output but never fails the run.
func (p *Pipeline) correlateAndClassify(ctx context.Context, ex extractors.Result) ([]models.Timeline, []models.HandoverEpisode, int, []string, error) {
	msgsByEntity := make(map[string][]models.RrcMessage)
	for _, m := range ex.Messages {
		msgsByEntity[m.EntityID] = append(msgsByEntity[m.EntityID], m)
	}
	evsByEntity := make(map[string][]models.MobilityEvent)
	for _, ev := range ex.Mobility {
		evsByEntity[ev.EntityID] = append(evsByEntity[ev.EntityID], ev)
	}

	entitySet := make(map[string]struct{})
	for e := range msgsByEntity {
		entitySet[e] = struct{}{}
	}
	for e := range evsByEntity {
		entitySet[e] = struct{}{}
	}
	entities := make([]string, 0, len(entitySet))
	for e := range entitySet {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	type entityResult struct {
		timeline models.Timeline
		episodes []models.HandoverEpisode
		unlinked int
		withheld bool
	}
	results := make([]entityResult, len(entities))
	tracker := utils.NewLatencyTracker(len(entities))

	start := time.Now()
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, entity := range entities {
		g.Go(func() error {
			began := time.Now()
			corr := p.correlator.Correlate(msgsByEntity[entity], evsByEntity[entity])
			res := entityResult{unlinked: corr.UnlinkedTriggers}
			if len(corr.Timelines) > 0 {
				res.timeline = corr.Timelines[0]
			} else {
				res.timeline = models.Timeline{EntityID: entity}
			}
			episodes, err := p.classifier.Classify(res.timeline)
			if err != nil {
				if errors.Is(err, utils.ErrInvariant) {
					p.logger.Error("entity withheld", slog.String("entity", entity), slog.Any("error", err))
					res.withheld = true
				} else {
					return err
				}
			}
			res.episodes = episodes
			results[i] = res
			tracker.Observe(time.Since(began))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, nil, utils.NewAppError("engine.correlateAndClassify", "per-entity processing", err)
	}
	p.run.ObserveStage("correlate", time.Since(start))

	var (
		timelines []models.Timeline
		episodes  []models.HandoverEpisode
		unlinked  int
		withheld  []string
	)
	for i, res := range results {
		unlinked += res.unlinked
		if res.withheld {
			withheld = append(withheld, entities[i])
			continue
		}
		timelines = append(timelines, res.timeline)
		episodes = append(episodes, res.episodes...)
		for _, ep := range res.episodes {
			p.run.ObserveEpisode(string(ep.Outcome))
		}
	}
	p.logger.Debug("per-entity processing done",
		slog.Int("entities", len(entities)),
		slog.Duration("p95", tracker.Percentile(95)))
	return timelines, episodes, unlinked, withheld, nil
}
