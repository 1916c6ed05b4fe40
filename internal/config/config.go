package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source formats understood by the record parser.
const (
	FormatUELog        = "ue-log"
	FormatGNBLog       = "gnb-log"
	FormatMobilityJSON = "mobility-json"
	FormatRrcJSON      = "rrc-json"
)

// Output formats understood by the report exporter.
const (
	OutputCSV      = "csv"
	OutputJSON     = "json"
	OutputMarkdown = "markdown"
)

// Config captures everything required for one analysis run.
type Config struct {
	Output      OutputConfig      `yaml:"output"`
	Sources     []SourceConfig    `yaml:"sources"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Handover    HandoverConfig    `yaml:"handover"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Rules       RulesConfig       `yaml:"rules"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourceConfig names one input file and how to read it.
type SourceConfig struct {
	Path     string `yaml:"path"`
	EntityID string `yaml:"entityID"`
	Role     string `yaml:"role"`
	Format   string `yaml:"format"`
}

// OutputConfig controls where and in which forms results are written.
type OutputConfig struct {
	Dir             string   `yaml:"dir"`
	Formats         []string `yaml:"formats"`
	MetricsTextfile string   `yaml:"metricsTextfile"`
}

// CorrelationConfig tunes cross-source event linking.
type CorrelationConfig struct {
	ToleranceWindow time.Duration `yaml:"toleranceWindow"`
}

// HandoverConfig tunes the handover state machine. Timeouts are logical,
// evaluated against event timestamps rather than wall clock.
type HandoverConfig struct {
	PendingTimeout   time.Duration `yaml:"pendingTimeout"`
	ExecutingTimeout time.Duration `yaml:"executingTimeout"`
	PingPongWindow   time.Duration `yaml:"pingPongWindow"`
}

// MetricsConfig tunes statistical aggregation. BucketWidth of zero disables
// time bucketing and yields one summary per series.
type MetricsConfig struct {
	BucketWidth time.Duration `yaml:"bucketWidth"`
}

// RulesConfig points at an optional extraction rule-pack overlay.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TRACE_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Output: OutputConfig{
			Dir:     "trace-analysis",
			Formats: []string{OutputCSV, OutputJSON, OutputMarkdown},
		},
		Correlation: CorrelationConfig{ToleranceWindow: 500 * time.Millisecond},
		Handover: HandoverConfig{
			PendingTimeout:   5 * time.Second,
			ExecutingTimeout: 5 * time.Second,
			PingPongWindow:   30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACE_ENGINE_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("TRACE_ENGINE_METRICS_TEXTFILE"); v != "" {
		cfg.Output.MetricsTextfile = v
	}
	if v := os.Getenv("TRACE_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRACE_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("TRACE_ENGINE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("TRACE_ENGINE_TOLERANCE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Correlation.ToleranceWindow = d
		}
	}
	if v := os.Getenv("TRACE_ENGINE_PENDING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Handover.PendingTimeout = d
		}
	}
	if v := os.Getenv("TRACE_ENGINE_EXECUTING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Handover.ExecutingTimeout = d
		}
	}
	if v := os.Getenv("TRACE_ENGINE_PINGPONG_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Handover.PingPongWindow = d
		}
	}
	if v := os.Getenv("TRACE_ENGINE_BUCKET_WIDTH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Metrics.BucketWidth = d
		}
	}
}

// Validate rejects configurations the run could not honor. It runs before any
// input is processed so a run never partially executes against inputs it
// could not open.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no input sources configured")
	}
	for i, src := range c.Sources {
		switch src.Format {
		case FormatUELog, FormatGNBLog, FormatMobilityJSON, FormatRrcJSON:
		default:
			return fmt.Errorf("source %d: unknown format %q", i, src.Format)
		}
		if src.Format != FormatMobilityJSON && src.EntityID == "" {
			return fmt.Errorf("source %d (%s): entityID is required", i, src.Path)
		}
		info, err := os.Stat(src.Path)
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		if info.IsDir() {
			return fmt.Errorf("source %d: %s is a directory", i, src.Path)
		}
	}
	if c.Correlation.ToleranceWindow <= 0 {
		return fmt.Errorf("correlation toleranceWindow must be positive, got %s", c.Correlation.ToleranceWindow)
	}
	if c.Handover.PendingTimeout <= 0 || c.Handover.ExecutingTimeout <= 0 {
		return fmt.Errorf("handover timeouts must be positive")
	}
	if c.Handover.PingPongWindow <= 0 {
		return fmt.Errorf("handover pingPongWindow must be positive, got %s", c.Handover.PingPongWindow)
	}
	if c.Metrics.BucketWidth < 0 {
		return fmt.Errorf("metrics bucketWidth cannot be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir is required")
	}
	for _, f := range c.Output.Formats {
		switch strings.ToLower(f) {
		case OutputCSV, OutputJSON, OutputMarkdown:
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	return nil
}
