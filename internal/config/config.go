package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/history"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "statehistory.json"

	// DefaultAddr is the default listen address of the serve command.
	DefaultAddr = "localhost:9090"

	// DefaultMetricsPath is the default path of the metrics endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "statehistory"
)

// configFileNames lists the accepted file names in lookup order.
var configFileNames = []string{ConfigFileName, "statehistory.yaml", "statehistory.yml"}

// Config represents the complete statehistory configuration file.
type Config struct {
	// History configures the history driven by the CLI.
	History HistoryConfig `json:"history" yaml:"history"`

	// Log configures logging.
	Log LogConfig `json:"log" yaml:"log"`

	// Serve configures the serve command.
	Serve ServeConfig `json:"serve" yaml:"serve"`

	// configPath is the path where the config was loaded from.
	configPath string
}

// HistoryConfig maps onto history options.
type HistoryConfig struct {
	// MaxCapacity bounds the past. Zero means unbounded.
	MaxCapacity int `json:"maxCapacity,omitempty" yaml:"maxCapacity,omitempty"`

	// Debounce defers commits until the value settles.
	Debounce Duration `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// Throttle commits at most once per interval.
	Throttle Duration `json:"throttle,omitempty" yaml:"throttle,omitempty"`

	// ThrottleTrailingOnly delays even the first throttled commit.
	ThrottleTrailingOnly bool `json:"throttleTrailingOnly,omitempty" yaml:"throttleTrailingOnly,omitempty"`

	// Immutable compares by identity and skips cloning.
	Immutable bool `json:"immutable,omitempty" yaml:"immutable,omitempty"`

	// Paused starts the history paused.
	Paused bool `json:"paused,omitempty" yaml:"paused,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ServeConfig contains configuration for the serve command.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// MetricsPath is the path of the Prometheus endpoint.
	MetricsPath string `json:"metricsPath,omitempty" yaml:"metricsPath,omitempty"`

	// Namespace is the Prometheus namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Serve: ServeConfig{
			Addr:        DefaultAddr,
			MetricsPath: DefaultMetricsPath,
			Namespace:   DefaultNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for statehistory.json, then statehistory.yaml and .yml.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("H006").
		WithDetail("No statehistory.json or statehistory.yaml found in " + dir).
		WithSuggestion("Pass --config or create statehistory.json")
}

// LoadFile reads configuration from the specified file path. The format
// follows the extension: .yaml and .yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("H006").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("H005").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("H005").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid " + formatName(path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("H005").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("H005").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.MetricsPath == "" {
		c.Serve.MetricsPath = DefaultMetricsPath
	}
	if c.Serve.Namespace == "" {
		c.Serve.Namespace = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	h := c.History
	if h.MaxCapacity < 0 {
		return errors.New("H002").
			WithDetailf("maxCapacity is %d", h.MaxCapacity).
			WithSuggestion("Use a positive bound, or 0 for an unbounded history")
	}
	if h.Debounce < 0 || h.Throttle < 0 {
		return errors.New("H003").
			WithSuggestion("Use 0 to apply commits immediately")
	}
	if h.Debounce > 0 && h.Throttle > 0 {
		return errors.New("H001").
			WithSuggestion("Set either debounce or throttle, not both")
	}
	if h.ThrottleTrailingOnly && h.Throttle == 0 {
		return errors.New("H001").
			WithDetail("throttleTrailingOnly requires throttle").
			WithSuggestion("Set throttle, or drop throttleTrailingOnly")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("H005").WithDetail(err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New("H005").
			WithDetailf("unknown log format %q", c.Log.Format).
			WithSuggestion("Use text or json")
	}
	if c.Serve.MetricsPath != "" && !strings.HasPrefix(c.Serve.MetricsPath, "/") {
		return errors.New("H005").
			WithDetailf("metricsPath %q must start with /", c.Serve.MetricsPath)
	}
	return nil
}

// HistoryOptions converts the history section into history options.
func (c *Config) HistoryOptions() []history.Option {
	h := c.History
	var opts []history.Option
	if h.MaxCapacity > 0 {
		opts = append(opts, history.WithMaxCapacity(h.MaxCapacity))
	}
	if h.Debounce > 0 {
		opts = append(opts, history.WithDebounce(h.Debounce.Std()))
	}
	if h.Throttle > 0 {
		opts = append(opts, history.WithThrottle(h.Throttle.Std()))
		if h.ThrottleTrailingOnly {
			opts = append(opts, history.WithThrottleTrailingOnly())
		}
	}
	if h.Immutable {
		opts = append(opts, history.Immutable())
	}
	if h.Paused {
		opts = append(opts, history.StartPaused())
	}
	return opts
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func formatName(path string) string {
	if isYAML(path) {
		return "YAML"
	}
	return "JSON"
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// Duration is a time.Duration that reads either a Go duration string
// ("500ms") or a number of milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %s", data)
	}
	*d = Duration(ms * float64(time.Millisecond))
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a duration string or milliseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if tag := node.ShortTag(); tag == "!!int" || tag == "!!float" {
		var ms float64
		if err := node.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
