package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // the configured zone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"meetblocks/internal/availability"
	"meetblocks/internal/export"
	"meetblocks/internal/schedule"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Fetch modes.
const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

// Output formats.
const (
	FormatCSV  = export.FormatCSV
	FormatXLSX = export.FormatXLSX
	FormatICS  = export.FormatICS
)

// SourceConfig describes a single event page.
type SourceConfig struct {
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used in logs; derived from Name/URL if empty.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (s SourceConfig) SourceID() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	default:
		return s.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// FetchConfig controls how pages are loaded.
type FetchConfig struct {
	// Mode is "http" (plain GET + inline script parsing) or "browser"
	// (headless Chromium).
	Mode           string `yaml:"mode" json:"mode"`
	CacheDir       string `yaml:"cache_dir" json:"cache_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// OutputConfig controls where and in which formats results are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Formats []string `yaml:"formats" json:"formats"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP address of the status API in watch mode.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone every date and clock time is derived in.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Refresh is the cron schedule for watch mode (e.g. "0 * * * *").
	Refresh string `yaml:"refresh" json:"refresh"`

	MinUsers    int `yaml:"min_users" json:"min_users"`
	WindowSlots int `yaml:"window_slots" json:"window_slots"`
	BeginHour   int `yaml:"begin_hour" json:"begin_hour"`
	EndHour     int `yaml:"end_hour" json:"end_hour"`

	// DateStart/DateEnd are RFC 3339 bounds. Empty start selects the
	// default window (next Monday at least four days out); empty end is
	// start + 7 days.
	DateStart string `yaml:"date_start" json:"date_start"`
	DateEnd   string `yaml:"date_end" json:"date_end"`
	// NoDateFilter disables both date bounds; the hour band still applies.
	NoDateFilter bool `yaml:"no_date_filter" json:"no_date_filter"`

	// SelectOnly restricts analysis to these names. Empty means everyone.
	SelectOnly []string `yaml:"select_only" json:"select_only"`

	// MergeRule is "set" (default) or "headcount".
	MergeRule string `yaml:"merge_rule" json:"merge_rule"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	Fetch  FetchConfig  `yaml:"fetch" json:"fetch"`
	Output OutputConfig `yaml:"output" json:"output"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Europe/Amsterdam",
		LogLevel:    "info",
		Refresh:     "0 * * * *",
		MinUsers:    availability.DefaultMinUsers,
		WindowSlots: availability.DefaultWindowSlots,
		BeginHour:   availability.DefaultBeginHour,
		EndHour:     availability.DefaultEndHour,
		MergeRule:   string(availability.RuleSet),
		SelectOnly:  []string{},
		Sources:     []SourceConfig{},
		Fetch: FetchConfig{
			Mode:           FetchHTTP,
			CacheDir:       "./var/page-cache",
			TimeoutSeconds: 15,
		},
		Output: OutputConfig{
			Dir:     ".",
			Formats: []string{FormatCSV, FormatXLSX},
		},
	}
}

// Normalize fills empty string/list fields so partially written files
// still behave. Numeric fields keep whatever the file said; Validate
// rejects bad values.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Refresh == "" {
		c.Refresh = d.Refresh
	}
	if c.MergeRule == "" {
		c.MergeRule = d.MergeRule
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = d.Fetch.Mode
	}
	if c.Fetch.CacheDir == "" {
		c.Fetch.CacheDir = d.Fetch.CacheDir
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = d.Fetch.TimeoutSeconds
	}
	if c.Output.Dir == "" {
		c.Output.Dir = d.Output.Dir
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = d.Output.Formats
	}
	if c.SelectOnly == nil {
		c.SelectOnly = []string{}
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Output.Formats {
		c.Output.Formats[i] = strings.ToLower(strings.TrimSpace(c.Output.Formats[i]))
	}
}

// Validate reports the first configuration problem, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one source URL is required", ErrInvalidConfig)
	}
	for i, s := range c.Sources {
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%w: source %d has no url", ErrInvalidConfig, i)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	switch c.Fetch.Mode {
	case FetchHTTP, FetchBrowser:
	default:
		return fmt.Errorf("%w: fetch mode %q (want http or browser)", ErrInvalidConfig, c.Fetch.Mode)
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatCSV, FormatXLSX, FormatICS:
		default:
			return fmt.Errorf("%w: output format %q", ErrInvalidConfig, f)
		}
	}
	if _, err := cron.ParseStandard(c.Refresh); err != nil {
		return fmt.Errorf("%w: refresh schedule %q: %v", ErrInvalidConfig, c.Refresh, err)
	}
	if _, err := c.Params(time.Now()); err != nil {
		return err
	}
	return nil
}

// Params resolves the pipeline parameters; now anchors the default date
// window.
func (c *Config) Params(now time.Time) (availability.Params, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return availability.Params{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	rule, err := availability.ParseRule(c.MergeRule)
	if err != nil {
		return availability.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p := availability.Params{
		MinUsers:    c.MinUsers,
		WindowSlots: c.WindowSlots,
		BeginHour:   c.BeginHour,
		EndHour:     c.EndHour,
		SelectOnly:  c.SelectOnly,
		Location:    loc,
		Rule:        rule,
	}

	if !c.NoDateFilter {
		start, end, err := c.dateBounds(now, loc)
		if err != nil {
			return availability.Params{}, err
		}
		p.Start, p.End = &start, &end
	}

	if err := p.Validate(); err != nil {
		return availability.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

func (c *Config) dateBounds(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	if c.DateStart == "" {
		s, e, err := schedule.DefaultWindow(now, loc)
		if err != nil {
			return start, end, err
		}
		start, end = s, e
	} else {
		s, err := time.Parse(time.RFC3339, c.DateStart)
		if err != nil {
			return start, end, fmt.Errorf("%w: date_start %q: %v", ErrInvalidConfig, c.DateStart, err)
		}
		start, end = s, s.AddDate(0, 0, schedule.WindowDays)
	}
	if c.DateEnd != "" {
		e, err := time.Parse(time.RFC3339, c.DateEnd)
		if err != nil {
			return start, end, fmt.Errorf("%w: date_end %q: %v", ErrInvalidConfig, c.DateEnd, err)
		}
		end = e
	}
	return start, end, nil
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies MEETBLOCKS_* overrides. Credentials are best kept there rather
// than in the YAML file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv("MEETBLOCKS_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("MEETBLOCKS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MEETBLOCKS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	user := os.Getenv("MEETBLOCKS_BASIC_AUTH_USER")
	pass := os.Getenv("MEETBLOCKS_BASIC_AUTH_PASSWORD")
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 permissions and returned.
//   - Otherwise the YAML is decoded over the defaults, so keys missing from
//     the file keep their default values, and then normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meetblocks-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
