package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"railbook/internal/booking"
	"railbook/internal/calendar"
	"railbook/internal/civil"
)

// EnvPrefix namespaces environment overrides, e.g. RAILBOOK_LISTEN or
// RAILBOOK_OVERVIEW_MODE.
const EnvPrefix = "RAILBOOK"

// OverviewConfig selects the overview calendar range.
type OverviewConfig struct {
	// Mode is "cutoff" (first of month to Cutoff) or "rolling" (to today+RollingDays).
	Mode        string `yaml:"mode" json:"mode" validate:"oneof=cutoff rolling"`
	Cutoff      string `yaml:"cutoff" json:"cutoff" validate:"omitempty,datetime=2006-01-02"`
	RollingDays int    `yaml:"rolling_days" json:"rolling_days" validate:"gte=1,lte=366"`
}

// HolidaysConfig points at an external holiday table. Both empty means the
// embedded table.
type HolidaysConfig struct {
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
}

// OfflineConfig configures the stale-while-revalidate cache.
type OfflineConfig struct {
	Dir      string   `yaml:"dir" json:"dir" validate:"required"`
	Version  string   `yaml:"version" json:"version" validate:"required"`
	Precache []string `yaml:"precache" json:"precache"`
}

// PreferenceConfig selects the theme store backend.
type PreferenceConfig struct {
	Backend string `yaml:"backend" json:"backend" validate:"oneof=memory file redis"`
	File    string `yaml:"file" json:"file" validate:"required_if=Backend file"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0,lte=15"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info error"`
	// File enables rotating JSON logs in addition to the console.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the page and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is informational; booking arithmetic always runs in IST.
	Timezone string `yaml:"timezone" json:"timezone"`

	AdvanceDays int `yaml:"advance_days" json:"advance_days" validate:"gte=1,lte=365"`

	// TatkalRule is "next-day" (booking on day N is for travel on N+1) or
	// "same-day".
	TatkalRule string `yaml:"tatkal_rule" json:"tatkal_rule" validate:"oneof=next-day same-day"`

	// TodayCacheTTL is a Go duration string, e.g. "60s".
	TodayCacheTTL string `yaml:"today_cache_ttl" json:"today_cache_ttl"`

	Overview   OverviewConfig `yaml:"overview" json:"overview"`
	PickerDays int            `yaml:"picker_days" json:"picker_days" validate:"gte=1,lte=366"`

	Holidays HolidaysConfig `yaml:"holidays" json:"holidays"`
	Offline  OfflineConfig  `yaml:"offline" json:"offline"`

	SiteURL     string `yaml:"site_url" json:"site_url" validate:"required,url"`
	ProductName string `yaml:"product_name" json:"product_name" validate:"required"`
	BookingURL  string `yaml:"booking_url" json:"booking_url" validate:"required,url"`

	Preference PreferenceConfig `yaml:"preference" json:"preference"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Log        LogConfig        `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		Timezone:      civil.ZoneName,
		AdvanceDays:   booking.DefaultAdvanceDays,
		TatkalRule:    string(booking.TatkalNextDay),
		TodayCacheTTL: civil.DefaultTodayTTL.String(),
		Overview: OverviewConfig{
			Mode:        string(calendar.ModeCutoff),
			Cutoff:      "2026-12-31",
			RollingDays: calendar.DefaultRollingDays,
		},
		PickerDays: calendar.DefaultPickerDays,
		Offline: OfflineConfig{
			Dir:      "./var/offline-cache",
			Version:  "railbook-v1",
			Precache: []string{"/", "/static/app.js", "/static/style.css"},
		},
		SiteURL:     "https://railbookingdate.com",
		ProductName: "RailBookingDate.com",
		BookingURL:  "https://www.irctc.co.in/nget/train-search",
		Preference: PreferenceConfig{
			Backend: "file",
			File:    "./var/preferences.yaml",
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Log:   LogConfig{Level: "info"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.AdvanceDays <= 0 {
		c.AdvanceDays = def.AdvanceDays
	}
	if c.TatkalRule == "" {
		c.TatkalRule = def.TatkalRule
	}
	if c.TodayCacheTTL == "" {
		c.TodayCacheTTL = def.TodayCacheTTL
	}
	if c.Overview.Mode == "" {
		c.Overview.Mode = def.Overview.Mode
	}
	if c.Overview.RollingDays <= 0 {
		c.Overview.RollingDays = def.Overview.RollingDays
	}
	if c.PickerDays <= 0 {
		c.PickerDays = def.PickerDays
	}
	if c.Offline.Dir == "" {
		c.Offline.Dir = def.Offline.Dir
	}
	if c.Offline.Version == "" {
		c.Offline.Version = def.Offline.Version
	}
	if c.Offline.Precache == nil {
		c.Offline.Precache = def.Offline.Precache
	}
	if c.SiteURL == "" {
		c.SiteURL = def.SiteURL
	}
	if c.ProductName == "" {
		c.ProductName = def.ProductName
	}
	if c.BookingURL == "" {
		c.BookingURL = def.BookingURL
	}
	if c.Preference.Backend == "" {
		c.Preference.Backend = def.Preference.Backend
	}
	if c.Preference.File == "" {
		c.Preference.File = def.Preference.File
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

var validate = validator.New()

// Validate checks struct tags plus the values tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.ParseDuration(c.TodayCacheTTL); err != nil {
		return fmt.Errorf("invalid config: today_cache_ttl: %w", err)
	}
	if c.Preference.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required for the redis backend")
	}
	return nil
}

// Rules returns the booking rules the config describes.
func (c *Config) Rules() booking.Rules {
	r := booking.DefaultRules()
	r.AdvanceDays = c.AdvanceDays
	if rule, err := booking.ParseTatkalRule(c.TatkalRule); err == nil {
		r.Tatkal = rule
	}
	return r
}

// TodayTTL is the parsed TodayCacheTTL, falling back to the default.
func (c *Config) TodayTTL() time.Duration {
	d, err := time.ParseDuration(c.TodayCacheTTL)
	if err != nil || d <= 0 {
		return civil.DefaultTodayTTL
	}
	return d
}

// CalendarOptions converts the overview/picker settings.
func (c *Config) CalendarOptions() calendar.Options {
	opts := calendar.Options{
		Mode:        calendar.ModeCutoff,
		RollingDays: c.Overview.RollingDays,
		PickerDays:  c.PickerDays,
	}
	if m, err := calendar.ParseOverviewMode(c.Overview.Mode); err == nil {
		opts.Mode = m
	}
	if d, err := civil.Parse(c.Overview.Cutoff); err == nil {
		opts.Cutoff = d
	}
	return opts
}

// NewViper returns a viper instance that reads RAILBOOK_* environment
// variables, with "." in keys mapped to "_".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay copies every key set in v (environment or changed flag) onto c.
func (c *Config) Overlay(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("listen", &c.Listen)
	str("timezone", &c.Timezone)
	num("advance_days", &c.AdvanceDays)
	str("tatkal_rule", &c.TatkalRule)
	str("today_cache_ttl", &c.TodayCacheTTL)
	str("overview.mode", &c.Overview.Mode)
	str("overview.cutoff", &c.Overview.Cutoff)
	num("overview.rolling_days", &c.Overview.RollingDays)
	num("picker_days", &c.PickerDays)
	str("holidays.file", &c.Holidays.File)
	str("holidays.url", &c.Holidays.URL)
	str("offline.dir", &c.Offline.Dir)
	str("offline.version", &c.Offline.Version)
	str("site_url", &c.SiteURL)
	str("product_name", &c.ProductName)
	str("booking_url", &c.BookingURL)
	str("preference.backend", &c.Preference.Backend)
	str("preference.file", &c.Preference.File)
	str("redis.addr", &c.Redis.Addr)
	str("redis.password", &c.Redis.Password)
	num("redis.db", &c.Redis.DB)
	str("log.level", &c.Log.Level)
	str("log.file", &c.Log.File)

	if v.IsSet("basic_auth.username") && v.IsSet("basic_auth.password") {
		c.BasicAuth = &BasicAuthConfig{
			Username: v.GetString("basic_auth.username"),
			Password: v.GetString("basic_auth.password"),
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".railbook-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
