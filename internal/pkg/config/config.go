package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration, loaded once at startup from a YAML file.
// The thresholds and intervals under Scrape/Alerts seed the initial models.Settings row;
// after startup, operators adjust the live Settings through the settings table and the
// Scheduler snapshots it at the start of each cycle rather than re-reading this file.
type Config struct {
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Scrape      ScrapeConfig      `yaml:"scrape"`
	Books       BooksConfig       `yaml:"books"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Health      HealthConfig      `yaml:"health"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScrapeConfig configures the Scheduler/Coordinator cadence. spec.md §4.3, §4.7.
type ScrapeConfig struct {
	Interval         time.Duration `yaml:"interval"`
	BatchSize        int           `yaml:"batch_size"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	RetentionHorizon time.Duration `yaml:"retention_horizon"`
	CacheGraceWindow time.Duration `yaml:"cache_grace_window"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// BooksConfig holds one sub-config per upstream book. spec.md §4.1.
type BooksConfig struct {
	Enabled     []string          `yaml:"enabled"` // subset of "primary","competitor_a","competitor_b"
	UserAgent   string            `yaml:"user_agent"`
	Primary     PrimaryBookConfig `yaml:"primary"`
	CompetitorA CompetitorAConfig `yaml:"competitor_a"`
	CompetitorB CompetitorBConfig `yaml:"competitor_b"`
}

// PrimaryBookConfig is grounded on the teacher's FonbetConfig: plain gzip JSON API, no
// mirror resolution or proxy rotation needed.
type PrimaryBookConfig struct {
	BaseURL        string `yaml:"base_url"`
	Lang           string `yaml:"lang"`
	Version        string `yaml:"version"`
	MaxConcurrency int64  `yaml:"max_concurrency"` // default 50, spec.md §5
}

// CompetitorAConfig is grounded on the teacher's PinnacleConfig/Pinnacle888Config:
// API key + device uuid headers, proxy rotation, shared join key embedded in the
// upstream matchup id.
type CompetitorAConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"api_key"`
	DeviceUUID     string   `yaml:"device_uuid"`
	ProxyList      []string `yaml:"proxy_list"`
	MaxConcurrency int64    `yaml:"max_concurrency"` // default 50
}

// CompetitorBConfig is grounded on the teacher's Xbet1Config/MarathonbetConfig: mirror
// resolution via a headless browser, brotli/zstd response bodies, a throttled upstream
// that needs inter-request spacing.
type CompetitorBConfig struct {
	BaseURL          string        `yaml:"base_url"`
	MirrorURL        string        `yaml:"mirror_url"`
	ProxyList        []string      `yaml:"proxy_list"`
	MaxConcurrency   int64         `yaml:"max_concurrency"`   // default 15
	RequestSpacing   time.Duration `yaml:"request_spacing"`   // default 25ms, spec.md §5
	MirrorResolveTTL time.Duration `yaml:"mirror_resolve_ttl"`
}

// AlertsConfig seeds the Detector's risk thresholds. spec.md §4.3 Phase 4.3, §3 Settings.
type AlertsConfig struct {
	Enabled           bool    `yaml:"enabled"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	ElevatedThreshold float64 `yaml:"elevated_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
	CooldownMinutes   int     `yaml:"cooldown_minutes"`
	LookbackHours     int     `yaml:"lookback_hours"`
}

type BroadcasterConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`
	SubscriberQueue int           `yaml:"subscriber_queue"`
}

// TelegramConfig configures optional risk-alert notifications, grounded on the teacher's
// ValueCalculatorConfig.TelegramBotToken/TelegramChatID, repurposed from value-bet pushes
// to risk-alert pushes.
type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	ChatID      int64  `yaml:"chat_id"`
	MinSeverity string `yaml:"min_severity"` // "warning"|"elevated"|"critical"
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LoggingConfig struct {
	Enabled       bool          `yaml:"enabled"`
	GroupName     string        `yaml:"group_name"`
	GroupID       string        `yaml:"group_id"`
	FolderID      string        `yaml:"folder_id"`
	Level         string        `yaml:"level"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	ProjectLabel  string        `yaml:"project_label"`
	ServiceLabel  string        `yaml:"service_label"`
	ClusterLabel  string        `yaml:"cluster_label"`
}

// Load reads and parses a YAML config file. spec.md §6: configuration errors prevent startup.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.Scrape.Interval <= 0 {
		c.Scrape.Interval = 30 * time.Second
	}
	if c.Scrape.BatchSize <= 0 {
		c.Scrape.BatchSize = 50
	}
	if c.Scrape.RequestTimeout <= 0 {
		c.Scrape.RequestTimeout = 15 * time.Second
	}
	if c.Scrape.CleanupInterval <= 0 {
		c.Scrape.CleanupInterval = time.Hour
	}
	if c.Scrape.RetentionHorizon <= 0 {
		c.Scrape.RetentionHorizon = 72 * time.Hour
	}
	if c.Scrape.CacheGraceWindow <= 0 {
		c.Scrape.CacheGraceWindow = 2 * time.Hour
	}
	if c.Books.Primary.MaxConcurrency <= 0 {
		c.Books.Primary.MaxConcurrency = 50
	}
	if c.Books.CompetitorA.MaxConcurrency <= 0 {
		c.Books.CompetitorA.MaxConcurrency = 50
	}
	if c.Books.CompetitorB.MaxConcurrency <= 0 {
		c.Books.CompetitorB.MaxConcurrency = 15
	}
	if c.Books.CompetitorB.RequestSpacing <= 0 {
		c.Books.CompetitorB.RequestSpacing = 25 * time.Millisecond
	}
	if c.Books.CompetitorB.MirrorResolveTTL <= 0 {
		c.Books.CompetitorB.MirrorResolveTTL = 30 * time.Minute
	}
	if c.Alerts.WarningThreshold <= 0 {
		c.Alerts.WarningThreshold = 5.0
	}
	if c.Alerts.ElevatedThreshold <= 0 {
		c.Alerts.ElevatedThreshold = 10.0
	}
	if c.Alerts.CriticalThreshold <= 0 {
		c.Alerts.CriticalThreshold = 20.0
	}
	if c.Alerts.CooldownMinutes <= 0 {
		c.Alerts.CooldownMinutes = 10
	}
	if c.Alerts.LookbackHours <= 0 {
		c.Alerts.LookbackHours = 24
	}
	if c.Broadcaster.WriteTimeout <= 0 {
		c.Broadcaster.WriteTimeout = 10 * time.Second
	}
	if c.Broadcaster.PingInterval <= 0 {
		c.Broadcaster.PingInterval = 30 * time.Second
	}
	if c.Broadcaster.PongTimeout <= 0 {
		c.Broadcaster.PongTimeout = 2 * c.Broadcaster.PingInterval
	}
	if c.Broadcaster.SubscriberQueue <= 0 {
		c.Broadcaster.SubscriberQueue = 32
	}
	if c.Health.Port <= 0 {
		c.Health.Port = 8080
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
}

// EnabledBooksMap returns the configured enabled books as a set, or all three books when
// none are listed. cmd/oddwatch uses it to seed the settings table on first run only;
// subsequent runs read the live row via storage.Store.LoadSettings.
func (c *Config) EnabledBooksMap() map[string]bool {
	m := make(map[string]bool, len(c.Books.Enabled))
	for _, b := range c.Books.Enabled {
		m[b] = true
	}
	if len(m) == 0 {
		m["primary"] = true
		m["competitor_a"] = true
		m["competitor_b"] = true
	}
	return m
}
