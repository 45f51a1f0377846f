package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsShell/internal/domain"
)

const (
	defaultTimezone      = "Asia/Seoul"
	configPathEnv        = "NEWSSHELL_CONFIG"
	envSuffixEnv         = "NEWSSHELL_ENV_SUFFIX"
	logLevelEnv          = "NEWSSHELL_LOG_LEVEL"
	journalDSNEnv        = "NEWSSHELL_JOURNAL_DSN"
	masterConfigURLEnv   = "NEWSSHELL_MASTER_CONFIG_URL"
	httpAddrEnv          = "NEWSSHELL_HTTP_ADDR"
	authCheckURLEnv      = "NEWSSHELL_AUTH_CHECK_URL"
	chromeExecPathEnv    = "NEWSSHELL_CHROME_PATH"
	defaultMemberScheme  = "hkplus"
	defaultJournalBuffer = 256
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig       `yaml:"logging"`
	Master    domain.MasterConfig `yaml:"master"`
	Remote    RemoteConfig        `yaml:"remote"`
	Account   AccountConfig       `yaml:"account"`
	Journal   JournalConfig       `yaml:"journal"`
	Surface   SurfaceConfig       `yaml:"surface"`
	Pool      PoolConfig          `yaml:"pool"`
	HTTP      HTTPConfig          `yaml:"http"`
	Headless  HeadlessConfig      `yaml:"headless"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RemoteConfig points at the master-config endpoint.
type RemoteConfig struct {
	MasterConfigURL string        `yaml:"masterConfigUrl"`
	Timeout         time.Duration `yaml:"timeout"`
}

// AccountConfig describes the member server session check.
type AccountConfig struct {
	CheckURL     string   `yaml:"checkUrl"`
	SuccessCodes []string `yaml:"successCodes"`
}

// JournalConfig describes the SQLite navigation journal.
type JournalConfig struct {
	DSN    string `yaml:"dsn"`
	Buffer int    `yaml:"buffer"`
}

// SurfaceConfig tunes the per-surface lifecycle.
type SurfaceConfig struct {
	Watchdog        time.Duration `yaml:"watchdog"`
	SettleDelay     time.Duration `yaml:"settleDelay"`
	VisibleProgress float64       `yaml:"visibleProgress"`
}

// PoolConfig tunes the surface pool.
type PoolConfig struct {
	Tabs            []string      `yaml:"tabs"`
	PreloadRadius   int           `yaml:"preloadRadius"`
	PreloadCooldown time.Duration `yaml:"preloadCooldown"`
	MaxLive         int           `yaml:"maxLive"`
}

// HTTPConfig is the inspection API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// HeadlessConfig drives the chromedp-backed surfaces.
type HeadlessConfig struct {
	ExecPath string        `yaml:"execPath"`
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SchedulerConfig defines when the master config is refreshed.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// LoadFile merges the YAML file at path over the defaults. Environment
// overrides are applied too so a reload never drops them.
func LoadFile(path string) (Config, error) {
	fileCfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg, nil
}

// Path returns the config file path taken from the environment.
func Path() string {
	return os.Getenv(configPathEnv)
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv(envSuffixEnv); ok {
		c.Master.EnvironmentSuffix = strings.TrimSpace(v)
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(journalDSNEnv); v != "" {
		c.Journal.DSN = v
	}

	if v := os.Getenv(masterConfigURLEnv); v != "" {
		c.Remote.MasterConfigURL = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(authCheckURLEnv); v != "" {
		c.Account.CheckURL = v
	}

	if v := os.Getenv(chromeExecPathEnv); v != "" {
		c.Headless.ExecPath = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	base.Master = mergeMaster(base.Master, override.Master)

	if override.Remote.MasterConfigURL != "" {
		base.Remote.MasterConfigURL = override.Remote.MasterConfigURL
	}
	if override.Remote.Timeout > 0 {
		base.Remote.Timeout = override.Remote.Timeout
	}

	if override.Account.CheckURL != "" {
		base.Account.CheckURL = override.Account.CheckURL
	}
	if len(override.Account.SuccessCodes) > 0 {
		base.Account.SuccessCodes = override.Account.SuccessCodes
	}

	if override.Journal.DSN != "" {
		base.Journal.DSN = override.Journal.DSN
	}
	if override.Journal.Buffer > 0 {
		base.Journal.Buffer = override.Journal.Buffer
	}

	if override.Surface.Watchdog > 0 {
		base.Surface.Watchdog = override.Surface.Watchdog
	}
	if override.Surface.SettleDelay > 0 {
		base.Surface.SettleDelay = override.Surface.SettleDelay
	}
	if override.Surface.VisibleProgress > 0 {
		base.Surface.VisibleProgress = override.Surface.VisibleProgress
	}

	if len(override.Pool.Tabs) > 0 {
		base.Pool.Tabs = override.Pool.Tabs
	}
	if override.Pool.PreloadRadius > 0 {
		base.Pool.PreloadRadius = override.Pool.PreloadRadius
	}
	if override.Pool.PreloadCooldown > 0 {
		base.Pool.PreloadCooldown = override.Pool.PreloadCooldown
	}
	if override.Pool.MaxLive > 0 {
		base.Pool.MaxLive = override.Pool.MaxLive
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Headless.ExecPath != "" {
		base.Headless.ExecPath = override.Headless.ExecPath
	}
	if override.Headless.Width > 0 {
		base.Headless.Width = override.Headless.Width
	}
	if override.Headless.Height > 0 {
		base.Headless.Height = override.Headless.Height
	}
	if override.Headless.Timeout > 0 {
		base.Headless.Timeout = override.Headless.Timeout
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func mergeMaster(base, override domain.MasterConfig) domain.MasterConfig {
	if override.RootDomain != "" {
		base.RootDomain = override.RootDomain
	}
	if len(override.AcceptedDomains) > 0 {
		base.AcceptedDomains = override.AcceptedDomains
	}
	if len(override.ExternalDomains) > 0 {
		base.ExternalDomains = override.ExternalDomains
	}
	if override.EnvironmentSuffix != "" {
		base.EnvironmentSuffix = override.EnvironmentSuffix
	}
	if len(override.ConsensusPaths) > 0 {
		base.ConsensusPaths = override.ConsensusPaths
	}
	if len(override.AppHeaders) > 0 {
		base.AppHeaders = override.AppHeaders
	}
	if override.MemberAppScheme != "" {
		base.MemberAppScheme = override.MemberAppScheme
	}
	return base
}

// DefaultMaster is the production routing snapshot used until a remote config arrives.
func DefaultMaster() domain.MasterConfig {
	return domain.MasterConfig{
		RootDomain:      "hankyung.com",
		AcceptedDomains: []string{"hankyung.com", "hankyungmall.com"},
		ExternalDomains: []string{"youtube.com", "youtu.be", "facebook.com", "instagram.com", "twitter.com", "x.com"},
		ConsensusPaths: []string{
			"consensus.hankyung.com/apps.analysis{sfx}/analysis.list",
			"consensus.hankyung.com/apps.analysis{sfx}/analysis.downpdf",
		},
		AppHeaders:      map[string]string{"X-HK-App": "newsshell"},
		MemberAppScheme: defaultMemberScheme,
	}
}

func defaultConfig() Config {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Master:  DefaultMaster(),
		Remote:  RemoteConfig{Timeout: 10 * time.Second},
		Account: AccountConfig{},
		Journal: JournalConfig{DSN: "file:newsshell.db?_pragma=busy_timeout(5000)", Buffer: defaultJournalBuffer},
		Surface: SurfaceConfig{
			Watchdog:        10 * time.Second,
			SettleDelay:     300 * time.Millisecond,
			VisibleProgress: 0.3,
		},
		Pool: PoolConfig{
			Tabs: []string{
				"https://www.hankyung.com/",
				"https://www.hankyung.com/economy",
				"https://www.hankyung.com/financial-market",
				"https://www.hankyung.com/industry",
				"https://www.hankyung.com/realestate",
			},
			PreloadRadius:   2,
			PreloadCooldown: 30 * time.Second,
		},
		HTTP:      HTTPConfig{Addr: "127.0.0.1:8088"},
		Headless:  HeadlessConfig{Width: 390, Height: 844, Timeout: 30 * time.Second},
		Scheduler: SchedulerConfig{CronExpression: "*/15 * * * *", Timezone: defaultTimezone, location: loc},
	}
}
