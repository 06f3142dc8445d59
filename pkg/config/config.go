// Package config provides configuration management.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Supported browser drivers.
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
	DriverStatic     = "static"
)

// Supported sentinel strategies.
const (
	StrategyImageAlt = "image_alt"
)

// Config holds all configuration settings
type Config struct {
	// BaseURL, when set, replaces scheme and host of every suite page URL
	// (run the same data against staging).
	BaseURL string `json:"base_url,omitempty"`

	// Navigate to the suite page from a brand new page for every case
	// instead of reusing the suite page.
	FreshPagePerCase bool `json:"fresh_page_per_case"`

	Log         LogConfig        `json:"log"`
	Browser     BrowserConfig    `json:"browser"`
	Timeouts    TimeoutConfig    `json:"timeouts"`
	LaunchRetry RetryConfig      `json:"launch_retry"`
	Sentinels   []SentinelConfig `json:"sentinels"`
	Suites      []SuiteConfig    `json:"suites"`
	Report      ReportConfig     `json:"report"`
	Telegram    TelegramConfig   `json:"telegram"`

	// directory of the loaded config file, used to resolve suite data paths
	baseDir string
}

// LogConfig controls the run log.
type LogConfig struct {
	Dir     string `json:"dir"`
	File    string `json:"file"`
	Level   string `json:"level"`
	Console bool   `json:"console"`
	Append  bool   `json:"append"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	Driver            string `json:"driver"`           // "playwright", "chromedp" or "static"
	Engine            string `json:"engine,omitempty"` // playwright only: chromium, firefox, webkit
	Headless          bool   `json:"headless"`
	UserAgent         string `json:"user_agent,omitempty"`
	ViewportWidth     int    `json:"viewport_width,omitempty"`
	ViewportHeight    int    `json:"viewport_height,omitempty"`
	SlowMo            int    `json:"slow_mo,omitempty"` // ms, playwright only
	ExecutablePath    string `json:"executable_path,omitempty"`
	IgnoreHTTPSErrors bool   `json:"ignore_https_errors,omitempty"`
}

// TimeoutConfig holds per-operation timeouts in milliseconds. Zero values
// fall back to the defaults returned by the Get* accessors.
type TimeoutConfig struct {
	NavigationMs int `json:"navigation_ms"`
	URLMatchMs   int `json:"url_match_ms"`
	ScrollMs     int `json:"scroll_ms"`
	VisibleMs    int `json:"visible_ms"`
	LivenessMs   int `json:"liveness_ms"`
}

// RetryConfig bounds browser launch retries. Verification is never retried.
type RetryConfig struct {
	MaxRetries     int `json:"max_retries"`
	InitialDelayMs int `json:"initial_delay_ms"`
	MaxDelayMs     int `json:"max_delay_ms"`
}

// SentinelConfig maps an expected link text to an alternate, lenient check.
type SentinelConfig struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
	Selector string `json:"selector,omitempty"` // child element holding the attribute (default "img")
	Contains string `json:"contains"`
}

// SuiteConfig names one page and the CSV describing its elements.
type SuiteConfig struct {
	Name    string `json:"name"`
	Data    string `json:"data"`
	PageURL string `json:"page_url,omitempty"` // overrides the page_url column
}

// ReportConfig controls run output.
type ReportConfig struct {
	JSONPath       string `json:"json_path,omitempty"`
	MaxReasonWidth int    `json:"max_reason_width,omitempty"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled       bool   `json:"enabled"`
	BotToken      string `json:"bot_token"`
	ChatID        int64  `json:"chat_id"`
	OnlyOnFailure bool   `json:"only_on_failure"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Dir:   "logs",
			File:  "automation.log",
			Level: "INFO",
		},
		Browser: BrowserConfig{
			Driver:         DriverPlaywright,
			Engine:         "chromium",
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
		Timeouts: TimeoutConfig{
			NavigationMs: 30000,
			URLMatchMs:   15000,
			ScrollMs:     5000,
			VisibleMs:    10000,
			LivenessMs:   20000,
		},
		LaunchRetry: RetryConfig{
			MaxRetries:     2,
			InitialDelayMs: 1000,
			MaxDelayMs:     5000,
		},
		Sentinels: []SentinelConfig{
			{Text: "plato logo", Strategy: StrategyImageAlt, Selector: "img", Contains: "plato"},
		},
		Report: ReportConfig{
			JSONPath:       "logs/report.json",
			MaxReasonWidth: 80,
		},
		baseDir: ".",
	}
}

// GetConfigPaths returns a prioritized list of configuration file paths
func GetConfigPaths(cliPath string) []string {
	var paths []string

	// 1. CLI Override
	if cliPath != "" {
		paths = append(paths, cliPath)
		return paths // If explicit, only use that
	}

	// 2. Project local paths
	paths = append(paths, "siteprobe.json")
	paths = append(paths, ".siteprobe/config.json")
	paths = append(paths, "configs/siteprobe.json")

	// 3. User global path
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".siteprobe", "config.json"))
	}

	return paths
}

// Load loads configuration from the first available path in the prioritized
// list. An explicit cliPath that cannot be read is an error; otherwise a
// missing file falls back to the defaults and an empty returned path.
func Load(cliPath string) (*Config, string, error) {
	loadDotEnv()

	for _, path := range GetConfigPaths(cliPath) {
		data, err := os.ReadFile(path)
		if err != nil {
			if cliPath != "" {
				return nil, path, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}

		cfg := DefaultConfig()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, path, fmt.Errorf("invalid JSON in config file %s: %w", path, err)
		}
		cfg.baseDir = filepath.Dir(path)
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, path, fmt.Errorf("configuration validation failed in %s: %w", path, err)
		}
		return cfg, path, nil
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("default configuration validation failed: %w", err)
	}
	return cfg, "", nil
}

// allowedEnvVars is a whitelist of environment variable names that may be set from .env
var allowedEnvVars = map[string]bool{
	"SITEPROBE_DRIVER":    true,
	"SITEPROBE_HEADLESS":  true,
	"SITEPROBE_BASE_URL":  true,
	"SITEPROBE_LOG_LEVEL": true,
	"TELEGRAM_BOT_TOKEN":  true,
	"TELEGRAM_CHAT_ID":    true,
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return // .env doesn't exist, that's ok
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Only allow whitelisted keys to prevent env injection
		if !allowedEnvVars[key] {
			continue
		}
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				fmt.Printf("Warning: failed to set environment variable %s: %v\n", key, err)
			}
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if driver := os.Getenv("SITEPROBE_DRIVER"); driver != "" {
		cfg.Browser.Driver = strings.ToLower(driver)
	}
	if headless := os.Getenv("SITEPROBE_HEADLESS"); headless != "" {
		if v, err := strconv.ParseBool(headless); err == nil {
			cfg.Browser.Headless = v
		}
	}
	if baseURL := os.Getenv("SITEPROBE_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if level := os.Getenv("SITEPROBE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		cfg.Telegram.BotToken = botToken
	}
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.Telegram.ChatID = chatID
		}
	}
}

func msOr(ms, def int) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Duration(def) * time.Millisecond
}

// GetNavigation returns the page navigation timeout, defaulting to 30s.
func (t TimeoutConfig) GetNavigation() time.Duration { return msOr(t.NavigationMs, 30000) }

// GetURLMatch returns the post-navigation URL check timeout, defaulting to 15s.
func (t TimeoutConfig) GetURLMatch() time.Duration { return msOr(t.URLMatchMs, 15000) }

// GetScroll returns the scroll-into-view timeout, defaulting to 5s.
func (t TimeoutConfig) GetScroll() time.Duration { return msOr(t.ScrollMs, 5000) }

// GetVisible returns the visibility wait timeout, defaulting to 10s.
func (t TimeoutConfig) GetVisible() time.Duration { return msOr(t.VisibleMs, 10000) }

// GetLiveness returns the link liveness navigation timeout, defaulting to 20s.
func (t TimeoutConfig) GetLiveness() time.Duration { return msOr(t.LivenessMs, 20000) }

// GetViewport returns the browser viewport, defaulting to 1920x1080.
func (b BrowserConfig) GetViewport() (int, int) {
	w, h := b.ViewportWidth, b.ViewportHeight
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

// FindSuite returns the suite with the given name, or nil.
func (c *Config) FindSuite(name string) *SuiteConfig {
	for i := range c.Suites {
		if c.Suites[i].Name == name {
			return &c.Suites[i]
		}
	}
	return nil
}

// DataPath resolves a suite data path relative to the loaded config file.
func (c *Config) DataPath(s SuiteConfig) string {
	if filepath.IsAbs(s.Data) || c.baseDir == "" {
		return s.Data
	}
	return filepath.Join(c.baseDir, s.Data)
}

// RebaseURL swaps scheme and host of pageURL for those of BaseURL. pageURL
// is returned unchanged when BaseURL is empty or either URL does not parse.
func (c *Config) RebaseURL(pageURL string) string {
	if c.BaseURL == "" || pageURL == "" {
		return pageURL
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Host == "" {
		return pageURL
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Scheme = base.Scheme
	u.Host = base.Host
	u.User = base.User
	return u.String()
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // may hold a bot token
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp, DriverStatic:
	default:
		return fmt.Errorf("browser.driver must be one of %q, %q, %q, got %q",
			DriverPlaywright, DriverChromedp, DriverStatic, c.Browser.Driver)
	}
	switch c.Browser.Engine {
	case "", "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("browser.engine must be chromium, firefox or webkit, got %q", c.Browser.Engine)
	}

	if c.BaseURL != "" {
		if err := validateURL(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}

	t := c.Timeouts
	for name, v := range map[string]int{
		"navigation_ms": t.NavigationMs,
		"url_match_ms":  t.URLMatchMs,
		"scroll_ms":     t.ScrollMs,
		"visible_ms":    t.VisibleMs,
		"liveness_ms":   t.LivenessMs,
	} {
		if v < 0 {
			return fmt.Errorf("timeouts.%s must not be negative", name)
		}
	}
	if c.LaunchRetry.MaxRetries < 0 {
		return fmt.Errorf("launch_retry.max_retries must not be negative")
	}

	seenSentinel := make(map[string]bool)
	for i, s := range c.Sentinels {
		key := SentinelKey(s.Text)
		if key == "" {
			return fmt.Errorf("sentinels[%d]: text is required", i)
		}
		if seenSentinel[key] {
			return fmt.Errorf("sentinels[%d]: duplicate text %q", i, s.Text)
		}
		seenSentinel[key] = true
		if s.Strategy != StrategyImageAlt {
			return fmt.Errorf("sentinels[%d]: unknown strategy %q", i, s.Strategy)
		}
		if strings.TrimSpace(s.Contains) == "" {
			return fmt.Errorf("sentinels[%d]: contains is required", i)
		}
	}

	seenSuite := make(map[string]bool)
	for i, s := range c.Suites {
		if s.Name == "" {
			return fmt.Errorf("suites[%d]: name is required", i)
		}
		if seenSuite[s.Name] {
			return fmt.Errorf("suites[%d]: duplicate name %q", i, s.Name)
		}
		seenSuite[s.Name] = true
		if s.Data == "" {
			return fmt.Errorf("suite %q: data is required", s.Name)
		}
		if s.PageURL != "" {
			if err := validateURL(s.PageURL); err != nil {
				return fmt.Errorf("suite %q: invalid page_url: %w", s.Name, err)
			}
		}
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram is enabled but bot_token or chat_id is missing")
	}

	return nil
}

// SentinelKey is the lookup key of a sentinel text: whitespace runs
// collapsed, trimmed and lower-cased.
func SentinelKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// validateURL validates that a URL is absolute http(s)
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL is required")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}
	return nil
}
