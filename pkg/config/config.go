package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a harvest run.
// It is built once by Load and must not be mutated afterwards.
type Config struct {
	// Gallery site and listing layout
	Site SiteConfig `yaml:"site" json:"site"`

	// Collection identifiers, processed in order
	Collections []string `yaml:"collections" json:"collections"`

	// Href to filename mapping
	Normalize NormalizeConfig `yaml:"normalize" json:"normalize"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Headless browser launch options
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Integrity thresholds
	Integrity IntegrityConfig `yaml:"integrity" json:"integrity"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SiteConfig describes where listings live and how links are found on them
type SiteConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	// ListingPath is joined to BaseURL. {collection} and {page} are substituted.
	ListingPath      string        `yaml:"listing_path" json:"listing_path"`
	Pages            int           `yaml:"pages" json:"pages"`
	LinkSelector     string        `yaml:"link_selector" json:"link_selector"`
	LinkText         string        `yaml:"link_text" json:"link_text"`
	LoadMoreSelector string        `yaml:"load_more_selector" json:"load_more_selector"`
	MaxExpansions    int           `yaml:"max_expansions" json:"max_expansions"`
	ExpansionWait    time.Duration `yaml:"expansion_wait" json:"expansion_wait"`
}

// NormalizeConfig holds href normalization rules
type NormalizeConfig struct {
	StripPrefixes []string `yaml:"strip_prefixes" json:"strip_prefixes"`
	JoinChar      string   `yaml:"join_char" json:"join_char"`
	Extension     string   `yaml:"extension" json:"extension"`
	AssetPath     string   `yaml:"asset_path" json:"asset_path"`
	Mode          string   `yaml:"mode" json:"mode"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	Merged        bool   `yaml:"merged" json:"merged"`
}

// BrowserConfig holds browser launch options
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ExecutablePath    string        `yaml:"executable_path" json:"executable_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	ProbeSize   bool          `yaml:"probe_size" json:"probe_size"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
}

// IntegrityConfig holds the verifier thresholds
type IntegrityConfig struct {
	MinFileSize   int64 `yaml:"min_file_size" json:"min_file_size"`
	SizeTolerance int64 `yaml:"size_tolerance" json:"size_tolerance"`
	Strict        bool  `yaml:"strict" json:"strict"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Normalization modes
const (
	ModeAuto   = "auto"
	ModeSlug   = "slug"
	ModeDirect = "direct"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:       "https://wallpaperscraft.com",
			ListingPath:   "/catalog/{collection}/ratings/page{page}",
			Pages:         1,
			LinkSelector:  "div.wallpapers > ul > li > a",
			MaxExpansions: 10,
			ExpansionWait: 3 * time.Second,
		},
		Collections: []string{},
		Normalize: NormalizeConfig{
			StripPrefixes: []string{"/download/"},
			JoinChar:      "_",
			Extension:     ".jpg",
			AssetPath:     "/image/",
			Mode:          ModeAuto,
		},
		Output: OutputConfig{
			BaseDirectory: "./wallpapers",
			Merged:        false,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         defaultUserAgent,
			NavigationTimeout: 60 * time.Second,
		},
		Download: DownloadConfig{
			MaxAttempts: 20,
			RetryDelay:  3 * time.Second,
			Timeout:     2 * time.Minute,
			ProbeSize:   true,
			UserAgent:   defaultUserAgent,
		},
		Integrity: IntegrityConfig{
			MinFileSize:   10000,
			SizeTolerance: 1000,
			Strict:        false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if baseURL := os.Getenv("WALLHARVEST_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if pages := os.Getenv("WALLHARVEST_PAGES"); pages != "" {
		val, err := strconv.Atoi(pages)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLHARVEST_PAGES: %w", err))
		} else {
			c.Site.Pages = val
		}
	}
	if collections := os.Getenv("WALLHARVEST_COLLECTIONS"); collections != "" {
		c.Collections = splitList(collections)
	}

	// Output directory
	if outputDir := os.Getenv("WALLHARVEST_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if merged := os.Getenv("WALLHARVEST_MERGED"); merged != "" {
		c.Output.Merged = strings.ToLower(merged) == "true"
	}

	if headless := os.Getenv("WALLHARVEST_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if chrome := os.Getenv("WALLHARVEST_CHROME_PATH"); chrome != "" {
		c.Browser.ExecutablePath = chrome
	}

	if attempts := os.Getenv("WALLHARVEST_MAX_ATTEMPTS"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLHARVEST_MAX_ATTEMPTS: %w", err))
		} else {
			c.Download.MaxAttempts = val
		}
	}
	if delay := os.Getenv("WALLHARVEST_RETRY_DELAY"); delay != "" {
		val, err := time.ParseDuration(delay)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLHARVEST_RETRY_DELAY: %w", err))
		} else {
			c.Download.RetryDelay = val
		}
	}
	if strict := os.Getenv("WALLHARVEST_STRICT"); strict != "" {
		c.Integrity.Strict = strings.ToLower(strict) == "true"
	}

	// Logging level
	if logLevel := os.Getenv("WALLHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("WALLHARVEST_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	if textfile := os.Getenv("WALLHARVEST_METRICS_TEXTFILE"); textfile != "" {
		c.Metrics.Textfile = textfile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".wallharvest.yaml",
		".wallharvest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "wallharvest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "wallharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Site
	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	} else if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("site base URL %q must be absolute", c.Site.BaseURL))
	}
	if c.Site.LinkSelector == "" {
		errs = append(errs, errors.New("link selector is required"))
	}
	if strings.Contains(c.Site.ListingPath, "{page}") && c.Site.Pages <= 0 {
		errs = append(errs, errors.New("pages must be positive for paginated listings"))
	}
	if c.Site.MaxExpansions < 0 {
		errs = append(errs, errors.New("max expansions cannot be negative"))
	}
	if c.Site.ExpansionWait < 0 {
		errs = append(errs, errors.New("expansion wait cannot be negative"))
	}

	if len(c.Collections) == 0 {
		errs = append(errs, errors.New("at least one collection is required"))
	}
	for _, col := range c.Collections {
		trimmed := strings.TrimSpace(col)
		if trimmed == "" {
			errs = append(errs, errors.New("collection identifiers cannot be empty"))
			break
		}
		// Identifiers name a subdirectory of the output root
		if trimmed == "." || trimmed == ".." || strings.ContainsAny(col, `/\`) {
			errs = append(errs, fmt.Errorf("collection %q must not contain path separators or be a relative directory", col))
		}
	}

	// Normalization
	switch c.Normalize.Mode {
	case ModeAuto, ModeSlug, ModeDirect:
	default:
		errs = append(errs, fmt.Errorf("invalid normalize mode %q", c.Normalize.Mode))
	}
	if c.Normalize.JoinChar == "" || strings.ContainsAny(c.Normalize.JoinChar, `/\`) {
		errs = append(errs, errors.New("join character must be set and cannot be a path separator"))
	}

	// Output settings
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	// Download settings
	if c.Download.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	// Integrity
	if c.Integrity.MinFileSize < 0 {
		errs = append(errs, errors.New("minimum file size cannot be negative"))
	}
	if c.Integrity.SizeTolerance < 0 {
		errs = append(errs, errors.New("size tolerance cannot be negative"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ListingURL returns the listing location for a collection page.
// page is ignored when the listing path has no {page} placeholder.
func (c *Config) ListingURL(collection string, page int) string {
	path := strings.ReplaceAll(c.Site.ListingPath, "{collection}", url.PathEscape(collection))
	path = strings.ReplaceAll(path, "{page}", strconv.Itoa(page))
	return strings.TrimRight(c.Site.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// PageCount returns how many listing pages each collection has
func (c *Config) PageCount() int {
	if !strings.Contains(c.Site.ListingPath, "{page}") {
		return 1
	}
	return c.Site.Pages
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if pages, ok := flags["pages"].(int); ok && pages > 0 {
		c.Site.Pages = pages
	}
	if collections, ok := flags["collections"].([]string); ok && len(collections) > 0 {
		c.Collections = collections
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if merged, ok := flags["merged"].(bool); ok && merged {
		c.Output.Merged = true
	}
	if headful, ok := flags["no-headless"].(bool); ok && headful {
		c.Browser.Headless = false
	}
	if chrome, ok := flags["chrome-path"].(string); ok && chrome != "" {
		c.Browser.ExecutablePath = chrome
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Download.MaxAttempts = attempts
	}
	if delay, ok := flags["retry-delay"].(time.Duration); ok && delay >= 0 {
		c.Download.RetryDelay = delay
	}
	if strict, ok := flags["strict"].(bool); ok && strict {
		c.Integrity.Strict = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.Logging.NoColor = true
	}
	if textfile, ok := flags["metrics-textfile"].(string); ok && textfile != "" {
		c.Metrics.Textfile = textfile
	}
}

// Load loads configuration from all sources with proper precedence and validates it.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	config, err := Resolve(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Resolve merges all configuration sources like Load but skips validation
func Resolve(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".wallharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
