package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds report configuration.
type Config struct {
	Name             string        `yaml:"name"`
	Year             int           `yaml:"year"`
	Month            int           `yaml:"month"`
	Months           int           `yaml:"months"`
	APIBaseURL       string        `yaml:"api_base_url"`
	SupportBaseURL   string        `yaml:"support_base_url"`
	Parallelism      int           `yaml:"parallelism"`
	Timeout          time.Duration `yaml:"timeout"`
	CacheSize        int           `yaml:"cache_size"`
	BatchSize        int           `yaml:"batch_size"`
	OutputFile       string        `yaml:"output_file"`
	OutputFormat     string        `yaml:"output_format"` // csv, json, or dual
	UserAgent        string        `yaml:"user_agent"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	LogFile          string        `yaml:"log_file"`
	Verbose          bool          `yaml:"verbose"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
}

// DefaultConfig returns defaults for the public vendor endpoints, reporting
// on the current month.
func DefaultConfig() *Config {
	now := time.Now()
	return &Config{
		Name:             "Monthly Security Report",
		Year:             now.Year(),
		Month:            int(now.Month()),
		Months:           1,
		APIBaseURL:       "https://api.msrc.microsoft.com",
		SupportBaseURL:   "https://support.microsoft.com",
		Parallelism:      4,
		Timeout:          30 * time.Second,
		CacheSize:        64,
		BatchSize:        64,
		OutputFile:       "output/kbs.csv",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("report name cannot be empty")
	}
	if c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}
	if c.Year <= 0 {
		return fmt.Errorf("year must be positive")
	}
	if c.Months <= 0 {
		return fmt.Errorf("months must be positive")
	}
	if err := validateBaseURL("api base URL", c.APIBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("support base URL", c.SupportBaseURL); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Hosts returns the hosts the fetcher is allowed to contact.
func (c *Config) Hosts() []string {
	var hosts []string
	seen := make(map[string]struct{})
	for _, raw := range []string{c.APIBaseURL, c.SupportBaseURL} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		if _, ok := seen[parsed.Hostname()]; ok {
			continue
		}
		seen[parsed.Hostname()] = struct{}{}
		hosts = append(hosts, parsed.Hostname())
	}
	return hosts
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer. ok is false when the variable is unset.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
