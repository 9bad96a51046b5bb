// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub GitHubConfig
	Jira   JiraConfig
	Trello TrelloConfig
	Kanban KanbanConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	BaseURL  string
	Username string
	Token    string
}

// TrelloConfig holds Trello specific configuration.
type TrelloConfig struct {
	APIKey string
	Token  string
}

// KanbanConfig controls how issue histories are interpreted and fetched.
type KanbanConfig struct {
	// InProgressStates are the workflow states counted as active work
	InProgressStates []string

	// DoneStates mark an issue as finished on trackers without a resolution field
	DoneStates []string

	// Percentiles are the cut points reported by the metrics commands
	Percentiles []float64

	// CacheDir holds the fetch cache database
	CacheDir string

	// CacheAge is how long fetched issues are reused before refetching
	CacheAge time.Duration

	// Concurrency bounds parallel per-issue history requests
	Concurrency int

	// RequestsPerSecond throttles tracker API calls
	RequestsPerSecond float64
}

// DefaultDoneStates are the states treated as finished when none are configured.
var DefaultDoneStates = []string{"Done", "Complete", "Closed", "Resolved", "Verified", "Obsolete", "Archived"}

// LoadConfig initializes and loads configuration from environment variables
// and, when configFile is not empty, from that file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("kanban.in_progress_states", cycletime.DefaultInProgressStates)
	v.SetDefault("kanban.done_states", DefaultDoneStates)
	v.SetDefault("kanban.percentiles", metrics.DefaultPercentiles)
	v.SetDefault("kanban.cache_dir", defaultCacheDir())
	v.SetDefault("kanban.cache_age_days", 14)
	v.SetDefault("kanban.concurrency", 8)
	v.SetDefault("kanban.requests_per_second", 10.0)

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("trello.api_key", "TRELLO_API_KEY")
	v.BindEnv("trello.token", "TRELLO_TOKEN")
	v.BindEnv("kanban.in_progress_states", "KANBAN_IN_PROGRESS_STATES")
	v.BindEnv("kanban.done_states", "KANBAN_DONE_STATES")
	v.BindEnv("kanban.percentiles", "KANBAN_PERCENTILES")
	v.BindEnv("kanban.cache_dir", "KANBAN_CACHE_DIR")
	v.BindEnv("kanban.cache_age_days", "KANBAN_CACHE_AGE_DAYS")
	v.BindEnv("kanban.concurrency", "KANBAN_CONCURRENCY")
	v.BindEnv("kanban.requests_per_second", "KANBAN_REQUESTS_PER_SECOND")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	percentiles, err := floatList(v, "kanban.percentiles")
	if err != nil {
		return nil, err
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			BaseURL:  v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		Trello: TrelloConfig{
			APIKey: v.GetString("trello.api_key"),
			Token:  v.GetString("trello.token"),
		},
		Kanban: KanbanConfig{
			InProgressStates:  stringList(v, "kanban.in_progress_states"),
			DoneStates:        stringList(v, "kanban.done_states"),
			Percentiles:       percentiles,
			CacheDir:          v.GetString("kanban.cache_dir"),
			CacheAge:          time.Duration(v.GetInt("kanban.cache_age_days")) * 24 * time.Hour,
			Concurrency:       v.GetInt("kanban.concurrency"),
			RequestsPerSecond: v.GetFloat64("kanban.requests_per_second"),
		},
	}
	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures the kanban settings are usable.
func validateConfig(config *Config) error {
	if len(config.Kanban.InProgressStates) == 0 {
		return fmt.Errorf("at least one in-progress state must be configured")
	}
	for _, p := range config.Kanban.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("percentile %v out of range [0, 100]", p)
		}
	}
	if config.Kanban.CacheAge < 0 {
		return fmt.Errorf("cache age must not be negative")
	}
	if config.Kanban.Concurrency <= 0 {
		config.Kanban.Concurrency = 1
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.BaseURL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	return missing(missingVars)
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	if config.GitHub.Token == "" {
		return missing([]string{"GITHUB_TOKEN"})
	}
	return nil
}

// ValidateTrelloConfig validates Trello-specific configuration.
func ValidateTrelloConfig(config *Config) error {
	var missingVars []string

	if config.Trello.APIKey == "" {
		missingVars = append(missingVars, "TRELLO_API_KEY")
	}
	if config.Trello.Token == "" {
		missingVars = append(missingVars, "TRELLO_TOKEN")
	}

	return missing(missingVars)
}

func missing(vars []string) error {
	if len(vars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", vars)
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "kanban")
	}
	return filepath.Join(os.TempDir(), "kanban")
}

// stringList reads a list that is either a YAML sequence or a comma separated
// environment value. State names may contain spaces, so whitespace is kept.
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice(key)
}

func floatList(v *viper.Viper, key string) ([]float64, error) {
	if values, ok := v.Get(key).([]float64); ok {
		return values, nil
	}
	var out []float64
	for _, s := range stringList(v, key) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: %w", s, key, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
