package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KANBAN_CACHE_DIR", "")
	t.Setenv("GITHUB_DOMAIN", "")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "github.com", config.GitHub.Domain)
	assert.Equal(t, cycletime.DefaultInProgressStates, config.Kanban.InProgressStates)
	assert.Equal(t, DefaultDoneStates, config.Kanban.DoneStates)
	assert.Equal(t, metrics.DefaultPercentiles, config.Kanban.Percentiles)
	assert.Equal(t, 14*24*time.Hour, config.Kanban.CacheAge)
	assert.Equal(t, 8, config.Kanban.Concurrency)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("JIRA_URL", "https://jira.example.com")
	t.Setenv("JIRA_USERNAME", "test-user")
	t.Setenv("JIRA_TOKEN", "test-token")
	t.Setenv("GITHUB_DOMAIN", "github.example.com")
	t.Setenv("KANBAN_IN_PROGRESS_STATES", "In Progress, Code Review ,Testing | Verification")
	t.Setenv("KANBAN_PERCENTILES", "50,85,95")
	t.Setenv("KANBAN_CACHE_AGE_DAYS", "3")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://jira.example.com", config.Jira.BaseURL)
	assert.Equal(t, "github.example.com", config.GitHub.Domain)
	assert.Equal(t, []string{"In Progress", "Code Review", "Testing | Verification"}, config.Kanban.InProgressStates)
	assert.Equal(t, []float64{50, 85, 95}, config.Kanban.Percentiles)
	assert.Equal(t, 3*24*time.Hour, config.Kanban.CacheAge)
	assert.NoError(t, ValidateJiraConfig(config))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.yaml")
	content := `
kanban:
  in_progress_states:
    - Doing
    - Waiting for Review
  percentiles: [50, 90]
trello:
  api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Doing", "Waiting for Review"}, config.Kanban.InProgressStates)
	assert.Equal(t, []float64{50, 90}, config.Kanban.Percentiles)
	assert.Equal(t, "file-key", config.Trello.APIKey)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Unparsable percentile", key: "KANBAN_PERCENTILES", value: "50,high"},
		{name: "Percentile out of range", key: "KANBAN_PERCENTILES", value: "50,101"},
		{name: "Negative cache age", key: "KANBAN_CACHE_AGE_DAYS", value: "-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			config, err := LoadConfig("")
			assert.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateJiraConfig(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		username string
		token    string
		wantErr  bool
	}{
		{name: "All fields present", baseURL: "https://jira.example.com", username: "test-user", token: "test-token"},
		{name: "Missing base URL", username: "test-user", token: "test-token", wantErr: true},
		{name: "Missing username", baseURL: "https://jira.example.com", token: "test-token", wantErr: true},
		{name: "Missing token", baseURL: "https://jira.example.com", username: "test-user", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{
				Jira: JiraConfig{
					BaseURL:  tt.baseURL,
					Username: tt.username,
					Token:    tt.token,
				},
			}

			err := ValidateJiraConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateGitHubAndTrelloConfig(t *testing.T) {
	err := ValidateGitHubConfig(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.NoError(t, ValidateGitHubConfig(&Config{GitHub: GitHubConfig{Token: "t"}}))

	err = ValidateTrelloConfig(&Config{Trello: TrelloConfig{APIKey: "k"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRELLO_TOKEN")
	assert.NotContains(t, err.Error(), "TRELLO_API_KEY")
}
