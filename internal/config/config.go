// Package config handles configuration loading and management for Taskforge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Taskforge.
type Config struct {
	Execution ExecutionConfig `mapstructure:"execution"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Goal      GoalConfig      `mapstructure:"goal"`
	Policies  PolicyConfig    `mapstructure:"policies"`
}

// ExecutionConfig holds execution-core settings.
type ExecutionConfig struct {
	// DefaultTimeout bounds a single task execution when the task carries none.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// MaxRetries is the number of re-attempts for retryable failures.
	// Zero disables retries.
	MaxRetries int `mapstructure:"max_retries"`
	// InitialDelay is the backoff delay before the first retry.
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64 `mapstructure:"backoff_factor"`
}

// RegistryConfig holds agent registry settings.
type RegistryConfig struct {
	// MaxInstancesPerType caps live instances of each agent type.
	MaxInstancesPerType int `mapstructure:"max_instances_per_type"`
	// HealthInterval is how often the health monitor runs.
	HealthInterval time.Duration `mapstructure:"health_interval"`
	// ErrorThreshold marks an instance unhealthy when its error count exceeds it.
	ErrorThreshold int `mapstructure:"error_threshold"`
}

// PlannerConfig holds task planner settings.
type PlannerConfig struct {
	// Strategy selects the estimation bias: optimistic, realistic, pessimistic.
	Strategy string `mapstructure:"strategy"`
	// MinMatchThreshold is the minimum capability-match score for assignment.
	MinMatchThreshold float64 `mapstructure:"min_match_threshold"`
}

// GoalConfig holds GOAP search settings.
type GoalConfig struct {
	// MaxIterations bounds the number of A* expansions per plan.
	MaxIterations int `mapstructure:"max_iterations"`
	// SearchTimeout bounds wall-clock time per plan.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// MaxPlanLength prunes search branches longer than this.
	MaxPlanLength int `mapstructure:"max_plan_length"`
}

// PolicyConfig holds the keyword policies used by heuristic classifiers.
// These are policy, not algorithm: deployments tune them per project.
type PolicyConfig struct {
	// RetryablePatterns are substrings that mark an error as transient.
	RetryablePatterns []string `mapstructure:"retryable_patterns"`
	// APIKeywords trigger the API subtask group during decomposition.
	APIKeywords []string `mapstructure:"api_keywords"`
	// AuthKeywords trigger the authentication subtask group.
	AuthKeywords []string `mapstructure:"auth_keywords"`
	// DatabaseKeywords trigger the database subtask group.
	DatabaseKeywords []string `mapstructure:"database_keywords"`
	// UIKeywords trigger the UI subtask group.
	UIKeywords []string `mapstructure:"ui_keywords"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TASKFORGE_*)
// 2. Project config (.taskforge.yaml in current directory or parent)
// 3. User config (~/.config/taskforge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TASKFORGE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("execution.default_timeout", cfg.Execution.DefaultTimeout.String())
	v.Set("execution.max_retries", cfg.Execution.MaxRetries)
	v.Set("execution.initial_delay", cfg.Execution.InitialDelay.String())
	v.Set("execution.backoff_factor", cfg.Execution.BackoffFactor)
	v.Set("registry.max_instances_per_type", cfg.Registry.MaxInstancesPerType)
	v.Set("registry.health_interval", cfg.Registry.HealthInterval.String())
	v.Set("registry.error_threshold", cfg.Registry.ErrorThreshold)
	v.Set("planner.strategy", cfg.Planner.Strategy)
	v.Set("planner.min_match_threshold", cfg.Planner.MinMatchThreshold)
	v.Set("goal.max_iterations", cfg.Goal.MaxIterations)
	v.Set("goal.search_timeout", cfg.Goal.SearchTimeout.String())
	v.Set("goal.max_plan_length", cfg.Goal.MaxPlanLength)
	v.Set("policies.retryable_patterns", cfg.Policies.RetryablePatterns)
	v.Set("policies.api_keywords", cfg.Policies.APIKeywords)
	v.Set("policies.auth_keywords", cfg.Policies.AuthKeywords)
	v.Set("policies.database_keywords", cfg.Policies.DatabaseKeywords)
	v.Set("policies.ui_keywords", cfg.Policies.UIKeywords)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("execution.default_timeout", "30s")
	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.initial_delay", "1s")
	v.SetDefault("execution.backoff_factor", 2.0)

	v.SetDefault("registry.max_instances_per_type", 10)
	v.SetDefault("registry.health_interval", "30s")
	v.SetDefault("registry.error_threshold", 5)

	v.SetDefault("planner.strategy", "realistic")
	v.SetDefault("planner.min_match_threshold", 0.3)

	v.SetDefault("goal.max_iterations", 1000)
	v.SetDefault("goal.search_timeout", "5s")
	v.SetDefault("goal.max_plan_length", 20)

	v.SetDefault("policies.retryable_patterns", defaultRetryablePatterns())
	v.SetDefault("policies.api_keywords", defaultAPIKeywords())
	v.SetDefault("policies.auth_keywords", defaultAuthKeywords())
	v.SetDefault("policies.database_keywords", defaultDatabaseKeywords())
	v.SetDefault("policies.ui_keywords", defaultUIKeywords())
}

// getUserConfigDir returns the XDG config directory for Taskforge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskforge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskforge")
	}
	return filepath.Join(home, ".config", "taskforge")
}

// findProjectConfig searches for .taskforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

func defaultRetryablePatterns() []string {
	return []string{"timeout", "timed out", "network", "connection", "rate limit", "rate-limit", "429", "unavailable"}
}

func defaultAPIKeywords() []string {
	return []string{"api", "rest", "endpoint", "graphql", "grpc"}
}

func defaultAuthKeywords() []string {
	return []string{"auth", "login", "oauth", "jwt", "security", "permission"}
}

func defaultDatabaseKeywords() []string {
	return []string{"database", "db", "sql", "schema", "storage", "persistence"}
}

func defaultUIKeywords() []string {
	return []string{"ui", "frontend", "interface", "dashboard", "page", "form"}
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Execution: ExecutionConfig{
			DefaultTimeout: 30 * time.Second,
			MaxRetries:     3,
			InitialDelay:   time.Second,
			BackoffFactor:  2.0,
		},
		Registry: RegistryConfig{
			MaxInstancesPerType: 10,
			HealthInterval:      30 * time.Second,
			ErrorThreshold:      5,
		},
		Planner: PlannerConfig{
			Strategy:          "realistic",
			MinMatchThreshold: 0.3,
		},
		Goal: GoalConfig{
			MaxIterations: 1000,
			SearchTimeout: 5 * time.Second,
			MaxPlanLength: 20,
		},
		Policies: PolicyConfig{
			RetryablePatterns: defaultRetryablePatterns(),
			APIKeywords:       defaultAPIKeywords(),
			AuthKeywords:      defaultAuthKeywords(),
			DatabaseKeywords:  defaultDatabaseKeywords(),
			UIKeywords:        defaultUIKeywords(),
		},
	}
}
