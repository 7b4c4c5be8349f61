// Package config provides configuration management for the relay application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultListenAddr   = ":8080"
	DefaultWebhookPath  = "/webhook"
	DefaultDeployRefs   = "refs/heads/develop"
	DefaultBuildTimeout = 30 * time.Minute
	DefaultInstallCmd   = "npm install"
	DefaultTestCmd      = "npm test"
)

// Config holds the application configuration.
type Config struct {
	// GitHubToken authenticates status posts against the commit status API.
	GitHubToken string
	// WebhookSecret is the shared secret used to verify webhook signatures.
	WebhookSecret string
	// ListenAddr is the address the webhook listener binds to.
	ListenAddr string
	// WebhookPath is the path segment the webhook is served on.
	WebhookPath string
	// DeployRefs lists the refs for which a successful push build deploys.
	DeployRefs []string
	// WorkRoot is the directory holding per-commit checkouts.
	WorkRoot string
	// LogDir is the directory holding per-build output logs.
	LogDir string
	// BuildTimeout bounds a single build execution. A build exceeding it
	// is reported as a failure.
	BuildTimeout time.Duration
	// InstallCommand installs declared dependencies inside the checkout.
	InstallCommand string
	// TestCommand runs the test suite inside the checkout.
	TestCommand string
	// PostgresDSN enables the Postgres build-history store when set.
	PostgresDSN string
	// RedpandaBrokers enables distributed mode when non-empty: the
	// listener publishes build requests instead of building inline.
	RedpandaBrokers []string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	token := os.Getenv("RELAY_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("RELAY_GITHUB_TOKEN environment variable is required")
	}

	secret := os.Getenv("RELAY_WEBHOOK_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("RELAY_WEBHOOK_SECRET environment variable is required")
	}

	cfg := &Config{
		GitHubToken:    token,
		WebhookSecret:  secret,
		ListenAddr:     envOr("RELAY_LISTEN_ADDR", DefaultListenAddr),
		WebhookPath:    envOr("RELAY_WEBHOOK_PATH", DefaultWebhookPath),
		DeployRefs:     splitList(envOr("RELAY_DEPLOY_REFS", DefaultDeployRefs)),
		WorkRoot:       envOr("RELAY_WORK_ROOT", filepath.Join(homeDir(), ".relay", "PRS")),
		LogDir:         envOr("RELAY_LOG_DIR", filepath.Join(homeDir(), ".relay", "logs")),
		BuildTimeout:   DefaultBuildTimeout,
		InstallCommand: envOr("RELAY_INSTALL_CMD", DefaultInstallCmd),
		TestCommand:    envOr("RELAY_TEST_CMD", DefaultTestCmd),
		PostgresDSN:    os.Getenv("RELAY_POSTGRES_DSN"),
	}

	if v := os.Getenv("RELAY_BUILD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RELAY_BUILD_TIMEOUT %q: %w", v, err)
		}
		cfg.BuildTimeout = d
	}

	if v := os.Getenv("RELAY_REDPANDA_BROKERS"); v != "" {
		cfg.RedpandaBrokers = splitList(v)
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Distributed reports whether builds are dispatched over the broker rather
// than executed inline by the listener.
func (c *Config) Distributed() bool {
	return len(c.RedpandaBrokers) > 0
}

// DeployRefSet returns the deploy refs as a set for membership tests.
func (c *Config) DeployRefSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.DeployRefs))
	for _, ref := range c.DeployRefs {
		set[ref] = struct{}{}
	}
	return set
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
