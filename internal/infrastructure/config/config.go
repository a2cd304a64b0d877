// Package config provides configuration loading for the release-phase application.
// It resolves branch names, GitHub API settings, and logging settings from an
// optional YAML file and environment variables, and reads the GitHub token from
// the environment or HashiCorp Vault.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"gopkg.in/yaml.v3"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// Environment variable names.
const (
	// EnvConfigFile is the path to an optional YAML configuration file.
	EnvConfigFile = "RELEASE_PHASE_CONFIG"

	// EnvReleaseBranch and EnvInputReleaseBranch name the release branch.
	// The INPUT_ form is what GitHub Actions sets for action inputs.
	EnvReleaseBranch      = "RELEASE_BRANCH"
	EnvInputReleaseBranch = "INPUT_RELEASE_BRANCH"

	// EnvTargetBranch and EnvInputTargetBranch name the target branch.
	EnvTargetBranch      = "TARGET_BRANCH"
	EnvInputTargetBranch = "INPUT_TARGET_BRANCH"

	// EnvGitHubToken and EnvInputGitHubToken carry the API token.
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvInputGitHubToken = "INPUT_GITHUB_TOKEN"

	// EnvGitHubAPIURL is the REST API endpoint (set by the Actions runner).
	EnvGitHubAPIURL = "GITHUB_API_URL"

	// EnvAPITimeout bounds the pull request lookup, e.g. "5s".
	EnvAPITimeout = "RELEASE_PHASE_API_TIMEOUT"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvVaultTokenPath is the path in Vault KV where the GitHub token is stored.
	EnvVaultTokenPath = "VAULT_GITHUB_TOKEN_PATH"

	// EnvVaultTokenMount is the Vault KV mount point (defaults to "secret").
	EnvVaultTokenMount = "VAULT_GITHUB_TOKEN_MOUNT"
)

// Default values.
const (
	DefaultLogLevel        = "info"
	DefaultLogAppName      = "release-phase"
	DefaultAPITimeout      = 10 * time.Second
	DefaultVaultTokenMount = "secret"

	// vaultTokenKey is the key holding the token inside the Vault secret.
	vaultTokenKey = "token"
)

// Configuration errors.
var (
	// ErrConfigFileNotFound indicates the configuration file does not exist.
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrConfigFileInvalid indicates the configuration file is not valid YAML.
	ErrConfigFileInvalid = errors.New("configuration file is not valid YAML")

	// ErrInvalidTimeout indicates the API timeout could not be parsed.
	ErrInvalidTimeout = errors.New("invalid API timeout")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the token secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("GitHub token not found in Vault")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// Detection holds the release and target branch names.
	Detection domain.DetectionConfig

	// GitHubToken authenticates the pull request lookup. Empty disables it.
	GitHubToken string

	// TokenSource records where the token came from ("env", "vault" or "").
	TokenSource string

	// APIURL overrides the GitHub REST endpoint. Empty means api.github.com.
	APIURL string

	// APITimeout bounds the pull request lookup.
	APITimeout time.Duration

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// fileConfig is the YAML file layout.
type fileConfig struct {
	ReleaseBranch string `yaml:"release_branch"`
	TargetBranch  string `yaml:"target_branch"`
	APIURL        string `yaml:"api_url"`
	APITimeout    string `yaml:"api_timeout"`
}

// Options tunes Load. The zero value reads only the environment.
type Options struct {
	// ConfigPath is a YAML file to read. Overrides RELEASE_PHASE_CONFIG.
	ConfigPath string

	// VaultClientFactory replaces DefaultVaultClientFactory.
	VaultClientFactory VaultClientFactory
}

// Load loads the application configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// RELEASE_PHASE_CONFIG, environment variables. The GitHub token is read from
// GITHUB_TOKEN or INPUT_GITHUB_TOKEN; when neither is set and
// VAULT_GITHUB_TOKEN_PATH is, it is read from Vault KV v2, which requires:
//   - VAULT_ADDRESS: Vault server address
//   - VAULT_ROLE_ID: AppRole role ID
//   - VAULT_SECRET_ID: AppRole secret ID
//   - VAULT_GITHUB_TOKEN_MOUNT: KV mount point (optional, defaults to "secret")
//
// A missing token is not an error; detection then runs on heuristics only.
func Load() (*Config, error) {
	return LoadWithOptions(context.Background(), Options{})
}

// LoadWithOptions loads configuration with an explicit file path and Vault
// client factory. This function enables dependency injection for testing.
func LoadWithOptions(ctx context.Context, opts Options) (*Config, error) {
	cfg := &Config{
		Detection:  domain.DefaultDetectionConfig(),
		APITimeout: DefaultAPITimeout,
		LogLevel:   DefaultLogLevel,
		LogAppName: DefaultLogAppName,
	}

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := resolveToken(ctx, cfg, opts.VaultClientFactory); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile merges non-empty values from the YAML file at path.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigFileInvalid, err)
	}

	setIfNotEmpty(&cfg.Detection.ReleaseBranch, fc.ReleaseBranch)
	setIfNotEmpty(&cfg.Detection.TargetBranch, fc.TargetBranch)
	setIfNotEmpty(&cfg.APIURL, fc.APIURL)
	if fc.APITimeout != "" {
		timeout, err := parseTimeout(fc.APITimeout)
		if err != nil {
			return err
		}
		cfg.APITimeout = timeout
	}
	return nil
}

// applyEnv merges non-empty environment variables.
func applyEnv(cfg *Config) error {
	setIfNotEmpty(&cfg.Detection.ReleaseBranch, firstEnv(EnvInputReleaseBranch, EnvReleaseBranch))
	setIfNotEmpty(&cfg.Detection.TargetBranch, firstEnv(EnvInputTargetBranch, EnvTargetBranch))
	setIfNotEmpty(&cfg.APIURL, firstEnv(EnvGitHubAPIURL))
	setIfNotEmpty(&cfg.LogLevel, firstEnv(EnvLogLevel))
	setIfNotEmpty(&cfg.LogAppName, firstEnv(EnvLogAppName))

	if raw := firstEnv(EnvAPITimeout); raw != "" {
		timeout, err := parseTimeout(raw)
		if err != nil {
			return err
		}
		cfg.APITimeout = timeout
	}
	return nil
}

// resolveToken reads the GitHub token from the environment, then Vault.
func resolveToken(ctx context.Context, cfg *Config, factory VaultClientFactory) error {
	if token := firstEnv(EnvInputGitHubToken, EnvGitHubToken); token != "" {
		cfg.GitHubToken = token
		cfg.TokenSource = "env"
		return nil
	}

	path := os.Getenv(EnvVaultTokenPath)
	if path == "" {
		return nil
	}

	token, err := loadTokenFromVault(ctx, factory, path)
	if err != nil {
		return err
	}
	cfg.GitHubToken = token
	cfg.TokenSource = "vault"
	return nil
}

// loadTokenFromVault reads the "token" key of the KV v2 secret at path.
func loadTokenFromVault(ctx context.Context, factory VaultClientFactory, path string) (string, error) {
	if factory == nil {
		factory = DefaultVaultClientFactory
	}

	client, err := factory(ctx)
	if err != nil {
		return "", err
	}

	mount := os.Getenv(EnvVaultTokenMount)
	if mount == "" {
		mount = DefaultVaultTokenMount
	}

	secret, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	token, ok := secret[vaultTokenKey].(string)
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w at path %s: missing %q key", ErrVaultSecretNotFound, path, vaultTokenKey)
	}
	return strings.TrimSpace(token), nil
}

func parseTimeout(raw string) (time.Duration, error) {
	timeout, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidTimeout, raw, err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidTimeout, raw)
	}
	return timeout, nil
}

// firstEnv returns the first non-empty, trimmed value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
