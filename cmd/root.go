// Package cmd provides the CLI commands for release-phase.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration. path is the --config
	// value and may be empty.
	ConfigLoader func(path string) (*AppConfig, error)

	// EventSourceFactory creates the source of the CI event context.
	EventSourceFactory func(log Logger) domain.EventSource

	// GitRepoFactory creates a LocalGitRepository for the given path.
	GitRepoFactory func(path string, log Logger) (domain.LocalGitRepository, error)

	// LookupFactory creates the pull request lookup used in API mode.
	LookupFactory func(cfg *AppConfig, log Logger) (domain.PullRequestLookup, error)

	// DetectorFactory creates a Detector. lookup is nil in heuristic mode.
	DetectorFactory func(
		cfg domain.DetectionConfig,
		lookup domain.PullRequestLookup,
		log Logger,
	) domain.Detector

	// OutputWriterFactory creates an OutputWriter for the named format
	// writing to out.
	OutputWriterFactory func(out io.Writer, format string) (domain.OutputWriter, error)

	// Stdout is the writer for standard output (for the detection result).
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// Detection holds the release and target branch names.
	Detection domain.DetectionConfig

	// GitHubToken authenticates the pull request lookup.
	GitHubToken string

	// TokenSource records where the token came from, for logging.
	TokenSource string

	// APIURL overrides the GitHub REST endpoint.
	APIURL string

	// APITimeout bounds the pull request lookup.
	APITimeout time.Duration

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// Command-line flags.
var (
	releaseBranch string
	targetBranch  string
	mode          string
	format        string
	configPath    string
	verbose       bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for release-phase.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "release-phase [path]",
		Short: "Detect which release workflow phase a CI event should run",
		Long: `release-phase inspects the current GitHub Actions event and decides which
release workflow phase should run next: branch-management, validation,
publishing, close-issues, or none.

The event is read from GITHUB_EVENT_NAME, GITHUB_REF, GITHUB_SHA,
GITHUB_REPOSITORY and the webhook payload at GITHUB_EVENT_PATH. When the
payload lacks the head commit or repository, they are read from the local
repository at [path] (default ".").

When a GitHub token is available, pushes to the target branch are confirmed
against the pull requests associated with the commit. Otherwise, or when the
API call fails, the commit message is matched against release patterns.

The result is written to stdout. Every detection outcome, including "none",
exits 0.

Examples:
  # Detect using the environment of the current job
  release-phase

  # Append the result to the step outputs
  release-phase --format env >> "$GITHUB_OUTPUT"

  # Use custom branch names and never call the API
  release-phase --release-branch changeset-release/develop --target-branch develop --mode heuristic

  # Enable verbose logging
  release-phase -v`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, deps)
		},
	}

	// Define flags
	rootCmd.Flags().StringVar(&releaseBranch, "release-branch", "",
		"Release branch name (default from config, then "+domain.DefaultReleaseBranch+")")
	rootCmd.Flags().StringVar(&targetBranch, "target-branch", "",
		"Target branch name (default from config, then "+domain.DefaultTargetBranch+")")
	rootCmd.Flags().StringVar(&mode, "mode", string(domain.ModeAuto),
		"Detection mode: auto, api or heuristic")
	rootCmd.Flags().StringVarP(&format, "format", "f", "json",
		"Output format: json or env")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runDetect executes phase detection with injected dependencies.
func runDetect(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Determine repository path
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	// Get stdout for the result and stderr for warnings
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			// Best-effort warning: ignore fprintf error as this is non-critical
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	detectMode, ok := domain.ParseMode(mode)
	if !ok {
		return fmt.Errorf("invalid --mode %q (want auto, api or heuristic)", mode)
	}

	writer, err := deps.OutputWriterFactory(stdout, format)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	// Initialize logger
	log := deps.LoggerFactory()

	log.Info(ctx, "starting release-phase", map[string]interface{}{
		"path":    repoPath,
		"mode":    string(detectMode),
		"format":  format,
		"verbose": verbose,
	})

	// Load configuration
	cfg, err := deps.ConfigLoader(configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	applyFlagOverrides(cfg)

	event, err := deps.EventSourceFactory(log).Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load event context", err, nil)
		if errors.Is(err, domain.ErrEventNameRequired) {
			return fmt.Errorf("no CI event found: %w", err)
		}
		return err
	}

	if needsLocalGit(event) {
		fillFromLocalGit(ctx, deps, repoPath, &event, log)
	}

	lookup, err := buildLookup(ctx, deps, cfg, detectMode, log)
	if err != nil {
		return err
	}

	detector := deps.DetectorFactory(cfg.Detection, lookup, log)
	result := detector.Detect(ctx, event)

	if err := writer.WriteResult(result); err != nil {
		log.Error(ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	log.Info(ctx, "phase detection complete", map[string]interface{}{
		"phase":      result.Phase.String(),
		"reason":     result.Reason,
		"event_name": event.EventName,
		"ref":        event.Ref,
	})

	return nil
}

// applyFlagOverrides gives non-empty branch flags precedence over configuration.
func applyFlagOverrides(cfg *AppConfig) {
	if releaseBranch != "" {
		cfg.Detection.ReleaseBranch = releaseBranch
	}
	if targetBranch != "" {
		cfg.Detection.TargetBranch = targetBranch
	}
	cfg.Detection = cfg.Detection.WithDefaults()
}

// needsLocalGit reports whether the event lacks information HEAD can supply.
// Pull request events never carry a head commit message, so only the
// repository is filled for them.
func needsLocalGit(event domain.EventContext) bool {
	if event.RepoOwner == "" || event.RepoName == "" {
		return true
	}
	if domain.IsPullRequestEvent(event.EventName) {
		return false
	}
	return event.CommitSHA == "" || event.CommitMessage == nil
}

// fillFromLocalGit copies missing event fields from the local repository.
// Any failure is a warning; detection continues with what is known.
func fillFromLocalGit(
	ctx context.Context,
	deps *Dependencies,
	repoPath string,
	event *domain.EventContext,
	log Logger,
) {
	gitRepo, err := deps.GitRepoFactory(repoPath, log)
	if err != nil {
		log.Warn(ctx, "local repository unavailable; continuing without it", map[string]interface{}{
			"path":  repoPath,
			"error": err.Error(),
		})
		return
	}
	defer func() {
		if closeErr := gitRepo.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	head, err := gitRepo.HeadCommit(ctx)
	if err != nil {
		log.Warn(ctx, "could not read HEAD; continuing without it", map[string]interface{}{
			"path":  repoPath,
			"error": err.Error(),
		})
		return
	}

	if event.RepoOwner == "" || event.RepoName == "" {
		if owner, name, ok := splitOwnerRepo(head.Repository); ok {
			event.RepoOwner, event.RepoName = owner, name
		}
	}

	if domain.IsPullRequestEvent(event.EventName) {
		return
	}

	if event.CommitSHA == "" {
		event.CommitSHA = head.HeadSHA
	}

	// The HEAD message only describes the event when HEAD is the event commit.
	if event.CommitMessage == nil {
		if head.HeadSHA == event.CommitSHA {
			message := head.Message
			event.CommitMessage = &message
		} else {
			log.Warn(ctx, "local HEAD differs from event commit; commit message unavailable", map[string]interface{}{
				"head_sha":  head.HeadSHA,
				"event_sha": event.CommitSHA,
			})
		}
	}

	log.Debug(ctx, "filled event context from local repository", map[string]interface{}{
		"commit_sha": event.CommitSHA,
		"owner":      event.RepoOwner,
		"repo":       event.RepoName,
	})
}

// buildLookup returns the pull request lookup for the mode, or nil when
// detection should use commit message heuristics only.
func buildLookup(
	ctx context.Context,
	deps *Dependencies,
	cfg *AppConfig,
	detectMode domain.Mode,
	log Logger,
) (domain.PullRequestLookup, error) {
	switch detectMode {
	case domain.ModeHeuristic:
		return nil, nil
	case domain.ModeAPI:
		if cfg.GitHubToken == "" {
			return nil, fmt.Errorf("--mode api: %w", domain.ErrTokenRequired)
		}
	default:
		if cfg.GitHubToken == "" {
			log.Debug(ctx, "no GitHub token configured; using commit message heuristics", nil)
			return nil, nil
		}
	}

	lookup, err := deps.LookupFactory(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize pull request lookup", err, nil)
		return nil, fmt.Errorf("github client error: %w", err)
	}

	log.Debug(ctx, "using GitHub API for release commit detection", map[string]interface{}{
		"token_source": cfg.TokenSource,
		"api_url":      cfg.APIURL,
	})
	return lookup, nil
}

// splitOwnerRepo splits "owner/name".
func splitOwnerRepo(full string) (string, string, bool) {
	owner, name, ok := strings.Cut(full, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		// Intentionally ignored: no recovery action for failed stderr writes
		return
	}
}
