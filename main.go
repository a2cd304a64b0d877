// Package main is the entry point for the release-phase CLI application.
// release-phase decides which release workflow phase a GitHub Actions event
// should run and writes the result to stdout.
package main

import (
	"context"
	"io"
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"
	"github.com/joho/godotenv"

	"github.com/MyCarrier-DevOps/release-phase/cmd"
	"github.com/MyCarrier-DevOps/release-phase/internal/adapters/event"
	"github.com/MyCarrier-DevOps/release-phase/internal/adapters/git"
	"github.com/MyCarrier-DevOps/release-phase/internal/adapters/github"
	logadapter "github.com/MyCarrier-DevOps/release-phase/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/release-phase/internal/adapters/output"
	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
	"github.com/MyCarrier-DevOps/release-phase/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/release-phase/internal/usecases"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Wire up production dependencies
	deps := &cmd.Dependencies{
		// The logger is built on first use so that -v can set LOG_LEVEL first.
		LoggerFactory: func() cmd.Logger {
			zapLog := logger.NewZapLoggerFromConfig()
			return logadapter.NewZapAdapter(zapLog).WithRunFields(runFields(os.Getenv))
		},

		ConfigLoader: func(path string) (*cmd.AppConfig, error) {
			cfg, err := config.LoadWithOptions(context.Background(), config.Options{ConfigPath: path})
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		EventSourceFactory: func(log cmd.Logger) domain.EventSource {
			return event.NewActionsLoader(log)
		},

		GitRepoFactory: func(path string, log cmd.Logger) (domain.LocalGitRepository, error) {
			repo, err := git.NewGoGitRepository(path, log)
			if err != nil {
				return nil, err
			}
			return repo, nil
		},

		LookupFactory: func(cfg *cmd.AppConfig, log cmd.Logger) (domain.PullRequestLookup, error) {
			lookup, err := github.NewPullRequestLookup(github.Options{
				Token:   cfg.GitHubToken,
				BaseURL: cfg.APIURL,
				Timeout: cfg.APITimeout,
			}, log)
			if err != nil {
				return nil, err
			}
			return lookup, nil
		},

		DetectorFactory: func(
			cfg domain.DetectionConfig,
			lookup domain.PullRequestLookup,
			log cmd.Logger,
		) domain.Detector {
			return usecases.NewPhaseDetector(cfg, lookup, log)
		},

		OutputWriterFactory: newOutputWriter,

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// toAppConfig copies the loaded configuration into the command's view of it.
func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		Detection:   cfg.Detection,
		GitHubToken: cfg.GitHubToken,
		TokenSource: cfg.TokenSource,
		APIURL:      cfg.APIURL,
		APITimeout:  cfg.APITimeout,
		LogLevel:    cfg.LogLevel,
		LogAppName:  cfg.LogAppName,
	}
}

// runFields returns the Actions run identifiers attached to every log entry.
func runFields(getenv func(string) string) map[string]string {
	return map[string]string{
		"repository": getenv("GITHUB_REPOSITORY"),
		"run_id":     getenv("GITHUB_RUN_ID"),
		"workflow":   getenv("GITHUB_WORKFLOW"),
		"event_name": getenv("GITHUB_EVENT_NAME"),
	}
}

func newOutputWriter(out io.Writer, format string) (domain.OutputWriter, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewWriterWithOutput(out, f), nil
}
