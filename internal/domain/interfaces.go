// Package domain defines the core business entities and interfaces for release-phase.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors.
var (
	// ErrLookupFailed indicates the pull request association lookup failed.
	ErrLookupFailed = errors.New("pull request lookup failed")

	// ErrMissingCommitSHA indicates a lookup was attempted without a commit SHA.
	ErrMissingCommitSHA = errors.New("commit SHA is required for pull request lookup")

	// ErrMissingRepository indicates a lookup was attempted without owner/repo.
	ErrMissingRepository = errors.New("repository owner and name are required for pull request lookup")

	// ErrTokenRequired indicates API mode was requested without a GitHub token.
	ErrTokenRequired = errors.New("a GitHub token is required for API mode")

	// ErrEventNameRequired indicates the CI event name is not available.
	ErrEventNameRequired = errors.New("event name is required")

	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoRemoteOrigin indicates no 'origin' remote is configured in the repository.
	ErrNoRemoteOrigin = errors.New("no 'origin' remote configured; cannot determine repository name")

	// ErrInvalidRemoteURL indicates the remote URL could not be parsed to extract owner/repo.
	ErrInvalidRemoteURL = errors.New("could not parse repository name from remote URL")
)

// PullRequestLookup lists pull requests associated with a commit.
type PullRequestLookup interface {
	// LookupPRsForCommit returns the pull requests associated with sha, in the
	// order the remote returned them. Failures wrap ErrLookupFailed.
	LookupPRsForCommit(ctx context.Context, owner, repo, sha string) ([]AssociatedPullRequest, error)
}

// EventSource builds the event context of the current CI run.
type EventSource interface {
	Load(ctx context.Context) (EventContext, error)
}

// LocalGitRepository reads HEAD information from a local repository.
type LocalGitRepository interface {
	// HeadCommit returns the SHA and message of HEAD and the origin repository.
	// A missing origin is not an error; Repository is left empty.
	HeadCommit(ctx context.Context) (*LocalCommit, error)

	// Close releases any resources held by the repository.
	Close() error
}

// Detector decides the release workflow phase for an event.
type Detector interface {
	// Detect picks the API-assisted path when a lookup is available and the
	// heuristic path otherwise.
	Detect(ctx context.Context, event EventContext) PhaseDetectionResult
}

// OutputWriter writes a detection result to an output destination.
type OutputWriter interface {
	WriteResult(result PhaseDetectionResult) error
}
