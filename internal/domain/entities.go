// Package domain defines the core business entities and interfaces for release-phase.
package domain

import "strings"

// Phase is one of the mutually exclusive release workflow phases.
type Phase string

// Release workflow phases. Exactly one applies per invocation.
const (
	PhaseBranchManagement Phase = "branch-management"
	PhaseValidation       Phase = "validation"
	PhasePublishing       Phase = "publishing"
	PhaseCloseIssues      Phase = "close-issues"
	PhaseNone             Phase = "none"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseBranchManagement, PhaseValidation, PhasePublishing, PhaseCloseIssues, PhaseNone:
		return true
	}
	return false
}

func (p Phase) String() string {
	return string(p)
}

// Event names understood by the detector.
const (
	EventPush              = "push"
	EventPullRequest       = "pull_request"
	EventPullRequestTarget = "pull_request_target"
	EventWorkflowDispatch  = "workflow_dispatch"
)

// IsPullRequestEvent reports whether the event name denotes a pull request event.
func IsPullRequestEvent(eventName string) bool {
	return eventName == EventPullRequest || eventName == EventPullRequestTarget
}

// Default branch names.
const (
	DefaultReleaseBranch = "changeset-release/main"
	DefaultTargetBranch  = "main"
)

// DetectionConfig names the branches the detector compares refs against.
type DetectionConfig struct {
	// ReleaseBranch hosts pending release changes.
	ReleaseBranch string

	// TargetBranch is the branch releases are merged into.
	TargetBranch string
}

// DefaultDetectionConfig returns the configuration used when the caller supplies none.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		ReleaseBranch: DefaultReleaseBranch,
		TargetBranch:  DefaultTargetBranch,
	}
}

// WithDefaults fills empty branch names with their defaults.
func (c DetectionConfig) WithDefaults() DetectionConfig {
	if c.ReleaseBranch == "" {
		c.ReleaseBranch = DefaultReleaseBranch
	}
	if c.TargetBranch == "" {
		c.TargetBranch = DefaultTargetBranch
	}
	return c
}

// PullRequestInfo is the pull request metadata carried by a pull request event payload.
type PullRequestInfo struct {
	Number  int
	Merged  bool
	HeadRef string
	BaseRef string
}

// EventContext captures the CI event the detector evaluates.
// It is owned by the caller and never modified by the detector.
type EventContext struct {
	// Ref is the full git ref of the triggering event, e.g. "refs/heads/main".
	Ref string

	// EventName is the CI event kind, e.g. "push" or "pull_request".
	EventName string

	// CommitSHA is the head commit of push-like events.
	CommitSHA string

	// CommitMessage is the raw head commit message. Nil when unknown.
	CommitMessage *string

	// PullRequest is set only for pull request events that carried a payload.
	PullRequest *PullRequestInfo

	RepoOwner string
	RepoName  string
}

// Message returns the commit message, or an empty string when it is absent.
func (e EventContext) Message() string {
	if e.CommitMessage == nil {
		return ""
	}
	return *e.CommitMessage
}

// Branch returns Ref with the "refs/heads/" prefix removed.
func (e EventContext) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}

// AssociatedPullRequest is a pull request returned by the commit association lookup.
type AssociatedPullRequest struct {
	Number int

	// MergedAt is nil for pull requests that were never merged.
	MergedAt *string

	HeadRef string
	BaseRef string
}

// PhaseDetectionResult is the outcome of a single detection.
type PhaseDetectionResult struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason"`

	IsReleaseBranch bool `json:"is_release_branch"`
	IsMainBranch    bool `json:"is_main_branch"`
	IsReleaseCommit bool `json:"is_release_commit"`

	// MergedReleasePRNumber is only set when the API positively identified the
	// release pull request.
	MergedReleasePRNumber *int `json:"merged_release_pr_number,omitempty"`

	IsPullRequestEvent bool `json:"is_pull_request_event"`
	IsPRMerged         bool `json:"is_pr_merged"`
	IsReleasePRMerged  bool `json:"is_release_pr_merged"`

	// CommitMessage is truncated to MaxCommitMessageLength characters.
	CommitMessage string `json:"commit_message"`
}

// MaxCommitMessageLength is the number of characters kept before the ellipsis.
const MaxCommitMessageLength = 100

// Mode selects how release commit status is established.
type Mode string

// Detection modes.
const (
	ModeAuto      Mode = "auto"
	ModeAPI       Mode = "api"
	ModeHeuristic Mode = "heuristic"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeAPI, ModeHeuristic:
		return m, true
	}
	return "", false
}

// LocalCommit holds what the local repository knows about HEAD.
type LocalCommit struct {
	// HeadSHA is the full 40-character commit SHA of HEAD.
	HeadSHA string

	// Message is the HEAD commit message.
	Message string

	// Repository is the repository name in owner/repo format, derived from
	// the 'origin' remote. Empty when no usable origin is configured.
	Repository string
}
