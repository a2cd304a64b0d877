// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// Logger defines the logging interface required by the detector.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// PhaseDetector decides which release workflow phase an event should run.
//
// Both entry points share one decision tree and differ only in how they
// establish whether a push to the target branch is a release commit:
// DetectWithLookup asks the PullRequestLookup and falls back to commit message
// heuristics on failure, DetectHeuristic uses the heuristics alone.
type PhaseDetector struct {
	config domain.DetectionConfig
	lookup domain.PullRequestLookup
	logger Logger
}

// NewPhaseDetector creates a PhaseDetector. lookup may be nil, in which case
// Detect always uses the heuristic path.
func NewPhaseDetector(
	cfg domain.DetectionConfig,
	lookup domain.PullRequestLookup,
	log Logger,
) *PhaseDetector {
	return &PhaseDetector{
		config: cfg.WithDefaults(),
		lookup: lookup,
		logger: log,
	}
}

// Detect runs DetectWithLookup when a lookup is configured and DetectHeuristic otherwise.
func (d *PhaseDetector) Detect(ctx context.Context, event domain.EventContext) domain.PhaseDetectionResult {
	if d.lookup != nil {
		return d.DetectWithLookup(ctx, event)
	}
	return d.DetectHeuristic(ctx, event)
}

// DetectWithLookup detects the phase, confirming release commits through the
// pull request lookup. A lookup failure is logged as a warning and detection
// continues with commit message heuristics.
func (d *PhaseDetector) DetectWithLookup(ctx context.Context, event domain.EventContext) domain.PhaseDetectionResult {
	result := d.decide(event, true, func() releaseEvidence {
		return d.evidenceFromLookup(ctx, event)
	})
	d.logResult(ctx, "api", event, result)
	return result
}

// DetectHeuristic detects the phase from local event information only.
// It never calls the lookup and never sets MergedReleasePRNumber.
func (d *PhaseDetector) DetectHeuristic(ctx context.Context, event domain.EventContext) domain.PhaseDetectionResult {
	result := d.decide(event, false, func() releaseEvidence {
		return d.evidenceFromMessage(event)
	})
	d.logResult(ctx, "heuristic", event, result)
	return result
}

// releaseEvidence is the resolved answer to "is this push a release commit".
type releaseEvidence struct {
	isReleaseCommit bool
	prNumber        *int
	reason          string
}

// decide evaluates the ordered rule set. resolve is only called for non pull
// request events on the target branch. identifyMergedPR controls whether a
// merged release PR event reports its number.
func (d *PhaseDetector) decide(
	event domain.EventContext,
	identifyMergedPR bool,
	resolve func() releaseEvidence,
) domain.PhaseDetectionResult {
	rel, tgt := d.config.ReleaseBranch, d.config.TargetBranch
	branch := event.Branch()

	result := domain.PhaseDetectionResult{
		IsReleaseBranch:    branch == rel,
		IsMainBranch:       branch == tgt,
		IsPullRequestEvent: domain.IsPullRequestEvent(event.EventName),
		CommitMessage:      TruncateCommitMessage(event.Message()),
	}

	if result.IsPullRequestEvent {
		pr := event.PullRequest
		if pr == nil {
			result.Phase = domain.PhaseNone
			result.Reason = "Pull request event without pull request payload"
			return result
		}

		result.IsPRMerged = pr.Merged
		fromRelease := pr.HeadRef == rel && pr.BaseRef == tgt

		switch {
		case pr.Merged && fromRelease:
			result.Phase = domain.PhaseCloseIssues
			result.IsReleasePRMerged = true
			result.Reason = fmt.Sprintf("Merged release PR #%d from %s to %s", pr.Number, rel, tgt)
			if identifyMergedPR {
				number := pr.Number
				result.MergedReleasePRNumber = &number
			}
		case fromRelease:
			result.Phase = domain.PhaseValidation
			result.Reason = fmt.Sprintf("Open PR #%d from %s to %s", pr.Number, rel, tgt)
		default:
			result.Phase = domain.PhaseNone
			result.Reason = fmt.Sprintf(
				"PR #%d from %s to %s is not a release PR (expected %s to %s)",
				pr.Number, pr.HeadRef, pr.BaseRef, rel, tgt,
			)
		}
		return result
	}

	switch {
	case result.IsMainBranch:
		evidence := resolve()
		result.IsReleaseCommit = evidence.isReleaseCommit
		result.MergedReleasePRNumber = evidence.prNumber
		if evidence.isReleaseCommit {
			result.Phase = domain.PhasePublishing
			result.Reason = evidence.reason
		} else {
			result.Phase = domain.PhaseBranchManagement
			result.Reason = fmt.Sprintf("Push to %s (not a release commit)", tgt)
		}
	case result.IsReleaseBranch:
		result.Phase = domain.PhaseValidation
		result.Reason = "Push to release branch"
	default:
		result.Phase = domain.PhaseNone
		result.Reason = fmt.Sprintf("Not on %s or %s branch", tgt, rel)
	}

	return result
}

func (d *PhaseDetector) evidenceFromLookup(ctx context.Context, event domain.EventContext) releaseEvidence {
	prs, err := d.lookupAssociated(ctx, event)
	if err != nil {
		d.logger.Warn(ctx, "pull request lookup failed; falling back to commit message heuristics", map[string]interface{}{
			"error":      err.Error(),
			"commit_sha": event.CommitSHA,
			"repository": event.RepoOwner + "/" + event.RepoName,
		})
		return d.evidenceFromMessage(event)
	}

	d.logger.Debug(ctx, "pull requests associated with commit", map[string]interface{}{
		"commit_sha": event.CommitSHA,
		"count":      len(prs),
	})

	rel, tgt := d.config.ReleaseBranch, d.config.TargetBranch
	for _, pr := range prs {
		if pr.MergedAt == nil || pr.HeadRef != rel || pr.BaseRef != tgt {
			continue
		}
		number := pr.Number
		return releaseEvidence{
			isReleaseCommit: true,
			prNumber:        &number,
			reason:          fmt.Sprintf("Push to %s from merged release PR #%d", tgt, number),
		}
	}

	return releaseEvidence{}
}

func (d *PhaseDetector) lookupAssociated(
	ctx context.Context,
	event domain.EventContext,
) ([]domain.AssociatedPullRequest, error) {
	if event.CommitSHA == "" {
		return nil, domain.ErrMissingCommitSHA
	}
	if event.RepoOwner == "" || event.RepoName == "" {
		return nil, domain.ErrMissingRepository
	}
	return d.lookup.LookupPRsForCommit(ctx, event.RepoOwner, event.RepoName, event.CommitSHA)
}

func (d *PhaseDetector) evidenceFromMessage(event domain.EventContext) releaseEvidence {
	match := matchReleaseMessage(event.Message(), event.RepoOwner, d.config.ReleaseBranch)
	if match == "" {
		return releaseEvidence{}
	}
	return releaseEvidence{
		isReleaseCommit: true,
		reason:          fmt.Sprintf("Push to %s with release commit message (%s)", d.config.TargetBranch, match),
	}
}

func (d *PhaseDetector) logResult(
	ctx context.Context,
	strategy string,
	event domain.EventContext,
	result domain.PhaseDetectionResult,
) {
	fields := map[string]interface{}{
		"phase":             result.Phase.String(),
		"reason":            result.Reason,
		"strategy":          strategy,
		"event":             event.EventName,
		"ref":               event.Ref,
		"is_release_commit": result.IsReleaseCommit,
	}
	if result.MergedReleasePRNumber != nil {
		fields["merged_release_pr"] = *result.MergedReleasePRNumber
	}
	d.logger.Info(ctx, "detected release phase", fields)
}
