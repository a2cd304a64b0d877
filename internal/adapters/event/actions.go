// Package event builds the detector's event context from a GitHub Actions runner.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	gh "github.com/google/go-github/v75/github"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// Environment variables set by the GitHub Actions runner.
const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvRef        = "GITHUB_REF"
	EnvSHA        = "GITHUB_SHA"
	EnvRepository = "GITHUB_REPOSITORY"
)

// Logger defines the logging interface for the event loader.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// ActionsLoader implements domain.EventSource for GitHub Actions.
type ActionsLoader struct {
	getenv func(string) string
	logger Logger
}

// NewActionsLoader creates a loader reading the process environment.
func NewActionsLoader(log Logger) *ActionsLoader {
	return &ActionsLoader{getenv: os.Getenv, logger: log}
}

// Load builds the event context from GITHUB_* variables and the webhook
// payload. Payload problems are logged and leave the env-derived context in
// place; only a missing event name is an error.
func (l *ActionsLoader) Load(ctx context.Context) (domain.EventContext, error) {
	name := strings.TrimSpace(l.getenv(EnvEventName))
	if name == "" {
		return domain.EventContext{}, fmt.Errorf("%w: %s is not set", domain.ErrEventNameRequired, EnvEventName)
	}

	event := domain.EventContext{
		EventName: name,
		Ref:       strings.TrimSpace(l.getenv(EnvRef)),
		CommitSHA: strings.TrimSpace(l.getenv(EnvSHA)),
	}
	event.RepoOwner, event.RepoName = splitRepository(l.getenv(EnvRepository))

	payloadPath := strings.TrimSpace(l.getenv(EnvEventPath))
	if payloadPath == "" {
		l.logger.Debug(ctx, "no event payload path set", map[string]interface{}{
			"event": name,
		})
		return event, nil
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		l.logger.Warn(ctx, "could not read event payload", map[string]interface{}{
			"path":  payloadPath,
			"error": err.Error(),
		})
		return event, nil
	}

	if err := applyPayload(&event, data); err != nil {
		l.logger.Warn(ctx, "could not parse event payload", map[string]interface{}{
			"path":  payloadPath,
			"event": name,
			"error": err.Error(),
		})
	}

	return event, nil
}

// applyPayload fills the context from the webhook payload of known event kinds.
// Ref and SHA from the payload win over the environment; the repository is
// only filled when the environment did not provide one.
func applyPayload(event *domain.EventContext, data []byte) error {
	switch event.EventName {
	case domain.EventPush:
		var push gh.PushEvent
		if err := json.Unmarshal(data, &push); err != nil {
			return err
		}
		if ref := push.GetRef(); ref != "" {
			event.Ref = ref
		}
		if head := push.GetHeadCommit(); head != nil {
			if id := head.GetID(); id != "" {
				event.CommitSHA = id
			}
			if head.Message != nil {
				event.CommitMessage = gh.Ptr(head.GetMessage())
			}
		} else if after := push.GetAfter(); after != "" {
			event.CommitSHA = after
		}
		fillRepository(event, push.GetRepo().GetFullName())

	case domain.EventPullRequest:
		var pr gh.PullRequestEvent
		if err := json.Unmarshal(data, &pr); err != nil {
			return err
		}
		applyPullRequest(event, pr.GetNumber(), pr.GetPullRequest())
		fillRepository(event, pr.GetRepo().GetFullName())

	case domain.EventPullRequestTarget:
		var pr gh.PullRequestTargetEvent
		if err := json.Unmarshal(data, &pr); err != nil {
			return err
		}
		applyPullRequest(event, pr.GetNumber(), pr.GetPullRequest())
		fillRepository(event, pr.GetRepo().GetFullName())

	default:
		// Other events carry no fields the detector uses beyond the environment.
		var base struct {
			Repository struct {
				FullName string `json:"full_name"`
			} `json:"repository"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			return err
		}
		fillRepository(event, base.Repository.FullName)
	}
	return nil
}

func applyPullRequest(event *domain.EventContext, number int, pr *gh.PullRequest) {
	if pr == nil {
		return
	}
	if number == 0 {
		number = pr.GetNumber()
	}
	event.PullRequest = &domain.PullRequestInfo{
		Number:  number,
		Merged:  pr.GetMerged(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
	}
}

func fillRepository(event *domain.EventContext, fullName string) {
	if event.RepoOwner != "" && event.RepoName != "" {
		return
	}
	if owner, name := splitRepository(fullName); owner != "" && name != "" {
		event.RepoOwner, event.RepoName = owner, name
	}
}

// splitRepository splits "owner/name". Anything else yields two empty strings.
func splitRepository(full string) (string, string) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", ""
	}
	return owner, name
}
