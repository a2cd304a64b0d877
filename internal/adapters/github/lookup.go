// Package github provides the pull request lookup backed by the GitHub REST API.
// This package implements the domain.PullRequestLookup interface using go-github.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v75/github"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// DefaultTimeout bounds the single lookup request.
const DefaultTimeout = 10 * time.Second

// Logger defines the logging interface for the GitHub adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Options configures a PullRequestLookup.
type Options struct {
	// Token authenticates API requests.
	Token string

	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise Server.
	// Empty means https://api.github.com/.
	BaseURL string

	// Timeout bounds the HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient replaces the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// PullRequestLookup implements domain.PullRequestLookup with go-github.
type PullRequestLookup struct {
	client *gh.Client
	logger Logger
}

// NewPullRequestLookup creates a lookup from the given options.
func NewPullRequestLookup(opts Options, log Logger) (*PullRequestLookup, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	client := gh.NewClient(httpClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	if opts.BaseURL != "" {
		base, err := parseBaseURL(opts.BaseURL)
		if err != nil {
			return nil, err
		}
		client.BaseURL = base
	}

	return &PullRequestLookup{
		client: client,
		logger: log,
	}, nil
}

// LookupPRsForCommit lists pull requests associated with sha. A single request
// is made; there is no retry. Errors wrap domain.ErrLookupFailed.
func (l *PullRequestLookup) LookupPRsForCommit(
	ctx context.Context,
	owner, repo, sha string,
) ([]domain.AssociatedPullRequest, error) {
	prs, resp, err := l.client.PullRequests.ListPullRequestsWithCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s@%s: %w", domain.ErrLookupFailed, owner, repo, sha, err)
	}

	fields := map[string]interface{}{
		"repository": owner + "/" + repo,
		"commit_sha": sha,
		"count":      len(prs),
	}
	if resp != nil {
		fields["rate_remaining"] = resp.Rate.Remaining
	}
	l.logger.Debug(ctx, "listed pull requests for commit", fields)

	out := make([]domain.AssociatedPullRequest, 0, len(prs))
	for _, pr := range prs {
		if pr == nil {
			continue
		}
		out = append(out, toAssociated(pr))
	}
	return out, nil
}

func toAssociated(pr *gh.PullRequest) domain.AssociatedPullRequest {
	associated := domain.AssociatedPullRequest{
		Number:  pr.GetNumber(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
	}
	if pr.MergedAt != nil {
		mergedAt := pr.MergedAt.Format(time.RFC3339)
		associated.MergedAt = &mergedAt
	}
	return associated
}

// parseBaseURL parses an API endpoint and ensures the trailing slash go-github requires.
func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid GitHub API URL %q: scheme and host are required", raw)
	}
	return base, nil
}
