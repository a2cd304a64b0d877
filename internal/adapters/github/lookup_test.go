package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}

const pullsResponse = `[
  {
    "number": 41,
    "merged_at": null,
    "head": {"ref": "changeset-release/main"},
    "base": {"ref": "main"}
  },
  {
    "number": 42,
    "merged_at": "2024-01-01T00:00:00Z",
    "head": {"ref": "changeset-release/main"},
    "base": {"ref": "main"}
  }
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestLookupPRsForCommit_Success(t *testing.T) {
	var gotPath, gotAuth string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pullsResponse))
	})

	lookup, err := NewPullRequestLookup(Options{Token: "s3cret", BaseURL: server.URL}, &testLogger{})
	require.NoError(t, err)

	prs, err := lookup.LookupPRsForCommit(context.Background(), "acme", "widgets", "abc123")

	require.NoError(t, err)
	assert.Equal(t, "/repos/acme/widgets/commits/abc123/pulls", gotPath)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	require.Len(t, prs, 2)

	assert.Equal(t, 41, prs[0].Number)
	assert.Nil(t, prs[0].MergedAt)

	assert.Equal(t, 42, prs[1].Number)
	require.NotNil(t, prs[1].MergedAt)
	assert.Equal(t, "2024-01-01T00:00:00Z", *prs[1].MergedAt)
	assert.Equal(t, "changeset-release/main", prs[1].HeadRef)
	assert.Equal(t, "main", prs[1].BaseRef)
}

func TestLookupPRsForCommit_EmptyList(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	lookup, err := NewPullRequestLookup(Options{BaseURL: server.URL}, &testLogger{})
	require.NoError(t, err)

	prs, err := lookup.LookupPRsForCommit(context.Background(), "acme", "widgets", "abc123")

	require.NoError(t, err)
	assert.Empty(t, prs)
}

func TestLookupPRsForCommit_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Bad credentials"}`},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			lookup, err := NewPullRequestLookup(Options{BaseURL: server.URL}, &testLogger{})
			require.NoError(t, err)

			prs, err := lookup.LookupPRsForCommit(context.Background(), "acme", "widgets", "abc123")

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLookupFailed)
			assert.Nil(t, prs)
			assert.Equal(t, 1, calls, "lookup must not retry")
		})
	}
}

func TestLookupPRsForCommit_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	})
	defer close(release)

	lookup, err := NewPullRequestLookup(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, &testLogger{})
	require.NoError(t, err)

	_, err = lookup.LookupPRsForCommit(context.Background(), "acme", "widgets", "abc123")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLookupFailed)
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "adds trailing slash", raw: "https://ghe.example.com/api/v3", want: "https://ghe.example.com/api/v3/"},
		{name: "keeps trailing slash", raw: "https://api.github.com/", want: "https://api.github.com/"},
		{name: "trims whitespace", raw: "  http://localhost:8080 ", want: "http://localhost:8080/"},
		{name: "missing scheme", raw: "api.github.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBaseURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNewPullRequestLookup_InvalidBaseURL(t *testing.T) {
	lookup, err := NewPullRequestLookup(Options{BaseURL: "not a url"}, &testLogger{})

	require.Error(t, err)
	assert.Nil(t, lookup)
}
