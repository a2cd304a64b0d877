// Package output provides adapters for writing application output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// Format selects how a result is rendered.
type Format string

// Supported output formats.
const (
	FormatJSON Format = "json"
	FormatEnv  Format = "env"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatEnv:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want json or env)", s)
}

// Writer writes detection results to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out    io.Writer
	format Format
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter(format Format) *Writer {
	return &Writer{out: os.Stdout, format: format}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
func NewWriterWithOutput(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

// WriteResult renders the result in the writer's format.
func (w *Writer) WriteResult(result domain.PhaseDetectionResult) error {
	switch w.format {
	case FormatEnv:
		return w.writeEnv(result)
	default:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// writeEnv writes one key=value line per field, in the shape GitHub Actions
// accepts in $GITHUB_OUTPUT. The commit message may span lines and uses the
// heredoc form.
func (w *Writer) writeEnv(result domain.PhaseDetectionResult) error {
	prNumber := ""
	if result.MergedReleasePRNumber != nil {
		prNumber = strconv.Itoa(*result.MergedReleasePRNumber)
	}

	lines := []string{
		"phase=" + result.Phase.String(),
		"reason=" + result.Reason,
		"is_release_branch=" + strconv.FormatBool(result.IsReleaseBranch),
		"is_main_branch=" + strconv.FormatBool(result.IsMainBranch),
		"is_release_commit=" + strconv.FormatBool(result.IsReleaseCommit),
		"merged_release_pr_number=" + prNumber,
		"is_pull_request_event=" + strconv.FormatBool(result.IsPullRequestEvent),
		"is_pr_merged=" + strconv.FormatBool(result.IsPRMerged),
		"is_release_pr_merged=" + strconv.FormatBool(result.IsReleasePRMerged),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			return err
		}
	}

	delimiter := heredocDelimiter(result.CommitMessage)
	_, err := fmt.Fprintf(w.out, "commit_message<<%s\n%s\n%s\n", delimiter, result.CommitMessage, delimiter)
	return err
}

// heredocDelimiter picks a delimiter that does not occur in value.
func heredocDelimiter(value string) string {
	delimiter := "EOF"
	for strings.Contains(value, delimiter) {
		delimiter += "_"
	}
	return delimiter
}
