package usecases

import (
	"strings"
	"unicode/utf8"

	"github.com/MyCarrier-DevOps/release-phase/internal/domain"
)

// IsReleaseCommitMessage reports whether message looks like the commit that
// merged releaseBranch into the target branch, or a version bump commit.
func IsReleaseCommitMessage(message, owner, releaseBranch string) bool {
	return matchReleaseMessage(message, owner, releaseBranch) != ""
}

// matchReleaseMessage returns a short description of the first pattern the
// message matches, or "" when none does.
func matchReleaseMessage(message, owner, releaseBranch string) string {
	switch {
	case strings.Contains(message, "from "+owner+"/"+releaseBranch):
		return "merge from " + owner + "/" + releaseBranch
	case strings.Contains(message, "Merge branch '"+releaseBranch+"'"):
		return "merge of branch " + releaseBranch
	case strings.Contains(message, "Merge pull request") && strings.Contains(message, releaseBranch):
		return "merged pull request from " + releaseBranch
	case strings.Contains(message, "chore: version packages"),
		strings.Contains(strings.ToLower(message), "version packages"):
		return "version packages commit"
	case strings.HasPrefix(message, "chore: release"):
		return "release commit"
	}
	return ""
}

// TruncateCommitMessage shortens message to domain.MaxCommitMessageLength
// characters and appends "..." when anything was cut.
func TruncateCommitMessage(message string) string {
	if utf8.RuneCountInString(message) <= domain.MaxCommitMessageLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:domain.MaxCommitMessageLength]) + "..."
}
