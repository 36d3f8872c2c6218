package workflow

import (
	"strings"

	"github.com/specforge/specforge/internal/github"
)

// approvalPhrases short-circuit classification to non-actionable. An
// approval signal wins over ambiguous directive wording in the same text.
var approvalPhrases = []string{
	"lgtm",
	"looks good",
	"approved",
	"ship it",
	"great work",
	"nice work",
	"well done",
	"no issues",
}

// actionablePhrases mark text as feedback the implementation routine
// should act on.
var actionablePhrases = []string{
	"should",
	"consider",
	"needs",
	"need to",
	"must",
	"bug",
	"fix",
	"please fix",
	"error",
	"add error handling",
	"missing",
	"incorrect",
	"problem",
}

// IsActionableFeedback classifies free-text review or comment bodies.
func IsActionableFeedback(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range approvalPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, phrase := range actionablePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// CheckAutomatedReview scans reviews and comments authored by the
// automated-reviewer bot. A bot review with state CHANGES_REQUESTED, or a
// bot comment classified actionable, contributes its body to feedback and
// forces approved=false. No bot interaction at all defaults to approved.
func CheckAutomatedReview(reviews []github.Review, comments []github.Comment, botName string) (approved bool, feedback []string) {
	approved = true
	for _, r := range reviews {
		if !isBotAuthor(r.User.Login, botName) {
			continue
		}
		if r.State == "CHANGES_REQUESTED" || (r.Body != "" && IsActionableFeedback(r.Body)) {
			approved = false
			if r.Body != "" {
				feedback = append(feedback, r.Body)
			}
		}
	}
	for _, c := range comments {
		if !isBotAuthor(c.User.Login, botName) {
			continue
		}
		if IsActionableFeedback(c.Body) {
			approved = false
			feedback = append(feedback, c.Body)
		}
	}
	return approved, feedback
}

// isBotAuthor matches bot logins loosely: services append suffixes like
// "[bot]" to the configured name.
func isBotAuthor(login, botName string) bool {
	if botName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(login), strings.ToLower(botName))
}
