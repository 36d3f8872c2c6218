package workflow

import (
	"regexp"
	"strings"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a deterministic branch-safe name from an issue title:
// lower-case, non-alphanumeric runs collapsed to single hyphens, no
// leading or trailing hyphens.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	return s
}
