package planner

import (
	"regexp"
	"strings"
)

var recoverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)syntax error`),
	regexp.MustCompile(`(?i)OVER is not supported for ordered-set aggregate`),
	regexp.MustCompile(`(?i)percentile_(cont|disc).*OVER`),
}

// Recoverable reports whether an execution error message belongs to the
// enumerated class that earns the Plan exactly one regeneration attempt.
func Recoverable(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}
	for _, re := range recoverablePatterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
