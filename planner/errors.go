package planner

import "fmt"

// ParseError reports that the model's reply could not be turned into a
// usable Plan, with the raw text attached for debugging.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("planner: parse error (%s): %s", e.Reason, truncate(e.Raw, 500))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
