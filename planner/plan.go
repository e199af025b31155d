// Package planner turns a normalized question into a candidate SQL Plan
// by prompting a ChatCompletion model, parsing its structured reply, and
// regenerating the Plan once when execution fails in a recoverable way.
package planner

import (
	"strings"
)

// Presentation carries display hints the LLM may suggest alongside SQL.
// Every field is optional.
type Presentation struct {
	Style         string   `json:"style,omitempty"` // concise | bulleted | headline
	IncludeFields []string `json:"include_fields,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Plan is the Planner's output. SQL is the only required field; everything
// else is advisory.
type Plan struct {
	Domain       string       `json:"domain,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	SQL          string       `json:"sql"`
	Presentation Presentation `json:"presentation,omitempty"`
}

func (p Plan) valid() bool {
	return strings.TrimSpace(p.SQL) != ""
}
