package planner

import "encoding/json"

// parseReply accepts either the bare {"sql": "..."} shape or the richer
// {domain, reason, sql, presentation} shape. If raw isn't valid JSON on
// its own, it attempts one recovery: locate the first balanced {...}
// substring and retry.
func parseReply(raw string) (Plan, error) {
	plan, err := decodePlan(raw)
	if err == nil && plan.valid() {
		return plan, nil
	}

	if balanced, ok := firstBalancedObject(raw); ok {
		plan, err2 := decodePlan(balanced)
		if err2 == nil && plan.valid() {
			return plan, nil
		}
	}

	reason := "not valid JSON"
	if err == nil {
		reason = "sql field absent or empty"
	}
	return Plan{}, &ParseError{Raw: raw, Reason: reason}
}

func decodePlan(s string) (Plan, error) {
	var p Plan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// firstBalancedObject scans s for the first top-level balanced {...}
// substring, respecting string literals so a brace inside a quoted value
// doesn't throw off the depth count.
func firstBalancedObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
