package coordinator

import "strings"

// stripTimeFilter implements the empty-result fallback's stripping rule
// (§4.5): remove the first "AND ts >= ..." clause up to the next ")",
// "ORDER BY", "LIMIT", "AND", "OR", or end; or rewrite a leading
// "WHERE ts >= ..." clause to "WHERE 1=1" so later AND clauses stay valid.
// Returns ok=false if a ts>=... filter nested inside a parenthesized group
// is reached before any top-level one: the fallback is skipped rather than
// risk malformed SQL.
func stripTimeFilter(sql string) (string, bool) {
	lower := strings.ToLower(sql)

	pos, precededByAnd, ok := findTopLevelTsFilter(lower)
	if !ok {
		return "", false
	}
	end := findFilterEnd(lower, pos)

	if precededByAnd {
		start := backUpToKeyword(lower, pos, "and")
		before := strings.TrimRight(sql[:start], " \t\r\n")
		after := strings.TrimLeft(sql[end:], " \t\r\n")
		if after == "" {
			return before, true
		}
		return before + " " + after, true
	}

	start := backUpToKeyword(lower, pos, "where")
	keywordEnd := start + len("where")
	after := strings.TrimLeft(sql[end:], " \t\r\n")
	if after == "" {
		return sql[:keywordEnd] + " 1=1", true
	}
	return sql[:keywordEnd] + " 1=1 " + after, true
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// findTopLevelTsFilter finds the first "ts" token (word-bounded) followed,
// after optional whitespace, by ">=" at paren depth 0. precededByAnd
// reports whether the word immediately preceding "ts" is "and" (as
// opposed to "where"). ok is false if no such depth-0 filter exists, or
// if a nested occurrence is reached first; a top-level filter later in
// the text is then not considered.
func findTopLevelTsFilter(lower string) (pos int, precededByAnd bool, ok bool) {
	depth := 0
	for i := 0; i < len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if !matchesTsGE(lower, i) {
			continue
		}
		if depth != 0 {
			return 0, false, false // nested occurrence: skip, don't guess.
		}
		kw, kwOK := precedingKeyword(lower, i)
		if !kwOK {
			continue
		}
		return i, kw == "and", true
	}
	return 0, false, false
}

// matchesTsGE reports whether lower[i:] begins a word-bounded "ts" token
// followed by optional whitespace and ">=".
func matchesTsGE(lower string, i int) bool {
	if i+2 > len(lower) || lower[i:i+2] != "ts" {
		return false
	}
	if i > 0 && isWordChar(lower[i-1]) {
		return false
	}
	if i+2 < len(lower) && isWordChar(lower[i+2]) {
		return false
	}
	j := i + 2
	for j < len(lower) && (lower[j] == ' ' || lower[j] == '\t') {
		j++
	}
	return j+2 <= len(lower) && lower[j:j+2] == ">="
}

// precedingKeyword returns the word immediately before position i,
// skipping whitespace, if it is "and" or "where".
func precedingKeyword(lower string, i int) (string, bool) {
	j := i
	for j > 0 && (lower[j-1] == ' ' || lower[j-1] == '\t') {
		j--
	}
	end := j
	for j > 0 && isWordChar(lower[j-1]) {
		j--
	}
	word := lower[j:end]
	if word == "and" || word == "where" {
		return word, true
	}
	return "", false
}

// findFilterEnd locates the end of the "ts >= <expr>" comparison starting
// at pos: the next top-level ")", "and", "or", "order by", "limit", ";",
// or end of string. Parens opened inside the expression itself (e.g.
// NOW()) are tracked and must balance before a boundary can be found.
func findFilterEnd(lower string, pos int) int {
	depth := 0
	i := pos
	for i < len(lower) {
		c := lower[i]
		switch c {
		case '(':
			depth++
			i++
			continue
		case ')':
			if depth == 0 {
				return i
			}
			depth--
			i++
			continue
		}
		if depth == 0 {
			if word, wlen, wok := wordAt(lower, i); wok {
				if word == "and" || word == "or" || word == "limit" {
					return i
				}
				if word == "order" && hasWordAt(lower, i+wlen, "by") {
					return i
				}
			}
			if c == ';' {
				return i
			}
		}
		i++
	}
	return len(lower)
}

func wordAt(lower string, i int) (string, int, bool) {
	if i > 0 && isWordChar(lower[i-1]) {
		return "", 0, false
	}
	j := i
	for j < len(lower) && isWordChar(lower[j]) {
		j++
	}
	if j == i {
		return "", 0, false
	}
	return lower[i:j], j - i, true
}

func hasWordAt(lower string, i int, want string) bool {
	for i < len(lower) && (lower[i] == ' ' || lower[i] == '\t') {
		i++
	}
	word, _, ok := wordAt(lower, i)
	return ok && word == want
}

// backUpToKeyword finds the start index of keyword, the word immediately
// preceding position pos (after skipping whitespace).
func backUpToKeyword(lower string, pos int, keyword string) int {
	j := pos
	for j > 0 && (lower[j-1] == ' ' || lower[j-1] == '\t') {
		j--
	}
	return j - len(keyword)
}
