// Package guard implements the SQL safety filter: a hand-written lexical
// scanner (not a full parser, not regex-over-masked-text) that proves a
// candidate statement is a single read-only query confined to an
// allow-listed set of tables and columns before it ever reaches a
// database connection.
package guard

import (
	"strconv"
	"strings"
)

const DefaultMaxLimit = 500

var forbiddenKeywords = []string{
	"update", "insert", "delete", "drop", "alter", "truncate",
	"create", "grant", "revoke", "copy", "vacuum", "analyze",
}

var systemSchemas = []string{"pg_catalog", "pg_toast", "information_schema"}

var srfAllowList = map[string]struct{}{
	"generate_series": {},
	"unnest":          {},
}

// clauseKeywords are identifiers that, when found immediately after a
// closing paren, indicate a new clause rather than a derived-table alias.
var clauseKeywords = map[string]struct{}{
	"where": {}, "group": {}, "order": {}, "having": {}, "union": {},
	"limit": {}, "on": {}, "and": {}, "or": {}, "join": {}, "left": {},
	"right": {}, "inner": {}, "outer": {}, "cross": {}, "full": {},
	"select": {}, "from": {}, "intersect": {}, "except": {}, "as": {},
}

// Guarded is a statement proven to satisfy every Guard rule. The zero
// value is not usable outside this package; callers obtain one only by
// calling Guard successfully.
type Guarded struct {
	sql string
}

// SQL returns the normalized, LIMIT-clamped statement text.
func (g Guarded) SQL() string { return g.sql }

// Guard validates sql against tables/colsByTable and returns a normalized,
// LIMIT-clamped statement, or a typed *Error describing the first
// violation found.
func Guard(sql string, tables map[string]struct{}, colsByTable map[string]map[string]struct{}, maxLimit int) (Guarded, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Guarded{}, newErr(KindEmptyStatement, "", sql)
	}

	masked := mask(trimmed)

	// Statement-count check: trim one optional trailing ';', then the
	// remainder must contain no ';'.
	bodyMasked := masked
	bodyOriginal := trimmed
	if strings.HasSuffix(strings.TrimRight(bodyMasked, " \t\r\n"), ";") {
		end := strings.LastIndex(bodyMasked, ";")
		bodyMasked = bodyMasked[:end] + strings.Repeat(" ", len(bodyMasked)-end)
		bodyOriginal = bodyOriginal[:end] + strings.Repeat(" ", len(bodyOriginal)-end)
	}
	if strings.ContainsRune(strings.TrimSpace(bodyMasked), ';') {
		return Guarded{}, newErr(KindMultiStatement, "", sql)
	}

	// Prefix check.
	lead := strings.TrimLeft(bodyMasked, " \t\r\n")
	if !(hasCaseFoldPrefix(lead, "select") || hasCaseFoldPrefix(lead, "with")) {
		return Guarded{}, newErr(KindNotReadOnly, "must begin with SELECT or WITH", sql)
	}

	// Comment markers: masking already blanked string literals, so any
	// remaining "--" or "/*" is a real comment.
	if strings.Contains(bodyMasked, "--") || strings.Contains(bodyMasked, "/*") {
		return Guarded{}, newErr(KindCommentNotAllow, "", sql)
	}

	toks := tokenize(bodyMasked)

	// Forbidden-token scan.
	for _, t := range toks {
		if t.kind != tokIdent {
			continue
		}
		lower := toLower(t.text)
		for _, kw := range forbiddenKeywords {
			if lower == kw {
				return Guarded{}, newErr(KindNotReadOnly, lower, sql)
			}
		}
	}

	// System-schema references: qualifier.ident where qualifier matches
	// one of the reserved schema names.
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].kind != tokIdent || toks[i+1].kind != tokDot {
			continue
		}
		lower := toLower(toks[i].text)
		for _, sys := range systemSchemas {
			if lower == sys {
				return Guarded{}, newErr(KindSystemSchema, lower, sql)
			}
		}
	}

	aliasSet := collectAliasesAndCTEs(toks)

	if err := checkTables(toks, tables, aliasSet, sql); err != nil {
		return Guarded{}, err
	}
	if err := checkColumns(toks, colsByTable, aliasSet, sql); err != nil {
		return Guarded{}, err
	}

	normalized := normalizeLimit(bodyOriginal, toks, maxLimit)
	return Guarded{sql: strings.TrimSpace(normalized)}, nil
}

func hasCaseFoldPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return eqFold(s[:len(prefix)], prefix)
}

// collectAliasesAndCTEs gathers synthetic names that look like tables but
// aren't: CTE names from a leading WITH clause, and derived-table aliases
// following a closing paren.
func collectAliasesAndCTEs(toks []token) map[string]struct{} {
	names := map[string]struct{}{}

	i := 0
	if len(toks) > 0 && toks[0].kind == tokIdent && eqFold(toks[0].text, "with") {
		i = 1
		for i < len(toks) {
			if toks[i].kind != tokIdent {
				break
			}
			names[toLower(toks[i].text)] = struct{}{}
			i++
			if i < len(toks) && toks[i].kind == tokLParen {
				i = skipParenGroup(toks, i)
			}
			if i < len(toks) && toks[i].kind == tokIdent && eqFold(toks[i].text, "as") {
				i++
			}
			if i < len(toks) && toks[i].kind == tokLParen {
				i = skipParenGroup(toks, i)
			}
			if i < len(toks) && toks[i].kind == tokComma {
				i++
				continue
			}
			break
		}
	}

	for j := 0; j < len(toks); j++ {
		if toks[j].kind != tokRParen {
			continue
		}
		k := j + 1
		if k < len(toks) && toks[k].kind == tokIdent && eqFold(toks[k].text, "as") {
			k++
		}
		if k < len(toks) && toks[k].kind == tokIdent {
			lower := toLower(toks[k].text)
			if _, reserved := clauseKeywords[lower]; !reserved {
				names[lower] = struct{}{}
			}
		}
	}

	return names
}

func isSRF(name string) bool {
	_, ok := srfAllowList[toLower(name)]
	return ok
}

// resolveAgainstTables tries candidate, then the "public."-stripped /
// "public."-prefixed variants, since the registry's own storage style
// (bare vs schema-qualified) is authoritative.
func resolveAgainstTables(candidate string, tables map[string]struct{}) (string, bool) {
	if _, ok := tables[candidate]; ok {
		return candidate, true
	}
	if strings.HasPrefix(candidate, "public.") {
		bare := strings.TrimPrefix(candidate, "public.")
		if _, ok := tables[bare]; ok {
			return bare, true
		}
	} else {
		qualified := "public." + candidate
		if _, ok := tables[qualified]; ok {
			return qualified, true
		}
	}
	return candidate, false
}

func checkTables(toks []token, tables map[string]struct{}, aliasSet map[string]struct{}, sql string) error {
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.kind != tokIdent || !(eqFold(t.text, "from") || eqFold(t.text, "join")) {
			i++
			continue
		}
		next := i + 1
		for {
			if next >= len(toks) {
				break
			}
			if toks[next].kind == tokLParen {
				// Derived table / subquery: nothing to check here directly.
				break
			}
			if toks[next].kind != tokIdent {
				break
			}
			name := toks[next].text
			qualifier := ""
			cursor := next + 1
			if cursor < len(toks) && toks[cursor].kind == tokDot && cursor+1 < len(toks) && toks[cursor+1].kind == tokIdent {
				qualifier = name
				name = toks[cursor+1].text
				cursor += 2
			}

			if cursor < len(toks) && toks[cursor].kind == tokLParen {
				base := toLower(name)
				if !isSRF(base) {
					return newErr(KindTableNotAllowed, base, sql)
				}
				cursor = skipParenGroup(toks, cursor)
			} else {
				candidate := toLower(name)
				if qualifier != "" {
					candidate = toLower(qualifier) + "." + candidate
				}
				if _, ok := aliasSet[candidate]; !ok {
					if _, resolved := resolveAgainstTables(candidate, tables); !resolved {
						// A bare name might itself be a collected alias/CTE.
						if _, ok := aliasSet[toLower(name)]; !ok {
							return newErr(KindTableNotAllowed, candidate, sql)
						}
					}
				}
			}

			if cursor < len(toks) && toks[cursor].kind == tokComma {
				next = cursor + 1
				continue
			}
			next = cursor
			break
		}
		i = next
		if i <= 0 {
			i++
		}
	}
	return nil
}

func checkColumns(toks []token, colsByTable map[string]map[string]struct{}, aliasSet map[string]struct{}, sql string) error {
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].kind != tokIdent || toks[i+1].kind != tokDot {
			continue
		}
		if i+2 >= len(toks) || toks[i+2].kind != tokIdent {
			continue
		}
		qualifier := toLower(toks[i].text)
		col := toLower(toks[i+2].text)

		if _, ok := aliasSet[qualifier]; ok {
			continue
		}

		cols, ok := colsByTable[qualifier]
		if !ok {
			// Try the public./bare normalization both ways before giving up.
			if strings.HasPrefix(qualifier, "public.") {
				cols, ok = colsByTable[strings.TrimPrefix(qualifier, "public.")]
			} else if c, found := colsByTable["public."+qualifier]; found {
				cols, ok = c, true
			}
		}
		if !ok || len(cols) == 0 {
			continue
		}
		if _, allowed := cols[col]; !allowed {
			return newErr(KindColumnNotAllow, qualifier+"."+col, sql)
		}
	}
	return nil
}

// normalizeLimit clamps every statement-scope (paren depth 0) LIMIT n to
// maxLimit, or appends one if none exists at depth 0.
func normalizeLimit(original string, toks []token, maxLimit int) string {
	type edit struct {
		start, end int
		repl       string
	}
	var edits []edit
	found := false

	for i := 0; i+1 < len(toks); i++ {
		if toks[i].depth != 0 || toks[i].kind != tokIdent || !eqFold(toks[i].text, "limit") {
			continue
		}
		if toks[i+1].kind != tokNumber {
			continue
		}
		found = true
		n, err := strconv.Atoi(toks[i+1].text)
		if err != nil {
			continue
		}
		if n > maxLimit {
			edits = append(edits, edit{start: toks[i+1].start, end: toks[i+1].end, repl: strconv.Itoa(maxLimit)})
		}
	}

	out := original
	if len(edits) > 0 {
		var b strings.Builder
		cursor := 0
		for _, e := range edits {
			b.WriteString(out[cursor:e.start])
			b.WriteString(e.repl)
			cursor = e.end
		}
		b.WriteString(out[cursor:])
		out = b.String()
	}

	if !found {
		out = strings.TrimRight(out, " \t\r\n") + "\nLIMIT " + strconv.Itoa(maxLimit)
	}
	return out
}
