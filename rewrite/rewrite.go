// Package rewrite implements the HeuristicRewriter: a small, enumerated,
// idempotent catalog of textual patches for recurring LLM SQL mistakes,
// applied before the candidate statement reaches the Guard.
package rewrite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FractionColumn reports whether col is known to hold a value in [0,1].
// Backed by the SchemaRegistry's declared fraction_columns list.
type FractionColumn func(col string) bool

// Apply runs the full rewrite catalog, in order, on sql. question is the
// original normalized natural-language question, consulted by rules that
// key off phrasing (streak/"at least N"/consecutive-hours).
func Apply(sql, question string, isFraction FractionColumn) string {
	sql = percentToFraction(sql, isFraction)
	sql = atLeastNNormalization(sql, question)
	sql = hourlyPreAggregation(sql, question, isFraction)
	sql = orderedSetWindowRewrite(sql)
	return sql
}

var comparisonRe = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s*(>=|<=|>|<|=)\s*([0-9]+(?:\.[0-9]+)?)\b`)

// percentToFraction rewrites "<col> <op> <n>" to "<col> <op> <n/100>" when
// col is a declared [0,1]-bounded column and n >= 1, so the model's
// percent-style threshold lines up with the fraction the column stores.
func percentToFraction(sql string, isFraction FractionColumn) string {
	if isFraction == nil {
		return sql
	}
	masked := maskLiterals(sql)

	return replaceOutsideLiterals(sql, masked, comparisonRe, func(match []int) (string, bool) {
		col := sql[match[2]:match[3]]
		op := sql[match[4]:match[5]]
		numText := sql[match[6]:match[7]]

		if !isFraction(col) {
			return "", false
		}
		n, err := strconv.ParseFloat(numText, 64)
		if err != nil || n < 1 {
			return "", false
		}
		frac := roundTo(n/100, 4)
		return col + " " + op + " " + formatFloat(frac), true
	})
}

var atLeastRe = regexp.MustCompile(`(?i)at least\s+(\d+)`)
var streakEqRe = regexp.MustCompile(`(?i)\b(streak_count|hours)\s*(=)\s*(\d+)\b`)

// atLeastNNormalization loosens an exact-N streak comparison to >= N when
// the question phrased the bound as "at least N".
func atLeastNNormalization(sql, question string) string {
	m := atLeastRe.FindStringSubmatch(question)
	if m == nil {
		return sql
	}
	n := m[1]

	masked := maskLiterals(sql)
	return replaceOutsideLiterals(sql, masked, streakEqRe, func(match []int) (string, bool) {
		col := sql[match[2]:match[3]]
		val := sql[match[6]:match[7]]
		if val != n {
			return "", false
		}
		return col + " >= " + val, true
	})
}

var streakPhraseRe = regexp.MustCompile(`(?i)consecutive|streak|hours`)
var dateTruncHourRe = regexp.MustCompile(`(?i)date_trunc\(\s*'hour'`)
var fromTsTableRe = regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z_][a-zA-Z0-9_.]*)\b`)
var selectListRe = regexp.MustCompile(`(?is)^\s*SELECT\s+(.*?)\s+FROM\s+`)
var whereClauseRe = regexp.MustCompile(`(?is)\bWHERE\b\s*(.*?)\s*(\bORDER\s+BY\b|\bGROUP\s+BY\b|\bLIMIT\b|$)`)
var simpleColumnRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// hourlyPreAggregation wraps a bare minutely time-series reference in an
// hourly date_trunc aggregation when the question is about consecutive
// hours/streaks and the candidate SQL reads the raw table directly (§4.3
// rule 3). The wrapped subquery averages the metric the candidate SQL
// actually selects and carries forward its original WHERE clause as the
// baseline filter — it never guesses a column name. If the select list
// isn't a plain list of bare/qualified columns, or none of them is a
// declared fraction column, the rewrite is skipped and sql is returned
// unchanged rather than emit a query against a column that doesn't exist.
func hourlyPreAggregation(sql, question string, isFraction FractionColumn) string {
	if !streakPhraseRe.MatchString(question) {
		return sql
	}
	if dateTruncHourRe.MatchString(sql) {
		return sql // already pre-aggregated; idempotent no-op.
	}
	if isFraction == nil {
		return sql
	}

	masked := maskLiterals(sql)
	loc := fromTsTableRe.FindStringSubmatchIndex(masked)
	if loc == nil {
		return sql
	}
	table := sql[loc[2]:loc[3]]

	selMatch := selectListRe.FindStringSubmatchIndex(masked)
	if selMatch == nil {
		return sql
	}
	rawCols := splitTopLevel(sql[selMatch[2]:selMatch[3]])

	var dims []string
	metric := ""
	sawTS := false
	for _, raw := range rawCols {
		col := strings.TrimSpace(raw)
		if !simpleColumnRe.MatchString(col) {
			return sql // non-trivial select expression; don't guess.
		}
		bare := col
		if idx := strings.LastIndex(bare, "."); idx >= 0 {
			bare = bare[idx+1:]
		}
		if strings.EqualFold(bare, "ts") {
			sawTS = true
			continue
		}
		if metric == "" && isFraction(bare) {
			metric = col
			continue
		}
		dims = append(dims, col)
	}
	if !sawTS || metric == "" {
		return sql // can't identify the time column or the metric to average.
	}

	baseline := "TRUE"
	if wm := whereClauseRe.FindStringSubmatchIndex(masked[loc[1]:]); wm != nil && wm[2] >= 0 {
		// Slice up to the clause boundary (group 2), not the end of group 1:
		// the \s* before the boundary also swallows a trailing string
		// literal, which is blank in masked.
		baseline = strings.TrimSpace(sql[loc[1]+wm[2] : loc[1]+wm[4]])
	}

	groupBy := "1"
	selectDims := ""
	if len(dims) > 0 {
		selectDims = ", " + strings.Join(dims, ", ")
		groupBy += ", " + strings.Join(dims, ", ")
	}

	wrapped := fmt.Sprintf(
		"(SELECT date_trunc('hour', ts) AS hour, AVG(%s) AS %s%s FROM %s WHERE %s GROUP BY %s) h",
		metric, metric, selectDims, table, baseline, groupBy,
	)
	prefix := sql[:loc[0]] + "FROM " + wrapped
	rewritten := prefix + sql[loc[1]:]
	rewritten = renameBareTsToHour(rewritten, len(prefix))
	return rewritten
}

// splitTopLevel splits a comma-separated expression list on commas that are
// not nested inside parentheses, so a function call like ROUND(x, 2) counts
// as one item.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func renameBareTsToHour(sql string, fromPos int) string {
	re := regexp.MustCompile(`(?i)\bts\b`)
	masked := maskLiterals(sql)
	return replaceOutsideLiteralsFrom(sql, masked, re, fromPos, func(match []int) (string, bool) {
		return "hour", true
	})
}

var percentileOverRe = regexp.MustCompile(
	`(?is)percentile_(cont|disc)\(\s*([0-9.]+)\s*\)\s*WITHIN\s+GROUP\s*\(\s*ORDER\s+BY\s+([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)\s*OVER\s*\(([^)]*)\)`,
)

// orderedSetWindowRewrite replaces the Postgres-illegal
// "percentile_cont(p) WITHIN GROUP (ORDER BY col) OVER (...)" construct
// with a scalar subquery computing that percentile of col over the last 30
// days of public.market_data rows. The subquery is not correlated with the
// outer row, so every row gets the same value; the percentile is taken over
// the raw rows, not hourly averages; and the OVER clause is discarded.
func orderedSetWindowRewrite(sql string) string {
	masked := maskLiterals(sql)
	return replaceOutsideLiterals(sql, masked, percentileOverRe, func(match []int) (string, bool) {
		kind := sql[match[2]:match[3]]
		p := sql[match[4]:match[5]]
		col := sql[match[6]:match[7]]

		replacement := fmt.Sprintf(
			"(SELECT percentile_%s(%s) WITHIN GROUP (ORDER BY c.%s) "+
				"FROM (SELECT date_trunc('hour', ts) AS hour, %s FROM public.market_data "+
				"WHERE ts >= NOW() - INTERVAL '30 days') c)",
			kind, p, col, col,
		)
		return replacement, true
	})
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

// maskLiterals blanks single-quoted string literal contents (same
// length-preserving technique the Guard uses) so rewrite rules never
// touch literal text, while match positions still line up with sql.
func maskLiterals(sql string) string {
	out := []byte(sql)
	i := 0
	n := len(out)
	for i < n {
		if out[i] != '\'' {
			i++
			continue
		}
		out[i] = ' '
		i++
		for i < n {
			if out[i] == '\'' {
				if i+1 < n && out[i+1] == '\'' {
					out[i] = ' '
					out[i+1] = ' '
					i += 2
					continue
				}
				out[i] = ' '
				i++
				break
			}
			out[i] = ' '
			i++
		}
	}
	return string(out)
}

// replaceOutsideLiterals finds every match of re in masked (so literal
// text can never match) and, for each, calls build with the match's index
// slice (positions into the original sql); build returns the replacement
// text plus whether to apply it.
func replaceOutsideLiterals(sql, masked string, re *regexp.Regexp, build func(match []int) (string, bool)) string {
	return replaceOutsideLiteralsFrom(sql, masked, re, 0, build)
}

func replaceOutsideLiteralsFrom(sql, masked string, re *regexp.Regexp, from int, build func(match []int) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(masked[from:], -1)
	if matches == nil {
		return sql
	}

	type edit struct {
		start, end int
		repl       string
	}
	var edits []edit
	for _, m := range matches {
		shifted := make([]int, len(m))
		for i, v := range m {
			if v < 0 {
				shifted[i] = v
			} else {
				shifted[i] = v + from
			}
		}
		repl, ok := build(shifted)
		if !ok {
			continue
		}
		edits = append(edits, edit{start: shifted[0], end: shifted[1], repl: repl})
	}

	if len(edits) == 0 {
		return sql
	}

	var b strings.Builder
	cursor := 0
	for _, e := range edits {
		if e.start < cursor {
			continue // overlapping edit from an earlier rule pass; skip defensively
		}
		b.WriteString(sql[cursor:e.start])
		b.WriteString(e.repl)
		cursor = e.end
	}
	b.WriteString(sql[cursor:])
	return b.String()
}
