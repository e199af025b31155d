// Package format applies purely cosmetic post-processing to a summary
// string: date humanization, dollar abbreviation, percent/comma spacing,
// and date-range phrase restoration. Every transform is best-effort; a
// failure anywhere leaves the input untouched rather than erroring out.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Answer runs the full cosmetic catalog over summary, given the original
// question for date-range-phrase recovery.
func Answer(summary, question string) string {
	out := humanizeDates(summary)
	out = abbreviateDollars(out)
	out = tidySpacing(out)
	out = restoreDateRangePhrase(out, question)
	return out
}

var isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

// humanizeDates renders every ISO date as English ("2024-11-11" ->
// "November 11th 2024"). Malformed dates are left untouched.
func humanizeDates(s string) string {
	return isoDateRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := isoDateRe.FindStringSubmatch(m)
		y, err1 := strconv.Atoi(parts[1])
		mo, err2 := strconv.Atoi(parts[2])
		d, err3 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil || err3 != nil || mo < 1 || mo > 12 || d < 1 || d > 31 {
			return m
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Day() != d {
			return m // day past the end of its month (e.g. 2024-02-31)
		}
		return fmt.Sprintf("%s %s %d", t.Month().String(), ordinal(d), y)
	})
}

func ordinal(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return fmt.Sprintf("%dth", n)
	}
	switch n % 10 {
	case 1:
		return fmt.Sprintf("%dst", n)
	case 2:
		return fmt.Sprintf("%dnd", n)
	case 3:
		return fmt.Sprintf("%drd", n)
	default:
		return fmt.Sprintf("%dth", n)
	}
}

var dollarRe = regexp.MustCompile(`\$(\d+(?:\.\d+)?)`)

// abbreviateDollars shortens large dollar figures to K/M/B/T suffixes.
func abbreviateDollars(s string) string {
	return dollarRe.ReplaceAllStringFunc(s, func(m string) string {
		numText := dollarRe.FindStringSubmatch(m)[1]
		n, err := strconv.ParseFloat(numText, 64)
		if err != nil {
			return m
		}
		return "$" + abbreviate(n)
	})
}

func abbreviate(n float64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e12:
		return trimmed(n/1e12) + "T"
	case abs >= 1e9:
		return trimmed(n/1e9) + "B"
	case abs >= 1e6:
		return trimmed(n/1e6) + "M"
	case abs >= 1e3:
		return trimmed(n/1e3) + "K"
	default:
		return trimmed(n)
	}
}

func trimmed(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

var spaceBeforePercentRe = regexp.MustCompile(`(\d)\s+%`)
var spaceBeforeCommaRe = regexp.MustCompile(`\s+,`)

// tidySpacing removes stray whitespace before '%' and ','.
func tidySpacing(s string) string {
	s = spaceBeforePercentRe.ReplaceAllString(s, "$1%")
	s = spaceBeforeCommaRe.ReplaceAllString(s, ",")
	return s
}

var isoRangeRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\s+(?:to|through|-)\s+(\d{4}-\d{2}-\d{2})\b`)

// restoreDateRangePhrase prepends a "Between X and Y:" phrase if question
// contained an ISO date range that the (already-humanized) answer dropped.
func restoreDateRangePhrase(answer, question string) string {
	m := isoRangeRe.FindStringSubmatch(question)
	if m == nil {
		return answer
	}
	from := humanizeDates(m[1])
	to := humanizeDates(m[2])
	phrase := fmt.Sprintf("Between %s and %s: ", from, to)
	if strings.Contains(answer, from) || strings.Contains(answer, to) {
		return answer
	}
	return phrase + answer
}
