package coordinator

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// typoFixes corrects a small set of recurring misspellings of
// "utilization" observed in real questions.
var typoFixes = map[string]string{
	"utiliza tion": "utilization",
	"utilisation":  "utilization",
	"utilzation":   "utilization",
	"utilizaton":   "utilization",
}

var tickerRe = regexp.MustCompile(`(?i)\b(usdc|usdt|dai|weth|eth|wbtc|btc|aave|uni)\b`)

// NormalizeQuestion collapses whitespace, fixes known typos, uppercases
// recognized asset tickers, and maps ETH -> WETH, per the Coordinator's
// first pipeline step.
func NormalizeQuestion(question string) string {
	q := strings.TrimSpace(question)
	q = whitespaceRe.ReplaceAllString(q, " ")

	lower := strings.ToLower(q)
	for typo, fix := range typoFixes {
		if strings.Contains(lower, typo) {
			q = replaceCaseInsensitive(q, typo, fix)
			lower = strings.ToLower(q)
		}
	}

	q = tickerRe.ReplaceAllStringFunc(q, func(m string) string {
		upper := strings.ToUpper(m)
		if upper == "ETH" {
			return "WETH"
		}
		return upper
	})

	return q
}

func replaceCaseInsensitive(s, old, new string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(old))
	return re.ReplaceAllString(s, new)
}
