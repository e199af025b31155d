package coordinator

import (
	"fmt"
	"regexp"
	"strings"
)

// FastPath is a hand-written query proven to pass the Guard trivially. It
// bypasses the Planner and HeuristicRewriter entirely but still runs
// through Guard and Executor (§4.6 step 3).
type FastPath struct {
	Domain string
	Symbol string
	SQL    string
}

var recencyRe = regexp.MustCompile(`(?i)\blatest\b|\bmost recent\b|\bcurrent\b`)
var symbolRe = regexp.MustCompile(`\b([A-Z]{2,6})\b`)

var knownSymbols = map[string]struct{}{
	"USDC": {}, "USDT": {}, "DAI": {}, "WETH": {}, "WBTC": {}, "UNI": {},
}

// matchFastPath returns a hand-written query for a normalized question
// that asks for the latest/most-recent/current value of a recognized
// domain, or ok=false if no fast path applies.
func matchFastPath(normalizedQuestion string) (FastPath, bool) {
	if !recencyRe.MatchString(normalizedQuestion) {
		return FastPath{}, false
	}
	lower := strings.ToLower(normalizedQuestion)
	symbol := extractSymbol(normalizedQuestion)

	switch {
	case strings.Contains(lower, "utilization"):
		if symbol == "" {
			return FastPath{}, false
		}
		sql := fmt.Sprintf(
			"SELECT ts, utilization, ROUND(utilization*100,2) AS utilization_pct FROM public.market_data WHERE protocol='aave' AND symbol='%s' ORDER BY ts DESC LIMIT 1",
			symbol,
		)
		return FastPath{Domain: "lending", Symbol: symbol, SQL: sql}, true

	case strings.Contains(lower, "price"):
		if symbol == "" {
			return FastPath{}, false
		}
		sql := fmt.Sprintf(
			"SELECT ts, symbol, price_usd FROM public.price_snapshots WHERE symbol='%s' ORDER BY ts DESC LIMIT 1",
			symbol,
		)
		return FastPath{Domain: "price", Symbol: symbol, SQL: sql}, true

	case strings.Contains(lower, "dex") || strings.Contains(lower, "volume"):
		sql := "SELECT day, pair, volume_usd FROM public.dex_daily ORDER BY day DESC LIMIT 1"
		return FastPath{Domain: "dex", SQL: sql}, true
	}
	return FastPath{}, false
}

func extractSymbol(question string) string {
	for _, m := range symbolRe.FindAllString(question, -1) {
		if _, ok := knownSymbols[m]; ok {
			return m
		}
	}
	return ""
}
