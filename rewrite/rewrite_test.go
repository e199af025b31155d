package rewrite

import (
	"strings"
	"testing"
)

func fractionCols(names ...string) FractionColumn {
	set := map[string]bool{}
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return func(col string) bool { return set[strings.ToLower(col)] }
}

func TestPercentToFractionRewritesBoundedColumn(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT * FROM public.market_data WHERE utilization >= 80`
	out := Apply(sql, "", isFrac)

	if !strings.Contains(out, "utilization >= 0.8") {
		t.Errorf("expected utilization >= 0.8, got %q", out)
	}
}

func TestPercentToFractionIgnoresAlreadyFractional(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT * FROM public.market_data WHERE utilization >= 0.8`
	out := Apply(sql, "", isFrac)

	if out != sql {
		t.Errorf("expected no change for already-fractional comparison, got %q", out)
	}
}

func TestPercentToFractionIgnoresNonFractionColumn(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT * FROM public.market_data WHERE total_supplied_usd >= 80`
	out := Apply(sql, "", isFrac)

	if out != sql {
		t.Errorf("expected no change for non-fraction column, got %q", out)
	}
}

func TestAtLeastNNormalizationLoosensEquality(t *testing.T) {
	sql := `SELECT * FROM public.streak_metrics WHERE streak_count = 5`
	out := Apply(sql, "show me symbols with at least 5 consecutive hours", nil)

	if !strings.Contains(out, "streak_count >= 5") {
		t.Errorf("expected streak_count >= 5, got %q", out)
	}
}

func TestAtLeastNNormalizationIgnoresMismatchedN(t *testing.T) {
	sql := `SELECT * FROM public.streak_metrics WHERE streak_count = 5`
	out := Apply(sql, "at least 9 hours", nil)

	if out != sql {
		t.Errorf("expected no change when N doesn't match, got %q", out)
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	isFrac := fractionCols("utilization")
	cases := []struct {
		sql, question string
	}{
		{`SELECT * FROM public.market_data WHERE utilization >= 80`, ""},
		{`SELECT * FROM public.streak_metrics WHERE streak_count = 5`, "at least 5 consecutive hours"},
		{`SELECT ts FROM public.market_data WHERE ts >= NOW() - INTERVAL '1 day'`, "consecutive hours streak"},
	}

	for _, c := range cases {
		once := Apply(c.sql, c.question, isFrac)
		twice := Apply(once, c.question, isFrac)
		if once != twice {
			t.Errorf("rewrite not idempotent for %q:\n  once:  %q\n  twice: %q", c.sql, once, twice)
		}
	}
}

func TestHourlyPreAggregationUsesDeclaredMetricAndPreservesFilters(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT ts, protocol, symbol, utilization FROM public.market_data WHERE protocol = 'aave' AND symbol = 'USDC'`
	out := Apply(sql, "longest streak of consecutive hours above threshold", isFrac)

	if !strings.Contains(out, "AVG(utilization) AS utilization") {
		t.Errorf("expected the wrapped subquery to average the declared fraction column, got %q", out)
	}
	if strings.Contains(out, "metric_value") {
		t.Errorf("must never reference the undeclared metric_value column, got %q", out)
	}
	if !strings.Contains(out, "WHERE protocol = 'aave' AND symbol = 'USDC'") {
		t.Errorf("expected the original filters preserved as the subquery's baseline filter, got %q", out)
	}
	if !strings.Contains(out, "GROUP BY 1, protocol, symbol") {
		t.Errorf("expected the non-metric columns carried into GROUP BY, got %q", out)
	}
}

func TestHourlyPreAggregationSkipsWhenNoDeclaredMetricSelected(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT ts FROM public.market_data WHERE ts >= NOW() - INTERVAL '1 day'`
	out := Apply(sql, "consecutive hours streak", isFrac)

	if out != sql {
		t.Errorf("expected no-op when the select list names no declared fraction column, got %q", out)
	}
}

func TestHourlyPreAggregationSkipsOnComplexSelectExpression(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT ts, ROUND(utilization, 2) AS u FROM public.market_data WHERE protocol = 'aave'`
	out := Apply(sql, "consecutive hours streak", isFrac)

	if out != sql {
		t.Errorf("expected no-op for a non-trivial select expression, got %q", out)
	}
}

func TestRewriteNeverTouchesStringLiterals(t *testing.T) {
	isFrac := fractionCols("utilization")
	sql := `SELECT * FROM public.market_data WHERE symbol = 'utilization >= 80'`
	out := Apply(sql, "", isFrac)

	if out != sql {
		t.Errorf("expected literal content to be untouched, got %q", out)
	}
}
