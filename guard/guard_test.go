package guard

import (
	"strconv"
	"strings"
	"testing"
)

func testSchema() (map[string]struct{}, map[string]map[string]struct{}) {
	tables := map[string]struct{}{
		"public.market_data": {},
		"public.dex_daily":   {},
	}
	cols := map[string]map[string]struct{}{
		"public.market_data": {
			"ts": {}, "protocol": {}, "symbol": {}, "utilization": {},
		},
		"public.dex_daily": {
			"day": {}, "pair": {}, "volume_usd": {},
		},
	}
	return tables, cols
}

func TestGuardAcceptsSimpleSelect(t *testing.T) {
	tables, cols := testSchema()
	g, err := Guard(`SELECT ts, utilization FROM public.market_data WHERE symbol = 'USDC'`, tables, cols, 500)
	if err != nil {
		t.Fatalf("Guard() error = %v", err)
	}
	if !strings.Contains(g.SQL(), "LIMIT 500") {
		t.Errorf("expected appended LIMIT, got %q", g.SQL())
	}
}

func TestGuardClampsOversizedLimit(t *testing.T) {
	tables, cols := testSchema()
	g, err := Guard(`SELECT ts FROM public.market_data LIMIT 501`, tables, cols, 500)
	if err != nil {
		t.Fatalf("Guard() error = %v", err)
	}
	if !strings.Contains(g.SQL(), "LIMIT 500") {
		t.Errorf("expected clamped LIMIT 500, got %q", g.SQL())
	}
	if strings.Contains(g.SQL(), "501") {
		t.Errorf("did not expect original 501 to survive: %q", g.SQL())
	}
}

func TestGuardAcceptsMaliciousStringLiteral(t *testing.T) {
	tables, cols := testSchema()
	g, err := Guard(`SELECT ts FROM public.market_data WHERE symbol = '''; DROP TABLE t; --'`, tables, cols, 500)
	if err != nil {
		t.Fatalf("expected literal-contained DROP to be accepted, got error: %v", err)
	}
	_ = g
}

func TestGuardRejectsDropOutsideLiteral(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`DROP TABLE public.market_data`, tables, cols, 500)
	if err == nil {
		t.Fatal("expected rejection")
	}
	ge, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ge.Kind != KindNotReadOnly {
		t.Errorf("Kind = %v, want %v", ge.Kind, KindNotReadOnly)
	}
}

func TestGuardAcceptsGenerateSeries(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT * FROM generate_series(1, 10)`, tables, cols, 500)
	if err != nil {
		t.Fatalf("expected generate_series to be accepted, got error: %v", err)
	}
}

func TestGuardAcceptsCTEWithoutTableCheck(t *testing.T) {
	tables, cols := testSchema()
	sql := `WITH hourly AS (SELECT ts FROM public.market_data) SELECT * FROM hourly`
	_, err := Guard(sql, tables, cols, 500)
	if err != nil {
		t.Fatalf("expected CTE reference to be accepted, got error: %v", err)
	}
}

func TestGuardRejectsTableNotAllowed(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT * FROM public.secret_table`, tables, cols, 500)
	if err == nil {
		t.Fatal("expected rejection")
	}
	ge := err.(*Error)
	if ge.Kind != KindTableNotAllowed {
		t.Errorf("Kind = %v, want %v", ge.Kind, KindTableNotAllowed)
	}
}

func TestGuardRejectsColumnNotAllowed(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT public.market_data.secret_col FROM public.market_data`, tables, cols, 500)
	if err == nil {
		t.Fatal("expected rejection")
	}
	ge := err.(*Error)
	if ge.Kind != KindColumnNotAllow {
		t.Errorf("Kind = %v, want %v", ge.Kind, KindColumnNotAllow)
	}
}

func TestGuardRejectsMultiStatement(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT 1; SELECT 2`, tables, cols, 500)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if err.(*Error).Kind != KindMultiStatement {
		t.Errorf("Kind = %v, want %v", err.(*Error).Kind, KindMultiStatement)
	}
}

func TestGuardAllowsSingleTrailingSemicolon(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT 1 FROM public.market_data;`, tables, cols, 500)
	if err != nil {
		t.Fatalf("expected single trailing semicolon to be accepted, got: %v", err)
	}
}

func TestGuardRejectsComment(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard("SELECT 1 FROM public.market_data -- comment", tables, cols, 500)
	if err == nil || err.(*Error).Kind != KindCommentNotAllow {
		t.Fatalf("expected CommentNotAllowed, got %v", err)
	}
}

func TestGuardRejectsSystemSchema(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard(`SELECT * FROM information_schema.tables`, tables, cols, 500)
	if err == nil || err.(*Error).Kind != KindSystemSchema {
		t.Fatalf("expected SystemSchema, got %v", err)
	}
}

func TestGuardRejectsEmptyStatement(t *testing.T) {
	tables, cols := testSchema()
	_, err := Guard("   ", tables, cols, 500)
	if err == nil || err.(*Error).Kind != KindEmptyStatement {
		t.Fatalf("expected EmptyStatement, got %v", err)
	}
}

// Property: output always has exactly one LIMIT n with n <= maxLimit.
func TestGuardAcceptedOutputAlwaysHasBoundedLimit(t *testing.T) {
	tables, cols := testSchema()
	cases := []string{
		`SELECT ts FROM public.market_data`,
		`SELECT ts FROM public.market_data LIMIT 10`,
		`SELECT ts FROM public.market_data LIMIT 9999`,
	}
	for _, sql := range cases {
		g, err := Guard(sql, tables, cols, 500)
		if err != nil {
			t.Fatalf("Guard(%q) error = %v", sql, err)
		}
		out := g.SQL()
		count := strings.Count(strings.ToUpper(out), "LIMIT ")
		if count != 1 {
			t.Errorf("Guard(%q) output has %d LIMIT clauses, want 1: %q", sql, count, out)
		}
		idx := strings.LastIndex(strings.ToUpper(out), "LIMIT ")
		numStr := strings.TrimSpace(out[idx+len("LIMIT "):])
		n, err := strconv.Atoi(numStr)
		if err != nil {
			t.Fatalf("could not parse limit number from %q: %v", out, err)
		}
		if n > 500 {
			t.Errorf("Guard(%q) output limit %d exceeds max 500", sql, n)
		}
	}
}

// Property: string literal content never changes the Guard's decision.
func TestGuardDecisionInvariantToLiteralContent(t *testing.T) {
	tables, cols := testSchema()
	template := `SELECT ts FROM public.market_data WHERE symbol = '%s'`
	literals := []string{"USDC", "DROP TABLE x", "aaaaaaaaaa", "-- comment-like"}

	var lastErrNil bool
	for i, lit := range literals {
		_, err := Guard(strings.Replace(template, "%s", lit, 1), tables, cols, 500)
		if i == 0 {
			lastErrNil = err == nil
			continue
		}
		if (err == nil) != lastErrNil {
			t.Errorf("decision changed for literal %q", lit)
		}
	}
}

func TestGuardColumnNotAllowedForEveryDeclaredTable(t *testing.T) {
	tables, cols := testSchema()
	for tbl := range tables {
		sql := `SELECT ` + tbl + `.nonexistent_col FROM ` + tbl
		_, err := Guard(sql, tables, cols, 500)
		if err == nil {
			t.Fatalf("expected ColumnNotAllowed for %s.nonexistent_col", tbl)
		}
		if err.(*Error).Kind != KindColumnNotAllow {
			t.Errorf("table %s: Kind = %v, want %v", tbl, err.(*Error).Kind, KindColumnNotAllow)
		}
	}
}
