package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"nlsqld/apperr"
	"nlsqld/executor"
	"nlsqld/llmclient"
	"nlsqld/planner"
	"nlsqld/schema"
)

const testSchemaYAML = `
tables:
  - name: public.market_data
    description: "lending snapshots"
    fraction_columns: [utilization]
    columns:
      ts: "ts"
      protocol: "protocol"
      symbol: "symbol"
      utilization: "utilization"
`

type stubPool struct {
	pingErr  error
	queryErr error
}

func (s *stubPool) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, s.queryErr
}

func mustRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load(context.Background(), []byte(testSchemaYAML), nil)
	if err != nil {
		t.Fatalf("schema.Load() error = %v", err)
	}
	return reg
}

func TestHandleQuestionReturnsDatabaseUnavailableOnLivenessFailure(t *testing.T) {
	pool := &stubPool{pingErr: errors.New("connection refused")}
	reg := mustRegistry(t)
	chat := &llmclient.Fake{}
	pl := planner.New(chat, reg.Doc())
	app := New(pool, reg, chat, pl, nil, nil, 500)

	_, err := app.HandleQuestion(context.Background(), "what is the latest USDC utilization?")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != apperr.KindDatabaseUnavailable {
		t.Errorf("Kind = %v, want %v", err.Kind, apperr.KindDatabaseUnavailable)
	}
}

func TestHandleQuestionSurfacesGuardRejectionForDisallowedTable(t *testing.T) {
	pool := &stubPool{}
	reg := mustRegistry(t)
	chat := &llmclient.Fake{Responses: []string{`{"sql": "SELECT * FROM public.secret_table"}`}}
	pl := planner.New(chat, reg.Doc())
	app := New(pool, reg, chat, pl, nil, nil, 500)

	_, err := app.HandleQuestion(context.Background(), "some obscure question with no fast path match")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != apperr.KindGuardRejection {
		t.Errorf("Kind = %v, want %v", err.Kind, apperr.KindGuardRejection)
	}
}

func TestHandleQuestionSurfacesPlannerParseError(t *testing.T) {
	pool := &stubPool{}
	reg := mustRegistry(t)
	chat := &llmclient.Fake{Responses: []string{"I cannot help with that."}}
	pl := planner.New(chat, reg.Doc())
	app := New(pool, reg, chat, pl, nil, nil, 500)

	_, err := app.HandleQuestion(context.Background(), "some obscure question with no fast path match")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != apperr.KindPlannerParseError {
		t.Errorf("Kind = %v, want %v", err.Kind, apperr.KindPlannerParseError)
	}
}

func TestHandleQuestionSurfacesUnrecoverableExecutionError(t *testing.T) {
	pool := &stubPool{queryErr: errors.New("relation does not exist")}
	reg := mustRegistry(t)
	chat := &llmclient.Fake{Responses: []string{`{"sql": "SELECT ts FROM public.market_data"}`}}
	pl := planner.New(chat, reg.Doc())
	app := New(pool, reg, chat, pl, nil, nil, 500)

	_, err := app.HandleQuestion(context.Background(), "some obscure question with no fast path match")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != apperr.KindExecutionError {
		t.Errorf("Kind = %v, want %v", err.Kind, apperr.KindExecutionError)
	}
}

func TestHandleQuestionRetriesOnRecoverableErrorThenExhausts(t *testing.T) {
	pool := &stubPool{queryErr: errors.New("syntax error at or near \"FORM\"")}
	reg := mustRegistry(t)
	chat := &llmclient.Fake{Responses: []string{
		`{"sql": "SELECT ts FROM public.market_data"}`,
		`{"sql": "SELECT ts FROM public.market_data WHERE protocol='aave'"}`,
	}}
	pl := planner.New(chat, reg.Doc())
	app := New(pool, reg, chat, pl, nil, nil, 500)

	_, err := app.HandleQuestion(context.Background(), "some obscure question with no fast path match")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != apperr.KindRetryExhausted {
		t.Errorf("Kind = %v, want %v", err.Kind, apperr.KindRetryExhausted)
	}
	if chat.Calls() != 2 {
		t.Errorf("expected exactly one retry call (2 total), got %d", chat.Calls())
	}
}

func TestFastPathAnswerFormatsLendingDomain(t *testing.T) {
	fp := FastPath{Domain: "lending", Symbol: "USDC"}
	rows := []executor.Row{{"utilization_pct": 72.5}}
	out := fastPathAnswer(fp, rows)
	if out != "Latest USDC utilization is 72.5%." {
		t.Errorf("got %q", out)
	}
}
