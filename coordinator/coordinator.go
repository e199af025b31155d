// Package coordinator owns the end-to-end per-request flow: normalize the
// question, probe the database, try a fast path, otherwise run the full
// Planner -> Rewriter -> Guard -> Executor pipeline with one retry and one
// empty-result fallback, summarize, and shape the response.
package coordinator

import (
	"context"
	"time"

	"nlsqld/apperr"
	"nlsqld/executor"
	"nlsqld/format"
	"nlsqld/guard"
	"nlsqld/llmclient"
	"nlsqld/logger"
	"nlsqld/plancache"
	"nlsqld/planner"
	"nlsqld/rewrite"
	"nlsqld/schema"
)

// Pool is the capability App needs from the connection pool: a liveness
// probe and a query/release contract. *pgpool.Pool satisfies this.
type Pool interface {
	executor.Pool
	Ping(ctx context.Context) error
}

// App bundles every process-wide, shared dependency the Coordinator needs.
// One App is constructed at startup and reused across every request
// (§9 "Global mutable state" — explicit, injectable dependencies).
type App struct {
	Pool      Pool
	Schema    *schema.Registry
	Chat      llmclient.ChatCompletion
	Planner   *planner.Planner
	Logger    *logger.Logger
	PlanCache *plancache.Store
	MaxLimit  int
}

// New constructs an App. planner is built by the caller from chat and
// schema.Doc() so callers can swap in alternate prompt construction in
// tests.
func New(pool Pool, reg *schema.Registry, chat llmclient.ChatCompletion, pl *planner.Planner, log *logger.Logger, cache *plancache.Store, maxLimit int) *App {
	if maxLimit <= 0 {
		maxLimit = guard.DefaultMaxLimit
	}
	return &App{Pool: pool, Schema: reg, Chat: chat, Planner: pl, Logger: log, PlanCache: cache, MaxLimit: maxLimit}
}

// HandleQuestion runs the full pipeline for one request and returns either
// a Response or a typed *apperr.APIError ready for the HTTP layer.
func (a *App) HandleQuestion(ctx context.Context, question string) (*Response, *apperr.APIError) {
	normalized := NormalizeQuestion(question)

	if err := a.Pool.Ping(ctx); err != nil {
		a.logf("liveness probe failed: %v", err)
		return nil, apperr.DatabaseUnavailable(err)
	}

	if fp, ok := matchFastPath(normalized); ok {
		return a.runFastPath(ctx, normalized, fp)
	}

	return a.runPlannedFlow(ctx, normalized)
}

func (a *App) runFastPath(ctx context.Context, question string, fp FastPath) (*Response, *apperr.APIError) {
	guarded, gErr := a.guardSQL(fp.SQL)
	if gErr != nil {
		return nil, gErr
	}

	rows, err := executor.Execute(ctx, a.Pool, guarded.SQL())
	if err != nil {
		a.logf("fast path execution failed: %v", err)
		a.record(ctx, question, fp.Domain, guarded.SQL(), 0, false, err.Error(), false)
		return nil, apperr.ExecutionError(guarded.SQL(), err)
	}

	answer := fastPathAnswer(fp, rows)
	a.record(ctx, question, fp.Domain, guarded.SQL(), len(rows), true, "", false)
	return &Response{OK: true, Answer: answer, SQL: guarded.SQL(), Rows: rows}, nil
}

func (a *App) runPlannedFlow(ctx context.Context, question string) (*Response, *apperr.APIError) {
	plan, err := a.Planner.Plan(ctx, question)
	if err != nil {
		return nil, plannerFailure(err)
	}

	guarded, gErr := a.rewriteAndGuard(plan, question)
	if gErr != nil {
		return nil, gErr
	}

	retried := false
	rows, execErr := executor.Execute(ctx, a.Pool, guarded.SQL())
	if execErr != nil {
		if !planner.Recoverable(execErr.Error()) {
			a.record(ctx, question, plan.Domain, guarded.SQL(), 0, false, execErr.Error(), false)
			return nil, apperr.ExecutionError(guarded.SQL(), execErr)
		}

		retryPlan, rErr := a.Planner.Retry(ctx, question, guarded.SQL(), execErr.Error())
		if rErr != nil {
			return nil, plannerFailure(rErr)
		}
		retryGuarded, rgErr := a.rewriteAndGuard(retryPlan, question)
		if rgErr != nil {
			return nil, rgErr
		}
		retryRows, reErr := executor.Execute(ctx, a.Pool, retryGuarded.SQL())
		if reErr != nil {
			a.record(ctx, question, retryPlan.Domain, retryGuarded.SQL(), 0, false, reErr.Error(), true)
			return nil, apperr.RetryExhausted(retryGuarded.SQL(), reErr)
		}
		guarded, rows = retryGuarded, retryRows
		plan = retryPlan
		retried = true
	}

	if len(rows) == 0 {
		if stripped, ok := stripTimeFilter(guarded.SQL()); ok {
			if fallbackGuarded, fgErr := a.guardSQL(stripped); fgErr == nil {
				if fallbackRows, feErr := executor.Execute(ctx, a.Pool, fallbackGuarded.SQL()); feErr == nil {
					guarded, rows = fallbackGuarded, fallbackRows
				}
			}
		}
	}

	summary := summarize(ctx, a.Chat, question, rows)
	answer := format.Answer(summary, question)

	a.record(ctx, question, plan.Domain, guarded.SQL(), len(rows), true, "", retried)
	return &Response{OK: true, Answer: answer, SQL: guarded.SQL(), Rows: rows}, nil
}

// rewriteAndGuard applies the HeuristicRewriter then the Guard to a Plan's
// candidate SQL.
func (a *App) rewriteAndGuard(plan planner.Plan, question string) (guard.Guarded, *apperr.APIError) {
	rewritten := rewrite.Apply(plan.SQL, question, a.Schema.IsFractionColumn)
	return a.guardSQL(rewritten)
}

func (a *App) guardSQL(sql string) (guard.Guarded, *apperr.APIError) {
	guarded, err := guard.Guard(sql, a.Schema.TablesAllowed(), a.Schema.ColumnsByTable(), a.MaxLimit)
	if err != nil {
		if ge, ok := err.(*guard.Error); ok {
			return guard.Guarded{}, apperr.GuardRejection(string(ge.Kind), ge.Detail, ge.SQL)
		}
		a.logf("guard: unexpected error: %v", err)
		return guard.Guarded{}, apperr.Internal(err)
	}
	return guarded, nil
}

func plannerFailure(err error) *apperr.APIError {
	if pe, ok := err.(*planner.ParseError); ok {
		return apperr.PlannerParseError(pe.Raw, pe)
	}
	return apperr.LLMFailure("planner", err)
}

func (a *App) record(ctx context.Context, question, domain, sql string, rowCount int, succeeded bool, errText string, retried bool) {
	if a.PlanCache == nil {
		return
	}
	entry := plancache.Entry{
		Question:  question,
		Domain:    domain,
		SQL:       sql,
		RowCount:  rowCount,
		Succeeded: succeeded,
		ErrorText: errText,
		Retried:   retried,
		Timestamp: time.Now(),
	}
	if err := a.PlanCache.Record(ctx, entry); err != nil {
		a.logf("plan cache record failed: %v", err)
	}
}

func (a *App) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Logf(format, args...)
	}
}
