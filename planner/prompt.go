package planner

import "fmt"

const replyShapeInstruction = `Respond with JSON only, no prose, no markdown fences. Either:
  {"sql": "SELECT ..."}
or the richer shape:
  {"domain": "...", "reason": "...", "sql": "SELECT ...", "presentation": {"style": "concise|bulleted|headline", "include_fields": ["..."], "notes": "..."}}
"sql" is required and must be non-empty; every other field is optional.`

const constraintsText = `Constraints on the SQL you produce:
- Exactly one statement. CTEs (WITH ...) are allowed.
- No comments (-- or /* */), no trailing semicolon.
- Portable Postgres only; reference only the tables and columns listed below.
- Always include an explicit LIMIT; it will be clamped to 500 if larger.`

const modelingRules = `Modeling rules:
- Include an explicit protocol filter when the declared table has a protocol column.
- Uppercase asset ticker symbols (e.g. usdc -> USDC).
- Map the ticker ETH to WETH.
- Columns documented as fractions hold values in [0,1]; a question phrased as a percent (e.g. "80%") means the fraction 0.8, not the literal number 80.`

// systemPrompt builds the system message: modeling rules, general SQL
// constraints, the expected JSON reply shape, and the full schema
// document — the only picture of the database the model gets. It carries
// no per-table routing rules; the model picks tables from the schema
// document alone.
func systemPrompt(schemaDoc string) string {
	return fmt.Sprintf(
		"You are a SQL planner for a read-only analytics service over Postgres.\n\n%s\n\n%s\n\n%s\n\nDeclared schema:\n%s",
		constraintsText, modelingRules, replyShapeInstruction, schemaDoc,
	)
}

// userPrompt wraps the normalized question for the initial planning call.
func userPrompt(question string) string {
	return fmt.Sprintf("Question: %s\n\nRespond with JSON only.", question)
}

// retryUserPrompt includes the previous attempt's SQL and the database
// error verbatim, and instructs the model to avoid the failing construct.
func retryUserPrompt(question, previousSQL, dbError string) string {
	return fmt.Sprintf(
		"Question: %s\n\nYour previous SQL failed to execute. Produce a corrected query that avoids the failing construct.\n\nPrevious SQL:\n%s\n\nDatabase error:\n%s\n\nRespond with JSON only.",
		question, previousSQL, dbError,
	)
}
