package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"nlsqld/executor"
	"nlsqld/llmclient"
)

const summarizerSystem = `You summarize Postgres query results for an end user in 1-2 sentences. Refer only to numbers that appear in the provided rows; never invent values. Be concise and direct.`

// summarize produces a short natural-language answer from rows via a
// second LLM call. On any failure it degrades gracefully to a canned
// "Returned N row(s)." answer rather than failing the request (§4.6 step 5,
// §7 propagation policy).
func summarize(ctx context.Context, chat llmclient.ChatCompletion, question string, rows []executor.Row) string {
	encoded, err := json.Marshal(rows)
	if err != nil {
		return canned(len(rows))
	}
	user := fmt.Sprintf("Question: %s\n\nRows (JSON):\n%s", question, encoded)

	text, err := chat.Complete(ctx, summarizerSystem, user)
	if err != nil {
		return canned(len(rows))
	}
	if len(text) == 0 {
		return canned(len(rows))
	}
	return text
}

func canned(n int) string {
	return fmt.Sprintf("Returned %d row(s).", n)
}
