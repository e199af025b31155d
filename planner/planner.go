package planner

import (
	"context"
	"fmt"

	"nlsqld/llmclient"
)

// Planner builds prompts from a schema document, invokes a ChatCompletion
// model, and parses its structured reply into a Plan.
type Planner struct {
	chat      llmclient.ChatCompletion
	schemaDoc string
}

// New constructs a Planner bound to chat and the given schema document.
func New(chat llmclient.ChatCompletion, schemaDoc string) *Planner {
	return &Planner{chat: chat, schemaDoc: schemaDoc}
}

// Plan issues the initial planning call for question.
func (p *Planner) Plan(ctx context.Context, question string) (Plan, error) {
	raw, err := p.chat.Complete(ctx, systemPrompt(p.schemaDoc), userPrompt(question))
	if err != nil {
		return Plan{}, fmt.Errorf("planner: chat completion: %w", err)
	}
	return parseReply(raw)
}

// Retry regenerates a Plan after previousSQL failed to execute with
// dbError, which the caller must already have confirmed is Recoverable.
func (p *Planner) Retry(ctx context.Context, question, previousSQL, dbError string) (Plan, error) {
	raw, err := p.chat.Complete(ctx, systemPrompt(p.schemaDoc), retryUserPrompt(question, previousSQL, dbError))
	if err != nil {
		return Plan{}, fmt.Errorf("planner: chat completion: %w", err)
	}
	return parseReply(raw)
}
