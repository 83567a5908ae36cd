package synth

import "context"

// Provider turns formatted document excerpts into a synthesized answer.
type Provider interface {
	Synthesize(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
