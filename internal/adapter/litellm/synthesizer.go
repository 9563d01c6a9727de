package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/connecthq/connect-core/internal/domain/profile"
)

// Synthesizer implements the synthesizer oracle over the LiteLLM proxy.
type Synthesizer struct {
	client *Client
	model  string
}

// NewSynthesizer creates a synthesizer using the given model.
func NewSynthesizer(client *Client, model string) *Synthesizer {
	return &Synthesizer{client: client, model: model}
}

const synthesizeSystem = `You are a professional recruiter who presents candidate
profiles in a clear, structured way. Present every profile you are given,
plain text only, numbered sections per candidate.`

// Synthesize turns hydrated profiles into a prose answer.
func (s *Synthesizer) Synthesize(ctx context.Context, profiles []*profile.Profile, question string, totalMatches int) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original search query: %q\n", question)
	fmt.Fprintf(&sb, "Total matches found: %d\n", totalMatches)
	fmt.Fprintf(&sb, "Top profiles shown: %d\n\n", len(profiles))

	if len(profiles) == 0 {
		sb.WriteString("No profiles could be retrieved. Say so briefly and suggest rephrasing the query.\n")
	}
	for i, p := range profiles {
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			return "", fmt.Errorf("synthesize: marshal profile %d: %w", p.EntityID, err)
		}
		fmt.Fprintf(&sb, "Candidate %d (id %d): %s\n", i+1, p.EntityID, fields)
	}

	answer, err := s.client.complete(ctx, s.model, synthesizeSystem, sb.String(), false)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return answer, nil
}
