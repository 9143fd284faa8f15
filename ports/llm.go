package ports

import "context"

// DecodingParams are the sampling settings fixed per pre-registration.
// They never vary within a run.
type DecodingParams struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// Seed is forwarded to endpoints that support sampled-seed pinning; 0
	// leaves it unset.
	Seed int64 `json:"seed,omitempty"`
}

// ModelResponse is one raw completion with usage accounting
type ModelResponse struct {
	Content     string
	TotalTokens int
	Truncated   bool
}

// ModelClient is the external model endpoint collaborator. The harness
// treats it as a black-box capability: one prompt in, one raw response out.
type ModelClient interface {
	Query(ctx context.Context, model string, prompt string, params DecodingParams) (*ModelResponse, error)
}
