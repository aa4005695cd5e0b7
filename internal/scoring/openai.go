package scoring

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible completions endpoint
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAICapability scores text through the /completions endpoint with
// echo=true and logprobs, as served by vLLM and similar inference servers.
// The log-likelihood is the mean log-probability of the prompt tokens after
// the first, which equals the negative causal language-model loss.
type OpenAICapability struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAICapability creates the capability
func NewOpenAICapability(cfg OpenAIConfig) (*OpenAICapability, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("scoring model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAICapability{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Score returns the mean token log-probability of text
func (c *OpenAICapability) Score(ctx context.Context, text string) (float64, error) {
	if text == "" {
		return 0, fmt.Errorf("text is empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       c.model,
		Prompt:      text,
		Echo:        true,
		LogProbs:    1,
		MaxTokens:   1,
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("completion returned no choices")
	}

	return promptLogLikelihood(resp.Choices[0].LogProbs, len(text))
}

// promptLogLikelihood averages the echoed prompt token log-probabilities.
// Tokens at or past promptLen were generated and are ignored; the first token
// has no conditional probability.
func promptLogLikelihood(lp openai.LogprobResult, promptLen int) (float64, error) {
	n := len(lp.TokenLogprobs)
	if len(lp.TextOffset) == n {
		for i, off := range lp.TextOffset {
			if off >= promptLen {
				n = i
				break
			}
		}
	}

	if n < 2 {
		return 0, fmt.Errorf("text has %d tokens, need at least 2", n)
	}

	var sum float64
	for _, v := range lp.TokenLogprobs[1:n] {
		sum += float64(v)
	}
	return sum / float64(n-1), nil
}
