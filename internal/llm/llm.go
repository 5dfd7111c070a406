// Package llm adapts the LLM API clients to the single JSON-completion call
// the query planner needs.
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/anthropic"
	"github.com/sells-group/deep-research/pkg/perplexity"
)

const defaultTimeout = 30 * time.Second

// planTemperature keeps planner output close to deterministic.
const planTemperature = 0.2

// AnthropicCompleter calls the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	guard     *resilience.Guard
}

// NewAnthropicCompleter builds a completer from the planner settings.
func NewAnthropicCompleter(client anthropic.Client, model string, pc config.PlannerConfig) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:    client,
		model:     model,
		maxTokens: int64(pc.MaxTokens),
		timeout:   timeout(pc.TimeoutSecs),
		guard:     resilience.NewGuard("anthropic", pc.Retries),
	}
}

// CompleteJSON implements Completer.
func (a *AnthropicCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	temp := planTemperature
	resp, err := resilience.Call(ctx, a.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       a.model,
			MaxTokens:   a.maxTokens,
			System:      []anthropic.SystemBlock{{Text: system}},
			Messages:    []anthropic.Message{{Role: "user", Content: user}},
			Temperature: &temp,
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic completion")
	}

	resp.Usage.LogCost(a.model, "planning")
	return resp.Text(), nil
}

// PerplexityCompleter calls the Perplexity chat completions API with a JSON
// response format.
type PerplexityCompleter struct {
	client    perplexity.Client
	maxTokens int
	timeout   time.Duration
	guard     *resilience.Guard
}

// NewPerplexityCompleter builds a completer from the planner settings.
func NewPerplexityCompleter(client perplexity.Client, pc config.PlannerConfig) *PerplexityCompleter {
	return &PerplexityCompleter{
		client:    client,
		maxTokens: pc.MaxTokens,
		timeout:   timeout(pc.TimeoutSecs),
		guard:     resilience.NewGuard("perplexity", pc.Retries),
	}
}

// CompleteJSON implements Completer.
func (p *PerplexityCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temp := planTemperature
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    &temp,
		ResponseFormat: &perplexity.ResponseFormat{Type: "json_schema", JSONSchema: &perplexity.JSONSchema{Schema: PlanSchema}},
	}
	if p.maxTokens > 0 {
		req.MaxTokens = &p.maxTokens
	}

	resp, err := resilience.Call(ctx, p.guard, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return p.client.ChatCompletion(ctx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: perplexity completion")
	}

	zap.L().Debug("llm usage",
		zap.String("provider", "perplexity"),
		zap.String("stage", "planning"),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Text(), nil
}

// PlanSchema is the JSON schema of a research plan, sent to providers that
// support structured output.
var PlanSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "sub_questions": {"type": "array", "items": {"type": "string"}, "maxItems": 8},
    "follow_up_queries": {"type": "array", "items": {"type": "string"}, "maxItems": 7},
    "clarifying_questions": {"type": "array", "items": {"type": "string"}, "maxItems": 3}
  },
  "required": ["sub_questions", "follow_up_queries"]
}`)

func timeout(secs int) time.Duration {
	if secs <= 0 {
		return defaultTimeout
	}
	return time.Duration(secs) * time.Second
}
