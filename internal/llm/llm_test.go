package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/anthropic"
	"github.com/sells-group/deep-research/pkg/perplexity"
)

type fakeAnthropic struct {
	calls int
	errs  []error
	last  anthropic.MessageRequest
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	f.calls++
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"sub_questions":["a"]}`}},
	}, nil
}

type fakePerplexity struct {
	calls int
	err   error
	last  perplexity.ChatCompletionRequest
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.last = req
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: `{"follow_up_queries":["b"]}`}}},
	}, nil
}

func fastGuard(g *resilience.Guard) {
	g.Retry.InitialBackoff = time.Millisecond
	g.Retry.MaxBackoff = time.Millisecond
}

func TestAnthropicCompleter(t *testing.T) {
	fake := &fakeAnthropic{}
	c := NewAnthropicCompleter(fake, "claude-haiku-4-5-20251001", config.PlannerConfig{MaxTokens: 900})

	out, err := c.CompleteJSON(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"sub_questions":["a"]}`, out)
	assert.Equal(t, "claude-haiku-4-5-20251001", fake.last.Model)
	assert.Equal(t, int64(900), fake.last.MaxTokens)
	require.Len(t, fake.last.System, 1)
	assert.Equal(t, "system prompt", fake.last.System[0].Text)
	assert.Equal(t, "user prompt", fake.last.Messages[0].Content)
	require.NotNil(t, fake.last.Temperature)
	assert.InDelta(t, planTemperature, *fake.last.Temperature, 1e-9)
}

func TestAnthropicCompleter_RetriesTransient(t *testing.T) {
	fake := &fakeAnthropic{errs: []error{resilience.NewTransientError(errors.New("overloaded"), 529)}}
	c := NewAnthropicCompleter(fake, "m", config.PlannerConfig{Retries: 2})
	fastGuard(c.guard)

	_, err := c.CompleteJSON(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)
}

func TestAnthropicCompleter_PermanentError(t *testing.T) {
	fake := &fakeAnthropic{errs: []error{errors.New("bad request")}}
	c := NewAnthropicCompleter(fake, "m", config.PlannerConfig{Retries: 2})
	fastGuard(c.guard)

	_, err := c.CompleteJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: anthropic completion")
	assert.Equal(t, 1, fake.calls)
}

func TestPerplexityCompleter(t *testing.T) {
	fake := &fakePerplexity{}
	c := NewPerplexityCompleter(fake, config.PlannerConfig{MaxTokens: 500})

	out, err := c.CompleteJSON(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"follow_up_queries":["b"]}`, out)
	require.Len(t, fake.last.Messages, 2)
	assert.Equal(t, "system", fake.last.Messages[0].Role)
	assert.Equal(t, "usr", fake.last.Messages[1].Content)
	require.NotNil(t, fake.last.MaxTokens)
	assert.Equal(t, 500, *fake.last.MaxTokens)
	require.NotNil(t, fake.last.ResponseFormat)
	assert.Equal(t, "json_schema", fake.last.ResponseFormat.Type)
	assert.JSONEq(t, string(PlanSchema), string(fake.last.ResponseFormat.JSONSchema.Schema))
}

func TestPerplexityCompleter_Error(t *testing.T) {
	fake := &fakePerplexity{err: errors.New("boom")}
	c := NewPerplexityCompleter(fake, config.PlannerConfig{})

	_, err := c.CompleteJSON(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: perplexity completion")
	assert.Nil(t, fake.last.MaxTokens)
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, timeout(0))
	assert.Equal(t, 5*time.Second, timeout(5))
}
