package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/jina"
)

// errNeedsFallback marks a Jina response that arrived but is unusable.
var errNeedsFallback = eris.New("jina: response needs fallback")

// JinaScraper wraps a Jina Reader client as a Scraper. Three consecutive
// failures open its circuit for a minute so the chain skips straight to the
// next scraper.
type JinaScraper struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaScraper creates a JinaScraper from a Jina client.
func NewJinaScraper(client jina.Client) *JinaScraper {
	return &JinaScraper{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			ShouldTrip: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("scrape: jina circuit breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (j *JinaScraper) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, errNeedsFallback
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	finalURL := resp.Data.URL
	if finalURL == "" {
		finalURL = targetURL
	}
	return &Page{
		URL:        finalURL,
		Title:      resp.Data.Title,
		Text:       resp.Data.Content,
		StatusCode: 200,
		Source:     j.Name(),
	}, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// needsFallback reports whether a Jina response lacks usable content or is
// a challenge page.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minPageBytes {
		return true
	}
	if len(content) >= 1000 {
		return false
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
