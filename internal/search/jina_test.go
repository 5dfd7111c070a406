package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/jina"
	jinamocks "github.com/sells-group/deep-research/pkg/jina/mocks"
)

func fastGuard(g *resilience.Guard) {
	g.Retry.InitialBackoff = time.Millisecond
	g.Retry.MaxBackoff = time.Millisecond
}

func TestJinaSearcher_MapsResults(t *testing.T) {
	mc := jinamocks.NewMockClient(t)
	mc.EXPECT().Search(mock.Anything, "solar capacity").Return(&jina.SearchResponse{
		Code: 200,
		Data: []jina.SearchResult{
			{Title: " IEA Report ", URL: "https://iea.org/solar", Description: "Capacity grew.", Content: "Full text"},
			{Title: "No URL"},
			{Title: "Second", URL: "https://b.com"},
			{Title: "Third", URL: "https://c.com"},
		},
	}, nil)

	s := NewJinaSearcher(mc, config.SearchConfig{TimeoutSecs: 5})
	got, err := s.Search(context.Background(), "solar capacity", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "IEA Report", got[0].Title)
	assert.Equal(t, "Capacity grew.", got[0].Snippet)
	assert.Equal(t, "Full text", got[0].PageContent)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "https://b.com", got[1].URL)
	assert.False(t, got[1].HasContent())
	assert.Less(t, got[1].Score, got[0].Score)
}

func TestJinaSearcher_WithContentOption(t *testing.T) {
	mc := jinamocks.NewMockClient(t)
	mc.EXPECT().Search(mock.Anything, "q", mock.Anything).Return(&jina.SearchResponse{}, nil)

	s := NewJinaSearcher(mc, config.SearchConfig{WithContent: true})
	got, err := s.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJinaSearcher_RetriesTransient(t *testing.T) {
	mc := jinamocks.NewMockClient(t)
	mc.EXPECT().Search(mock.Anything, "q").
		Return(nil, resilience.StatusError("jina", 503, []byte("busy"))).Once()
	mc.EXPECT().Search(mock.Anything, "q").
		Return(&jina.SearchResponse{Data: []jina.SearchResult{{URL: "https://a.com"}}}, nil).Once()

	s := NewJinaSearcher(mc, config.SearchConfig{Retries: 1})
	fastGuard(s.guard)

	got, err := s.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestJinaSearcher_PermanentError(t *testing.T) {
	mc := jinamocks.NewMockClient(t)
	mc.EXPECT().Search(mock.Anything, "q").
		Return(nil, resilience.StatusError("jina", 401, []byte("bad key"))).Once()

	s := NewJinaSearcher(mc, config.SearchConfig{Retries: 2})
	fastGuard(s.guard)

	_, err := s.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search: jina")
}
