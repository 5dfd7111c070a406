package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeExhaustive, ParseMode("exhaustive"))
	assert.Equal(t, ModeQuick, ParseMode("quick"))
	assert.Equal(t, ModeQuick, ParseMode(""))
	assert.Equal(t, ModeQuick, ParseMode("EXHAUSTIVE"))
}

func TestResearchPlanIsEmpty(t *testing.T) {
	assert.True(t, ResearchPlan{}.IsEmpty())
	assert.False(t, ResearchPlan{ClarifyingQuestions: []string{"which year?"}}.IsEmpty())
}

func TestSources(t *testing.T) {
	ranked := []RankedSource{
		{Source: Source{URL: "https://a.example", PageContent: "text"}, SourceID: "S1"},
		{Source: Source{URL: "https://b.example"}, SourceID: "S2"},
	}
	got := Sources(ranked)
	assert.Equal(t, []Source{ranked[0].Source, ranked[1].Source}, got)
	assert.True(t, got[0].HasContent())
	assert.False(t, got[1].HasContent())
}
