// Package planner decomposes a research query into sub-questions and
// follow-up searches with a single LLM call. Planner failures never block a
// run: they degrade to templated follow-up queries.
package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/model"
)

// DefaultSeeds is how many warm-up sources are summarised into the prompt.
const DefaultSeeds = 6

const seedSnippetChars = 280

// Completer performs one JSON-instructed completion and returns the raw text.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Planner builds research plans.
type Planner struct {
	completer Completer
	seeds     int
}

// New creates a Planner. A nil completer skips the LLM call and always
// produces the fallback plan. seeds <= 0 uses DefaultSeeds.
func New(c Completer, seeds int) *Planner {
	if seeds <= 0 {
		seeds = DefaultSeeds
	}
	return &Planner{completer: c, seeds: seeds}
}

const systemPrompt = `You are a research planner. Break the user's question into focused sub-questions and web search queries.
Respond with JSON only, no prose and no markdown, using exactly this shape:
{"sub_questions": [string], "follow_up_queries": [string], "clarifying_questions": [string]}
Rules:
- at most 8 sub_questions, 7 follow_up_queries and 3 clarifying_questions
- follow_up_queries are short search-engine queries, not questions
- write in the language of the user's question
- clarifying_questions only when the question is genuinely ambiguous`

// Plan asks the completer for a plan and finalizes it. The result always
// carries follow-up queries when the query itself is non-empty.
func (p *Planner) Plan(ctx context.Context, query string, seeds []model.Source) ParseResult {
	res := ParseResult{Stage: StageFallback}

	if p.completer != nil {
		raw, err := p.completer.CompleteJSON(ctx, systemPrompt, p.userPrompt(query, seeds))
		if err != nil {
			zap.L().Warn("planner: completion failed, using fallback plan",
				zap.String("query", query),
				zap.Error(err),
			)
		} else {
			res = ParsePlan(raw)
			if res.Stage == StageFallback {
				zap.L().Warn("planner: unparseable plan, using fallback",
					zap.String("query", query),
					zap.Int("response_chars", len(raw)),
				)
			}
		}
	}

	res.Plan = Finalize(query, res.Plan)
	return res
}

// Finalize fills in follow-up queries when the plan has none: one per
// sub-question first, then templates built from the raw query.
func Finalize(query string, plan model.ResearchPlan) model.ResearchPlan {
	if len(plan.FollowUpQueries) > 0 {
		return plan
	}

	synth := make([]string, 0, len(plan.SubQuestions))
	for _, sq := range plan.SubQuestions {
		synth = append(synth, "recent data and evidence about "+sq)
	}
	plan.FollowUpQueries = clean(synth, maxFollowUpQueries)
	if len(plan.FollowUpQueries) > 0 {
		return plan
	}

	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return plan
	}
	plan.FollowUpQueries = []string{
		q + " latest data",
		q + " official statistics",
		q + " expert analysis",
	}
	return plan
}

func (p *Planner) userPrompt(query string, seeds []model.Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(query))

	if len(seeds) > p.seeds {
		seeds = seeds[:p.seeds]
	}
	if len(seeds) > 0 {
		b.WriteString("\nInitial search results:\n")
		for i, s := range seeds {
			snippet := s.Snippet
			if snippet == "" {
				snippet = s.PageContent
			}
			fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, s.Title, s.URL, truncate(snippet, seedSnippetChars))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

