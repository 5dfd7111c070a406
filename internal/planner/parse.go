package planner

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/model"
)

// Stage records which parse step produced a plan.
type Stage string

const (
	// StageStrict means the whole response was valid JSON.
	StageStrict Stage = "strict"
	// StageExtracted means a JSON substring was recovered from the response.
	StageExtracted Stage = "extracted"
	// StageFallback means no plan could be parsed, or the call failed.
	StageFallback Stage = "fallback"
)

// ParseResult is a parsed plan tagged with the stage that produced it.
type ParseResult struct {
	Plan  model.ResearchPlan
	Stage Stage
}

const (
	maxSubQuestions        = 8
	maxFollowUpQueries     = 7
	maxClarifyingQuestions = 3
)

var (
	subQuestionKeys = []string{"sub_questions", "subQuestions", "subquestions"}
	followUpKeys    = []string{"follow_up_queries", "followUpQueries", "followups", "queries"}
	clarifyingKeys  = []string{"clarifying_questions", "clarifyingQuestions", "clarifications"}
)

// ParsePlan parses raw model output. Lists come back trimmed, deduplicated
// and capped, but follow-ups are not synthesized here.
func ParsePlan(raw string) ParseResult {
	text := stripFences(raw)
	if text == "" {
		return ParseResult{Stage: StageFallback}
	}

	if plan, ok := decodePlan(text); ok {
		return ParseResult{Plan: plan, Stage: StageStrict}
	}

	if sub := extractBalanced(text); sub != "" {
		if plan, ok := decodePlan(sub); ok {
			return ParseResult{Plan: plan, Stage: StageExtracted}
		}
	}

	return ParseResult{Stage: StageFallback}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodePlan accepts an object with any of the known key spellings, or a
// bare array of strings, which is read as follow-up queries.
func decodePlan(text string) (model.ResearchPlan, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		list, ok := decodeStrings(json.RawMessage(text))
		if !ok {
			return model.ResearchPlan{}, false
		}
		return model.ResearchPlan{FollowUpQueries: clean(list, maxFollowUpQueries)}, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return model.ResearchPlan{}, false
	}
	return model.ResearchPlan{
		SubQuestions:        clean(lookup(obj, subQuestionKeys), maxSubQuestions),
		FollowUpQueries:     clean(lookup(obj, followUpKeys), maxFollowUpQueries),
		ClarifyingQuestions: clean(lookup(obj, clarifyingKeys), maxClarifyingQuestions),
	}, true
}

func lookup(obj map[string]json.RawMessage, keys []string) []string {
	for _, k := range keys {
		if raw, ok := obj[k]; ok {
			list, _ := decodeStrings(raw)
			return list
		}
	}
	return nil
}

// decodeStrings reads a JSON array keeping only its string elements. A
// single string is treated as a one-element list.
func decodeStrings(raw json.RawMessage) ([]string, bool) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, false
		}
		return []string{single}, true
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// extractBalanced returns the first balanced {...} or [...] substring,
// honoring JSON string quoting, or "" when none closes.
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open := s[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// clean trims entries, drops empties and duplicates under query
// normalization, and caps the list.
func clean(list []string, limit int) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, min(len(list), limit))
	for _, item := range list {
		item = strings.Join(strings.Fields(item), " ")
		key := canon.NormalizeQuery(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
