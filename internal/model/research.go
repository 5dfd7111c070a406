package model

import "time"

// Mode selects the breadth of a research run.
type Mode string

const (
	ModeQuick      Mode = "quick"
	ModeExhaustive Mode = "exhaustive"
)

// ParseMode maps user input to a Mode, defaulting to quick.
func ParseMode(s string) Mode {
	if Mode(s) == ModeExhaustive {
		return ModeExhaustive
	}
	return ModeQuick
}

// ImageSourceHint records where on a page an image candidate was found.
type ImageSourceHint string

const (
	ImageFromMeta ImageSourceHint = "meta"
	ImageFromImg  ImageSourceHint = "img"
)

// ImageCandidate is an image URL mined from one fetched page.
// Width and Height are zero when the page did not declare them.
type ImageCandidate struct {
	URL         string          `json:"url"`
	ContextText string          `json:"context_text"`
	SourceHint  ImageSourceHint `json:"source_hint"`
	Width       int             `json:"width,omitempty"`
	Height      int             `json:"height,omitempty"`
}

// SelectedImage is an image chosen to illustrate the research bundle.
type SelectedImage struct {
	ImageURL    string `json:"image_url"`
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title"`
}

// ResearchPlan is the decomposition of a query produced by the planner.
type ResearchPlan struct {
	SubQuestions        []string `json:"sub_questions"`
	FollowUpQueries     []string `json:"follow_up_queries"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
}

// IsEmpty reports whether the plan carries no content at all.
func (p ResearchPlan) IsEmpty() bool {
	return len(p.SubQuestions) == 0 && len(p.FollowUpQueries) == 0 && len(p.ClarifyingQuestions) == 0
}

// CacheEntry is the bundle stored by the research cache.
type CacheEntry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Sources       []Source       `json:"sources"`
	RankedSources []RankedSource `json:"ranked_sources"`
	Plan          ResearchPlan   `json:"plan"`
	AnswerSummary string         `json:"answer_summary,omitempty"`
}

// Telemetry is a free-form map of run measurements. Values are strings,
// numbers or booleans. It is logged and emitted, never persisted.
type Telemetry map[string]any

// EventKind identifies a progress event.
type EventKind string

const (
	EventSearch   EventKind = "search"
	EventPlanning EventKind = "planning"
	EventRanking  EventKind = "ranking"
	EventImages   EventKind = "images"
	EventComplete EventKind = "complete"
)

// EventOrder is the fixed order in which progress events are emitted.
var EventOrder = []EventKind{EventSearch, EventPlanning, EventRanking, EventImages, EventComplete}

// ProgressEvent reports one stage boundary of a research run.
type ProgressEvent struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
	Payload any       `json:"payload,omitempty"`
}

// ResearchBundle is the result of one research run.
type ResearchBundle struct {
	RunID     string          `json:"run_id"`
	Query     string          `json:"query"`
	Mode      Mode            `json:"mode"`
	Sources   []RankedSource  `json:"sources"`
	Images    []SelectedImage `json:"images"`
	Plan      ResearchPlan    `json:"plan"`
	Telemetry Telemetry       `json:"telemetry"`
	FromCache bool            `json:"from_cache"`
}
