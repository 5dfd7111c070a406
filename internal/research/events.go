package research

import "github.com/sells-group/deep-research/internal/model"

// Emitter receives progress events in order. It is called from the
// goroutine running Run and must not block for long.
type Emitter func(model.ProgressEvent)

// SearchProgress is the payload of the search event.
type SearchProgress struct {
	Query   string `json:"query"`
	Sources int    `json:"sources"`
}

// PlanningProgress is the payload of the planning event.
type PlanningProgress struct {
	Plan  model.ResearchPlan `json:"plan"`
	Stage string             `json:"stage"`
}

// RankingProgress is the payload of the ranking event.
type RankingProgress struct {
	Candidates int                  `json:"candidates"`
	Sources    []model.RankedSource `json:"sources"`
}

// ImagesProgress is the payload of the images event.
type ImagesProgress struct {
	Images []model.SelectedImage `json:"images"`
}

// emitter wraps an Emitter so a nil one is a no-op.
type emitter struct {
	fn Emitter
}

func (e emitter) emit(kind model.EventKind, msg string, payload any) {
	if e.fn == nil {
		return
	}
	e.fn(model.ProgressEvent{Kind: kind, Message: msg, Payload: payload})
}
