package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/research"
)

type fakeRunner struct {
	got    research.Request
	events []model.ProgressEvent
	bundle *model.ResearchBundle
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, req research.Request, emit research.Emitter) (*model.ResearchBundle, error) {
	f.got = req
	for _, ev := range f.events {
		emit(ev)
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emit(model.ProgressEvent{Kind: model.EventComplete, Message: "done", Payload: f.bundle})
	return f.bundle, nil
}

func decodeLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line), "line %q", sc.Text())
		out = append(out, line)
	}
	return out
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	router := buildRouter(nil, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_ResearchStreamsEvents(t *testing.T) {
	fr := &fakeRunner{
		events: []model.ProgressEvent{
			{Kind: model.EventSearch, Message: "searched"},
			{Kind: model.EventPlanning, Message: "planned"},
			{Kind: model.EventRanking, Message: "ranked"},
			{Kind: model.EventImages, Message: "illustrated"},
		},
		bundle: &model.ResearchBundle{RunID: "run-1", Query: "heat pumps", Mode: model.ModeExhaustive},
	}
	router := buildRouter(fr, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/v1/research",
		strings.NewReader(`{"query":"heat pumps","mode":"exhaustive","skip_cache":true}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-ndjson", rr.Header().Get("Content-Type"))
	assert.True(t, rr.Flushed)

	assert.Equal(t, "heat pumps", fr.got.Query)
	assert.Equal(t, model.ModeExhaustive, fr.got.Mode)
	assert.True(t, fr.got.SkipCache)

	lines := decodeLines(t, rr.Body.String())
	require.Len(t, lines, 5)
	var kinds []string
	for _, l := range lines {
		kinds = append(kinds, l["kind"].(string))
	}
	assert.Equal(t, []string{"search", "planning", "ranking", "images", "complete"}, kinds)

	payload, ok := lines[4]["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", payload["run_id"])
}

func TestBuildRouter_ResearchProvidedSources(t *testing.T) {
	fr := &fakeRunner{bundle: &model.ResearchBundle{}}
	router := buildRouter(fr, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/v1/research",
		strings.NewReader(`{"query":"q","sources":[{"title":"A","url":"https://a.example/1"}]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, fr.got.Sources, 1)
	assert.Equal(t, "https://a.example/1", fr.got.Sources[0].URL)
	assert.Equal(t, model.ModeQuick, fr.got.Mode)
}

func TestBuildRouter_ResearchBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"query":`, want: "invalid request body"},
		{name: "unknown_field", body: `{"question":"x"}`, want: "invalid request body"},
		{name: "bad_mode", body: `{"query":"x","mode":"deep"}`, want: "mode must be quick or exhaustive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := buildRouter(&fakeRunner{}, []string{"*"})
			req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestBuildRouter_ResearchFailureStreamsError(t *testing.T) {
	fr := &fakeRunner{
		events: []model.ProgressEvent{{Kind: model.EventSearch, Message: "searched"}},
		err:    errors.New("boom"),
	}
	router := buildRouter(fr, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(`{"query":"q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	lines := decodeLines(t, rr.Body.String())
	require.Len(t, lines, 2)
	assert.Equal(t, "error", lines[1]["kind"])
	assert.Equal(t, "boom", lines[1]["message"])
}

func TestBuildRouter_ResearchCanceledWritesNoError(t *testing.T) {
	fr := &fakeRunner{bundle: &model.ResearchBundle{}}
	router := buildRouter(fr, []string{"*"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(`{"query":"q"}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, strings.TrimSpace(rr.Body.String()))
}

func TestBuildRouter_ResearchNotConfigured(t *testing.T) {
	router := buildRouter(nil, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(`{"query":"q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	router := buildRouter(nil, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/v1/research", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_UnknownRoute(t *testing.T) {
	router := buildRouter(nil, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/v2/nothing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
