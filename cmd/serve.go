package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/research"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second

	// eventError is streamed in place of the complete event when a run fails.
	eventError model.EventKind = "error"
)

var servePort int

// runner executes research requests. *research.Orchestrator satisfies it.
type runner interface {
	Run(ctx context.Context, req research.Request, emit research.Emitter) (*model.ResearchBundle, error)
}

// researchRequest is the body of POST /v1/research.
type researchRequest struct {
	Query     string         `json:"query"`
	Mode      string         `json:"mode"`
	Sources   []model.Source `json:"sources,omitempty"`
	SkipCache bool           `json:"skip_cache"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		env, err := initResearch(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Orchestrator, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter mounts the health check and research endpoints.
func buildRouter(r runner, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Post("/v1/research", func(w http.ResponseWriter, req *http.Request) {
		handleResearch(w, req, r)
	})

	return router
}

// handleResearch runs one query and streams its progress events as
// newline-delimited JSON. The complete event carries the bundle. A client
// disconnect cancels the request context and abandons the run.
func handleResearch(w http.ResponseWriter, req *http.Request, r runner) {
	if r == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "research is not configured"})
		return
	}

	var body researchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Mode != "" && body.Mode != string(model.ModeQuick) && body.Mode != string(model.ModeExhaustive) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be quick or exhaustive"})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	stream := newEventStream(w)
	ctx := req.Context()
	reqID := middleware.GetReqID(ctx)

	bundle, err := r.Run(ctx, research.Request{
		Query:     body.Query,
		Mode:      model.ParseMode(body.Mode),
		Sources:   body.Sources,
		SkipCache: body.SkipCache,
	}, stream.send)
	if err != nil {
		if ctx.Err() != nil {
			zap.L().Info("research request abandoned", zap.String("request_id", reqID))
			return
		}
		zap.L().Error("research request failed", zap.String("request_id", reqID), zap.Error(err))
		stream.send(model.ProgressEvent{Kind: eventError, Message: err.Error()})
		return
	}

	zap.L().Info("research request complete",
		zap.String("request_id", reqID),
		zap.String("run_id", bundle.RunID),
		zap.Int("sources", len(bundle.Sources)),
		zap.Bool("from_cache", bundle.FromCache),
	)
}

// eventStream writes one JSON object per line and flushes after each.
type eventStream struct {
	enc     *json.Encoder
	flusher http.Flusher
	failed  bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	f, _ := w.(http.Flusher)
	return &eventStream{enc: json.NewEncoder(w), flusher: f}
}

func (s *eventStream) send(ev model.ProgressEvent) {
	if s.failed {
		return
	}
	if err := s.enc.Encode(ev); err != nil {
		zap.L().Debug("event stream write failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		s.failed = true
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
