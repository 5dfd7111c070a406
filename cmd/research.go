package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/research"
)

var (
	researchQuery   string
	researchMode    string
	researchJSON    bool
	researchNoCache bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run one research query and print the ranked sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initResearch(ctx, cfg, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		progress := cmd.ErrOrStderr()

		req := research.Request{
			Query:     researchQuery,
			Mode:      model.ParseMode(researchMode),
			SkipCache: researchNoCache,
		}
		bundle, err := env.Orchestrator.Run(ctx, req, func(ev model.ProgressEvent) {
			if ev.Kind == model.EventComplete {
				return
			}
			fmt.Fprintf(progress, "[%s] %s\n", ev.Kind, ev.Message) //nolint:errcheck
		})
		if err != nil {
			return eris.Wrap(err, "research")
		}

		zap.L().Info("research complete",
			zap.String("run_id", bundle.RunID),
			zap.Int("sources", len(bundle.Sources)),
			zap.Int("images", len(bundle.Images)),
			zap.Bool("from_cache", bundle.FromCache),
		)

		if researchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(bundle), "encode bundle")
		}
		return writeBundle(out, bundle)
	},
}

// writeBundle prints a human-readable summary of bundle.
func writeBundle(w io.Writer, b *model.ResearchBundle) error {
	ew := &errWriter{w: w}
	ew.printf("Query: %s (%s)\n", b.Query, b.Mode)
	if b.FromCache {
		ew.printf("Served from cache\n")
	}

	if len(b.Plan.SubQuestions) > 0 {
		ew.printf("\nSub-questions:\n")
		for _, q := range b.Plan.SubQuestions {
			ew.printf("  - %s\n", q)
		}
	}
	if len(b.Plan.ClarifyingQuestions) > 0 {
		ew.printf("\nClarifying questions:\n")
		for _, q := range b.Plan.ClarifyingQuestions {
			ew.printf("  - %s\n", q)
		}
	}

	ew.printf("\nSources (%d):\n", len(b.Sources))
	for _, s := range b.Sources {
		ew.printf("  [%s] %.3f  %s\n", s.SourceID, s.HybridScore, s.Title)
		ew.printf("        %s\n", s.URL)
	}

	if len(b.Images) > 0 {
		ew.printf("\nImages (%d):\n", len(b.Images))
		for _, img := range b.Images {
			ew.printf("  %s\n        from %s\n", img.ImageURL, img.SourceURL)
		}
	}
	return ew.err
}

// errWriter remembers the first write error so formatting code can stay
// linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func init() {
	researchCmd.Flags().StringVar(&researchQuery, "query", "", "research query")
	researchCmd.Flags().StringVar(&researchMode, "mode", string(model.ModeQuick), "research mode (quick or exhaustive)")
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "print the bundle as JSON")
	researchCmd.Flags().BoolVar(&researchNoCache, "no-cache", false, "skip the cache lookup")
	_ = researchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(researchCmd)
}
