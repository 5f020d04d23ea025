// Package runner executes batches of search queries concurrently,
// archiving every decoded result and scanning result text for terms of
// interest.
package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/FranksOps/sift/internal/analyzer"
	"github.com/FranksOps/sift/internal/archive"
	"github.com/FranksOps/sift/pkg/searx"
	"golang.org/x/sync/errgroup"
)

// Config provides parameters for a batch run.
type Config struct {
	// Client issues the search requests. Required.
	Client *searx.Client
	// Backend, when set, receives one record per decoded result. Save
	// failures are logged and do not abort the run.
	Backend archive.Backend
	// Concurrency is the number of queries in flight at once (0 = 3).
	Concurrency int
	// PerQuery is how many results to collect per query (0 = 10).
	PerQuery int
	// Terms are scanned for in each result's title and snippet.
	Terms []string
	// Params, when set, is the template applied to every query: the
	// query string and format are filled in per request, everything
	// else (categories, engines, language) is taken as-is.
	Params *searx.Params
}

// QueryOutcome summarizes one query of a batch.
type QueryOutcome struct {
	Query   string               `json:"query"`
	Results int                  `json:"results"`
	Matches []analyzer.TermMatch `json:"matches,omitempty"`
	// EngineErrors tallies upstream engines the instance reported as
	// unresponsive while serving this query's pages.
	EngineErrors map[string]int `json:"engine_errors,omitempty"`
	// BlockPages tallies block or rate-limit pages hit along the way,
	// by recognized source.
	BlockPages map[string]int `json:"block_pages,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Runner coordinates concurrent query execution.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Runner.
func New(cfg Config, logger *slog.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.PerQuery <= 0 {
		cfg.PerQuery = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run executes all queries and returns one outcome per query, in input
// order. A query that fails is reported in its outcome rather than
// aborting the batch; Run itself only errors when the context is
// cancelled before all queries finish.
func (r *Runner) Run(ctx context.Context, queries []string) ([]QueryOutcome, error) {
	outcomes := make([]QueryOutcome, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	// Save calls may hit a single file-backed store, serialize them.
	var saveMu sync.Mutex

	for i, query := range queries {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.runQuery(gCtx, query, &saveMu)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) runQuery(ctx context.Context, query string, saveMu *sync.Mutex) QueryOutcome {
	outcome := QueryOutcome{Query: query}

	r.logger.Debug("running query", "query", query, "num", r.cfg.PerQuery)

	builder := r.cfg.Client.Search(query)
	if r.cfg.Params != nil {
		p := *r.cfg.Params
		p.Query = query
		if p.Format == "" {
			p.Format = searx.FormatJSON
		}
		builder.Params(p)
	}

	results, err := builder.SendGetNum(ctx, r.cfg.PerQuery)
	if err != nil {
		r.logger.Error("query failed", "query", query, "err", err)
		outcome.Error = err.Error()
		// SendGetNum returns what accumulated before the failure, keep it.
	}
	outcome.Results = len(results)

	stats := builder.Stats()
	if len(stats.UnresponsiveEngines) > 0 {
		outcome.EngineErrors = stats.UnresponsiveEngines
	}
	if len(stats.BlockPages) > 0 {
		outcome.BlockPages = stats.BlockPages
	}

	for i, res := range results {
		if r.cfg.Backend != nil {
			record := archive.FromResult(query, i, res)
			saveMu.Lock()
			saveErr := r.cfg.Backend.Save(ctx, record)
			saveMu.Unlock()
			if saveErr != nil {
				r.logger.Error("failed to save result", "query", query, "url", res.URL(), "err", saveErr)
			}
		}

		if len(r.cfg.Terms) > 0 {
			text := res.Title() + ". " + res.Content()
			outcome.Matches = append(outcome.Matches, analyzer.FindTermMatches(text, res.URL(), r.cfg.Terms)...)
		}
	}

	r.logger.Info("query done", "query", query, "results", outcome.Results, "matches", len(outcome.Matches))
	return outcome
}
