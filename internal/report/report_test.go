package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/sift/internal/analyzer"
	"github.com/FranksOps/sift/internal/archive"
	"github.com/FranksOps/sift/internal/runner"
)

func TestGenerateSummary(t *testing.T) {
	now := time.Now()

	records := []*archive.SearchRecord{
		{
			Query:     "golang",
			Shape:     "legacy",
			Engine:    "duckduckgo",
			Category:  "general",
			FetchedAt: now,
		},
		{
			Query:     "golang",
			Shape:     "main",
			Engine:    "brave",
			Category:  "it",
			FetchedAt: now.Add(1 * time.Second),
		},
		{
			Query:     "rust",
			Shape:     "legacy",
			Engine:    "duckduckgo",
			Category:  "general",
			FetchedAt: now.Add(2 * time.Second),
		},
	}

	outcomes := []runner.QueryOutcome{
		{
			Query:        "golang",
			Results:      2,
			Matches:      []analyzer.TermMatch{{Term: "goroutines"}},
			EngineErrors: map[string]int{"qwant": 2},
			BlockPages:   map[string]int{"SearXNG limiter": 1},
		},
		{Query: "rust", Results: 1, EngineErrors: map[string]int{"qwant": 1, "bing": 1}},
		{Query: "zig", Error: "transport: POST https://searx.example.com/search: context deadline exceeded"},
	}

	summary := GenerateSummary(records, outcomes)

	if summary.TotalQueries != 3 {
		t.Errorf("expected 3 total queries, got %d", summary.TotalQueries)
	}
	if summary.FailedQueries != 1 {
		t.Errorf("expected 1 failed query, got %d", summary.FailedQueries)
	}
	if summary.TotalResults != 3 {
		t.Errorf("expected 3 total results, got %d", summary.TotalResults)
	}
	if summary.TotalMatches != 1 {
		t.Errorf("expected 1 term match, got %d", summary.TotalMatches)
	}
	if summary.ResultsByEngine["duckduckgo"] != 2 {
		t.Errorf("expected 2 duckduckgo results, got %d", summary.ResultsByEngine["duckduckgo"])
	}
	if summary.ResultsByShape["legacy"] != 2 || summary.ResultsByShape["main"] != 1 {
		t.Errorf("unexpected shape tallies: %v", summary.ResultsByShape)
	}
	if summary.ByCategory["general"] != 2 {
		t.Errorf("expected 2 general results, got %d", summary.ByCategory["general"])
	}
	if summary.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", summary.Duration)
	}
	if summary.EngineErrors["qwant"] != 3 || summary.EngineErrors["bing"] != 1 {
		t.Errorf("unexpected engine-error tallies: %v", summary.EngineErrors)
	}
	if summary.BlockPages["SearXNG limiter"] != 1 {
		t.Errorf("unexpected block-page tallies: %v", summary.BlockPages)
	}
}

func TestGenerateSummaryEmpty(t *testing.T) {
	summary := GenerateSummary(nil, nil)
	if summary.TotalQueries != 0 || summary.TotalResults != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := Summary{
		TotalQueries: 5,
	}
	var buf bytes.Buffer
	err := WriteJSON(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `"TotalQueries": 5`) {
		t.Errorf("expected JSON to contain TotalQueries: 5")
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		TotalQueries:  5,
		FailedQueries: 1,
		TotalResults:  42,
		ResultsByEngine: map[string]int{
			"duckduckgo": 30,
			"brave":      12,
		},
		EngineErrors: map[string]int{"qwant": 4},
		BlockPages:   map[string]int{"Cloudflare": 2},
	}
	var buf bytes.Buffer
	err := WriteText(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total Queries:  5 (1 failed)") {
		t.Errorf("expected text to contain the query tally, got:\n%s", out)
	}
	if !strings.Contains(out, "duckduckgo: 30") {
		t.Errorf("expected text to contain duckduckgo: 30")
	}
	if !strings.Contains(out, "Engine Errors:") || !strings.Contains(out, "qwant: 4") {
		t.Errorf("expected text to contain the engine-error tally, got:\n%s", out)
	}
	if !strings.Contains(out, "Block Pages:") || !strings.Contains(out, "Cloudflare: 2") {
		t.Errorf("expected text to contain the block-page tally, got:\n%s", out)
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		TotalQueries: 10,
		TotalResults: 80,
		ResultsByEngine: map[string]int{
			"qwant": 15,
		},
	}
	var buf bytes.Buffer
	err := WriteHTML(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Sift Search Report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "qwant") {
		t.Errorf("expected HTML to contain qwant")
	}
	if !strings.Contains(out, "Engine Errors") || !strings.Contains(out, "Block Pages") {
		t.Errorf("expected HTML to contain the diagnostics tables")
	}
}
