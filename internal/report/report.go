package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/sift/internal/archive"
	"github.com/FranksOps/sift/internal/runner"
)

// Summary contains aggregated metrics about one batch of queries.
type Summary struct {
	TotalQueries    int
	FailedQueries   int
	TotalResults    int
	TotalMatches    int
	ResultsByEngine map[string]int
	ResultsByShape  map[string]int
	ByCategory      map[string]int
	// EngineErrors tallies unresponsive-engine reports across the whole
	// batch, per upstream engine.
	EngineErrors map[string]int
	// BlockPages tallies block and rate-limit pages hit across the
	// batch, per recognized source.
	BlockPages map[string]int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// GenerateSummary aggregates archived records and per-query outcomes into
// summary metrics.
func GenerateSummary(records []*archive.SearchRecord, outcomes []runner.QueryOutcome) Summary {
	s := Summary{
		ResultsByEngine: make(map[string]int),
		ResultsByShape:  make(map[string]int),
		ByCategory:      make(map[string]int),
		EngineErrors:    make(map[string]int),
		BlockPages:      make(map[string]int),
	}

	for _, o := range outcomes {
		s.TotalQueries++
		if o.Error != "" {
			s.FailedQueries++
		}
		s.TotalMatches += len(o.Matches)
		for engine, n := range o.EngineErrors {
			s.EngineErrors[engine] += n
		}
		for source, n := range o.BlockPages {
			s.BlockPages[source] += n
		}
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].FetchedAt
	s.EndTime = records[0].FetchedAt

	for _, r := range records {
		s.TotalResults++
		if r.Engine != "" {
			s.ResultsByEngine[r.Engine]++
		}
		s.ResultsByShape[r.Shape]++
		if r.Category != "" {
			s.ByCategory[r.Category]++
		}

		if r.FetchedAt.Before(s.StartTime) {
			s.StartTime = r.FetchedAt
		}
		if r.FetchedAt.After(s.EndTime) {
			s.EndTime = r.FetchedAt
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Sift Search Summary
-------------------
Time:           {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:       {{.Duration}}
Total Queries:  {{.TotalQueries}} ({{.FailedQueries}} failed)
Total Results:  {{.TotalResults}}
Term Matches:   {{.TotalMatches}}

Results By Engine:
{{- range $engine, $count := .ResultsByEngine}}
  {{$engine}}: {{$count}}
{{- else}}
  None
{{- end}}

Results By Category:
{{- range $cat, $count := .ByCategory}}
  {{$cat}}: {{$count}}
{{- else}}
  None
{{- end}}

Results By Shape:
{{- range $shape, $count := .ResultsByShape}}
  {{$shape}}: {{$count}}
{{- else}}
  None
{{- end}}

Engine Errors:
{{- range $engine, $count := .EngineErrors}}
  {{$engine}}: {{$count}}
{{- else}}
  None
{{- end}}

Block Pages:
{{- range $source, $count := .BlockPages}}
  {{$source}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Sift Search Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Sift Search Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Total Queries</div>
    <div class="stat-val">{{.TotalQueries}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .FailedQueries 0}}red{{else}}green{{end}};">{{.FailedQueries}}</div>
  </div>
  <div class="stat-card">
    <div>Total Results</div>
    <div class="stat-val">{{.TotalResults}}</div>
  </div>
  <div class="stat-card">
    <div>Term Matches</div>
    <div class="stat-val">{{.TotalMatches}}</div>
  </div>

  <h3>Results By Engine</h3>
  <table>
    <tr><th>Engine</th><th>Count</th></tr>
    {{- range $engine, $count := .ResultsByEngine}}
    <tr><td>{{$engine}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Results By Category</h3>
  <table>
    <tr><th>Category</th><th>Count</th></tr>
    {{- range $cat, $count := .ByCategory}}
    <tr><td>{{$cat}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Engine Errors</h3>
  <table>
    <tr><th>Engine</th><th>Count</th></tr>
    {{- range $engine, $count := .EngineErrors}}
    <tr><td>{{$engine}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Block Pages</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $source, $count := .BlockPages}}
    <tr><td>{{$source}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}
