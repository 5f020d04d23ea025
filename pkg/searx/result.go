package searx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Priority mirrors the per-result priority hint. On the wire, none is the
// empty string.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	switch v := Priority(s); v {
	case PriorityNone, PriorityHigh, PriorityLow:
		*p = v
		return nil
	default:
		return fmt.Errorf("priority: unknown value %q", s)
	}
}

// StringList is a []string that decodes JSON null as an empty list, so the
// decoded model never carries a nil engines list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = StringList{}
		return nil
	}
	var v []string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		v = []string{}
	}
	*l = v
	return nil
}

// IntList is an []int with the same null-to-empty behavior as StringList.
type IntList []int

func (l *IntList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = IntList{}
		return nil
	}
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		v = []int{}
	}
	*l = v
	return nil
}

// Timestamp parses the naive datetime strings instances emit for
// publishedDate. The wire format carries no timezone; values are taken
// as-is.
type Timestamp struct {
	time.Time
}

var timestampFormats = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("publishedDate: %w", err)
	}
	for _, layout := range timestampFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("publishedDate: unrecognized datetime %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// LegacyResult is the narrower per-result shape emitted by older instance
// versions.
type LegacyResult struct {
	URL           *string    `json:"url"`
	Template      string     `json:"template"`
	Engine        string     `json:"engine"`
	ParsedURL     []string   `json:"parsed_url,omitempty"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	ImgSrc        string     `json:"img_src"`
	Thumbnail     string     `json:"thumbnail"`
	Priority      Priority   `json:"priority"`
	Engines       StringList `json:"engines"`
	Positions     IntList    `json:"positions"`
	Score         float64    `json:"score"`
	Category      string     `json:"category"`
	PublishedDate *Timestamp `json:"publishedDate,omitempty"`
	PubDate       *string    `json:"pubdate,omitempty"`
}

// MainResult is the current per-result shape: a superset of LegacyResult
// with media sources, grouping flags, and richer metadata.
type MainResult struct {
	URL           *string    `json:"url"`
	Engine        *string    `json:"engine,omitempty"`
	ParsedURL     []string   `json:"parsed_url,omitempty"`
	Template      string     `json:"template"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	ImgSrc        string     `json:"img_src"`
	IframeSrc     string     `json:"iframe_src"`
	AudioSrc      string     `json:"audio_src"`
	Thumbnail     string     `json:"thumbnail"`
	PublishedDate *Timestamp `json:"publishedDate,omitempty"`
	PubDate       *string    `json:"pubdate,omitempty"`
	// Length is an ISO-8601 duration for media results, kept as opaque text.
	Length     *string    `json:"length,omitempty"`
	Views      string     `json:"views"`
	Author     string     `json:"author"`
	Metadata   string     `json:"metadata"`
	Priority   Priority   `json:"priority"`
	Engines    StringList `json:"engines"`
	OpenGroup  bool       `json:"open_group"`
	CloseGroup bool       `json:"close_group"`
	Positions  IntList    `json:"positions"`
	Score      float64    `json:"score"`
	Category   string     `json:"category"`
}

// fieldSet describes the wire contract of one result shape: the complete
// set of keys it may carry and the subset that must be present.
type fieldSet struct {
	shape    string
	known    map[string]struct{}
	required []string
}

func newFieldSet(shape string, required, optional []string) fieldSet {
	known := make(map[string]struct{}, len(required)+len(optional))
	for _, f := range required {
		known[f] = struct{}{}
	}
	for _, f := range optional {
		known[f] = struct{}{}
	}
	return fieldSet{shape: shape, known: known, required: required}
}

var (
	legacyFields = newFieldSet("legacy",
		[]string{
			"template", "engine", "title", "content", "img_src", "thumbnail",
			"priority", "engines", "positions", "score", "category",
		},
		[]string{"url", "parsed_url", "publishedDate", "pubdate"},
	)

	mainFields = newFieldSet("main",
		[]string{
			"template", "title", "content", "img_src", "iframe_src",
			"audio_src", "thumbnail", "views", "author", "metadata",
			"priority", "engines", "open_group", "close_group", "positions",
			"score", "category",
		},
		[]string{"url", "engine", "parsed_url", "publishedDate", "pubdate", "length"},
	)
)

// check validates an element's key set against the shape: every required
// key present, no key outside the known set. A nil return means the key
// sets are compatible.
func (fs fieldSet) check(obj map[string]json.RawMessage) *ShapeError {
	var missing, unknown []string
	for _, f := range fs.required {
		if _, ok := obj[f]; !ok {
			missing = append(missing, f)
		}
	}
	for k := range obj {
		if _, ok := fs.known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ShapeError{Shape: fs.shape, Missing: missing, Unknown: unknown}
}

// SearchResult is one decoded result element: exactly one of Legacy or Main
// is non-nil, chosen permanently at decode time.
//
// Elements are untagged on the wire, so decoding tries the stricter legacy
// shape first and falls back to main. The order is load-bearing: legacy's
// key set is a subset of main's, and it is the rejection of unknown keys
// (plus main's extra required keys) that makes the choice deterministic.
// An element that satisfies neither shape fails the whole page decode.
type SearchResult struct {
	Legacy *LegacyResult
	Main   *MainResult
}

// Shape reports which variant was chosen: "legacy", "main", or "" for the
// zero value.
func (r SearchResult) Shape() string {
	switch {
	case r.Legacy != nil:
		return "legacy"
	case r.Main != nil:
		return "main"
	default:
		return ""
	}
}

// URL returns the result URL regardless of variant, or "" if unset.
func (r SearchResult) URL() string {
	switch {
	case r.Legacy != nil && r.Legacy.URL != nil:
		return *r.Legacy.URL
	case r.Main != nil && r.Main.URL != nil:
		return *r.Main.URL
	}
	return ""
}

// Title returns the result title regardless of variant.
func (r SearchResult) Title() string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Title
	case r.Main != nil:
		return r.Main.Title
	}
	return ""
}

// Content returns the result snippet regardless of variant.
func (r SearchResult) Content() string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Content
	case r.Main != nil:
		return r.Main.Content
	}
	return ""
}

// Engine returns the reporting engine name, or "" when the variant carries
// none.
func (r SearchResult) Engine() string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Engine
	case r.Main != nil && r.Main.Engine != nil:
		return *r.Main.Engine
	}
	return ""
}

// Engines returns the contributing engine list; never nil for a decoded
// result.
func (r SearchResult) Engines() []string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Engines
	case r.Main != nil:
		return r.Main.Engines
	}
	return nil
}

// Score returns the aggregated relevance score.
func (r SearchResult) Score() float64 {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Score
	case r.Main != nil:
		return r.Main.Score
	}
	return 0
}

// Category returns the result category.
func (r SearchResult) Category() string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Category
	case r.Main != nil:
		return r.Main.Category
	}
	return ""
}

// Template returns the render template name.
func (r SearchResult) Template() string {
	switch {
	case r.Legacy != nil:
		return r.Legacy.Template
	case r.Main != nil:
		return r.Main.Template
	}
	return ""
}

// PublishedDate returns the published date, or nil when absent.
func (r SearchResult) PublishedDate() *time.Time {
	var ts *Timestamp
	switch {
	case r.Legacy != nil:
		ts = r.Legacy.PublishedDate
	case r.Main != nil:
		ts = r.Main.PublishedDate
	}
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("result element is not an object: %w", err)
	}

	legacyErr := legacyFields.check(obj)
	if legacyErr == nil {
		var lr LegacyResult
		if err := json.Unmarshal(data, &lr); err != nil {
			legacyErr = &ShapeError{Shape: legacyFields.shape, Cause: err}
		} else {
			r.Legacy = &lr
			r.Main = nil
			return nil
		}
	}

	mainErr := mainFields.check(obj)
	if mainErr == nil {
		var mr MainResult
		if err := json.Unmarshal(data, &mr); err != nil {
			mainErr = &ShapeError{Shape: mainFields.shape, Cause: err}
		} else {
			r.Main = &mr
			r.Legacy = nil
			return nil
		}
	}

	return &SchemaMismatchError{Legacy: legacyErr, Main: mainErr}
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Legacy != nil:
		return json.Marshal(r.Legacy)
	case r.Main != nil:
		return json.Marshal(r.Main)
	default:
		return nil, errors.New("search result has no variant set")
	}
}
