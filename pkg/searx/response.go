package searx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SearchResponse is the decoded payload of one search page. It is produced
// fresh per request and never mutated afterwards; the caller owns it.
type SearchResponse struct {
	Query string `json:"query"`
	// NumberOfResults is the instance's estimate across all engines; it is
	// independent of len(Results).
	NumberOfResults     int64          `json:"number_of_results"`
	Results             []SearchResult `json:"results"`
	Answers             [][]Answer     `json:"answers"`
	Corrections         []string       `json:"corrections"`
	Infoboxes           []Infobox      `json:"infoboxes"`
	Suggestions         []string       `json:"suggestions"`
	UnresponsiveEngines []EngineError  `json:"unresponsive_engines"`
}

// Answer is one instant-answer entry; answers arrive grouped.
type Answer struct {
	URL       *string  `json:"url"`
	Engine    *string  `json:"engine"`
	ParsedURL []string `json:"parsed_url,omitempty"`
}

// Infobox is the loosely structured sidebar entity. Unlike results, its
// fields are decoded leniently: engines invent keys inside urls and
// attributes, so those stay open-ended maps.
type Infobox struct {
	Infobox    string           `json:"infobox"`
	ID         string           `json:"id"`
	Content    string           `json:"content"`
	URLs       []map[string]any `json:"urls,omitempty"`
	Attributes []map[string]any `json:"attributes,omitempty"`
	Engine     string           `json:"engine"`
	URL        *string          `json:"url"`
	ImgSrc     string           `json:"img_src"`
	Template   string           `json:"template"`
	ParsedURL  []string         `json:"parsed_url,omitempty"`
	Title      string           `json:"title"`
	Thumbnail  string           `json:"thumbnail"`
	Priority   Priority         `json:"priority"`
	Engines    StringList       `json:"engines"`
	// Positions is a string here, not a list. Wire quirk, preserved.
	Positions     string     `json:"positions"`
	Score         float64    `json:"score"`
	Category      string     `json:"category"`
	PublishedDate *Timestamp `json:"publishedDate,omitempty"`
	PubDate       *string    `json:"pubdate,omitempty"`
}

// EngineError reports an upstream engine that failed. On the wire it is a
// two-element array, not an object.
type EngineError struct {
	Engine   string
	ErrorMsg string
}

func (e *EngineError) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("engine error: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("engine error: want [engine, message], got %d elements", len(pair))
	}
	e.Engine = pair[0]
	e.ErrorMsg = pair[1]
	return nil
}

func (e EngineError) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Engine, e.ErrorMsg})
}

// requiredResponseFields are the top-level keys every page payload must
// carry. Unknown top-level keys are tolerated for forward compatibility.
var requiredResponseFields = []string{
	"query",
	"number_of_results",
	"results",
	"answers",
	"corrections",
	"infoboxes",
	"suggestions",
	"unresponsive_engines",
}

// DecodeResponse decodes one page payload. Failures are always a
// *DecodeError; when a result element matched neither known shape, the
// wrapped cause is a *SchemaMismatchError naming the unmatched fields.
func DecodeResponse(data []byte) (*SearchResponse, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("payload is not a JSON object: %w", err)}
	}

	var missing []string
	for _, f := range requiredResponseFields {
		if _, ok := top[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &DecodeError{Err: fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))}
	}

	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &resp, nil
}

// IsSchemaMismatch reports whether err stems from a result element that
// fit neither known shape.
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	return errors.As(err, &sm)
}
