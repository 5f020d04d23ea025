package searx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// ResponseFormat selects the wire format requested from the instance.
type ResponseFormat string

// FormatJSON is the only format the decoder understands.
const FormatJSON ResponseFormat = "json"

// LanguageTag is a validated BCP-47 language tag. Construct one with
// ParseLanguage so that an invalid tag is caught before the first request
// rather than failing on every send.
type LanguageTag string

// ParseLanguage validates s as a BCP-47 tag and returns it in canonical form.
func ParseLanguage(s string) (LanguageTag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", s, err)
	}
	return LanguageTag(tag.String()), nil
}

// Params holds every parameter of a search request. The zero value of each
// optional field means "omit from the request and let the instance decide".
// Params is a plain value; mutating a copy never affects requests already
// sent.
type Params struct {
	Query  string
	Format ResponseFormat

	// PageNo is 1-based. Nil asks for the instance default (page 1).
	PageNo *int

	// Categories and Engines are ordered lists, comma-joined on the wire
	// and omitted entirely when empty.
	Categories []string
	Engines    []string

	Language LanguageTag

	// Display passthrough options. The instance interprets these; the
	// client only encodes them.
	ResultsOnNewTab *int
	ImageProxy      *bool
	Autocomplete    string
	SafeSearch      *int
	Theme           string
}

// NewParams returns Params with only the query and format set.
func NewParams(query string, format ResponseFormat) Params {
	return Params{
		Query:  query,
		Format: format,
	}
}

// Values encodes the parameters as the form fields of a search POST.
// Optional fields that were never set are absent from the result.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	v.Set("format", string(p.Format))

	if p.PageNo != nil {
		v.Set("pageno", strconv.Itoa(*p.PageNo))
	}
	if len(p.Categories) > 0 {
		v.Set("categories", strings.Join(p.Categories, ","))
	}
	if len(p.Engines) > 0 {
		v.Set("engines", strings.Join(p.Engines, ","))
	}
	if p.Language != "" {
		v.Set("language", string(p.Language))
	}
	if p.ResultsOnNewTab != nil {
		v.Set("results_on_new_tab", strconv.Itoa(*p.ResultsOnNewTab))
	}
	if p.ImageProxy != nil {
		v.Set("image_proxy", strconv.FormatBool(*p.ImageProxy))
	}
	if p.Autocomplete != "" {
		v.Set("autocomplete", p.Autocomplete)
	}
	if p.SafeSearch != nil {
		v.Set("safesearch", strconv.Itoa(*p.SafeSearch))
	}
	if p.Theme != "" {
		v.Set("theme", p.Theme)
	}
	return v
}
