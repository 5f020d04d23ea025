package analyzer

import (
	"strings"
	"unicode"
)

// TermMatch represents occurrences of a search term within one result's
// title and snippet.
type TermMatch struct {
	Term      string   `json:"term"`
	URL       string   `json:"url"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// FindTermMatches scans a result's text for each term (case-insensitive)
// and returns a TermMatch per term that occurs at least once. For each
// occurrence, the surrounding sentence is extracted so a report can show
// why the result was considered relevant. Sentences are naively split on
// '.', '!' and '?'.
func FindTermMatches(content, url string, terms []string) []TermMatch {
	if len(content) == 0 || len(terms) == 0 {
		return nil
	}

	results := make([]TermMatch, 0, len(terms))
	lowerContent := strings.ToLower(content)

	// Split once, keeping original and lowercase forms side by side.
	sentences := splitIntoSentences(content)

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}

		var matched []string
		for _, s := range sentences {
			if strings.Contains(s.lower, lowerTerm) {
				matched = append(matched, s.original)
			}
		}

		results = append(results, TermMatch{
			Term:      term,
			URL:       url,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

// sentenceData holds original and lowercase versions together
type sentenceData struct {
	original string
	lower    string
}

// splitIntoSentences returns both original and lowercase sentences in one pass.
func splitIntoSentences(text string) []sentenceData {
	if len(text) == 0 {
		return nil
	}

	// Estimate sentence count: roughly 1 sentence per 50 chars average
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}

	sentences := make([]sentenceData, 0, estimated)
	start := 0

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			// Include the delimiter
			end := i + 1
			// Include following whitespace
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			orig := strings.TrimSpace(text[start:end])
			sentences = append(sentences, sentenceData{
				original: orig,
				lower:    strings.ToLower(orig),
			})
			start = end
		}
	}

	// Capture any trailing text
	if start < len(text) {
		orig := strings.TrimSpace(text[start:])
		sentences = append(sentences, sentenceData{
			original: orig,
			lower:    strings.ToLower(orig),
		})
	}

	return sentences
}
