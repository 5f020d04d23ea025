package analyzer

import (
	"strings"
	"testing"
)

func TestFindTermMatchesBasic(t *testing.T) {
	content := "Goroutines make concurrency simple. Goroutines are cheap. Channels coordinate work."
	terms := []string{"goroutines", "channels"}

	results := FindTermMatches(content, "https://example.com", terms)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Term != "goroutines" {
		t.Errorf("expected term goroutines, got %s", results[0].Term)
	}
	if results[0].Count != 2 {
		t.Errorf("expected count 2, got %d", results[0].Count)
	}
	if results[0].URL != "https://example.com" {
		t.Errorf("unexpected URL: %s", results[0].URL)
	}
	if len(results[0].Sentences) != 2 {
		t.Errorf("expected 2 sentences for goroutines, got %d", len(results[0].Sentences))
	}

	if results[1].Term != "channels" {
		t.Errorf("expected term channels, got %s", results[1].Term)
	}
	if results[1].Count != 1 {
		t.Errorf("expected count 1, got %d", results[1].Count)
	}
	if len(results[1].Sentences) != 1 || results[1].Sentences[0] != "Channels coordinate work." {
		t.Errorf("unexpected sentences: %v", results[1].Sentences)
	}
}

func TestFindTermMatchesCaseInsensitive(t *testing.T) {
	content := "SearXNG aggregates engines. searxng is self-hosted."
	results := FindTermMatches(content, "https://example.com", []string{"SeArXnG"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Count != 2 {
		t.Errorf("expected count 2, got %d", results[0].Count)
	}
}

func TestFindTermMatchesNoMatch(t *testing.T) {
	results := FindTermMatches("nothing of interest here.", "https://example.com", []string{"missing"})
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}

	if got := FindTermMatches("", "https://example.com", []string{"term"}); got != nil {
		t.Errorf("expected nil for empty content, got %v", got)
	}
	if got := FindTermMatches("some content.", "https://example.com", nil); got != nil {
		t.Errorf("expected nil for no terms, got %v", got)
	}
}

func TestSplitIntoSentencesBasic(t *testing.T) {
	content := "First sentence. Second one! Third?"
	sentences := splitIntoSentences(content)

	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}

	if sentences[0].original != "First sentence." {
		t.Errorf("expected 'First sentence.', got '%s'", sentences[0].original)
	}
	if sentences[1].original != "Second one!" {
		t.Errorf("expected 'Second one!', got '%s'", sentences[1].original)
	}
	if sentences[2].original != "Third?" {
		t.Errorf("expected 'Third?', got '%s'", sentences[2].original)
	}
	if sentences[2].lower != "third?" {
		t.Errorf("expected lowered form, got '%s'", sentences[2].lower)
	}
}

func TestSplitIntoSentencesTrailingText(t *testing.T) {
	sentences := splitIntoSentences("Complete sentence. Trailing fragment without a stop")
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[1].original != "Trailing fragment without a stop" {
		t.Errorf("unexpected trailing sentence: '%s'", sentences[1].original)
	}
}

// benchmarkContent generates a realistic snippet string for benchmarking.
func benchmarkContent(size int) string {
	sb := strings.Builder{}
	sb.Grow(size)

	snippets := []string{
		"SearXNG is a free internet metasearch engine which aggregates results from various search services.",
		"Goroutines are lightweight threads managed by the Go runtime. They make concurrent code simple to write.",
		"Rate limiting protects public instances from abusive clients. Operators tune limits per network.",
		"Self-hosting a search instance keeps queries private. No logs are kept by default.",
	}

	for sb.Len() < size {
		for _, s := range snippets {
			sb.WriteString(s)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func BenchmarkFindTermMatches_SmallContent(b *testing.B) {
	content := benchmarkContent(1024) // 1KB
	terms := []string{"searxng", "goroutines", "rate limiting", "instance"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		FindTermMatches(content, "https://example.com/result", terms)
	}
}

func BenchmarkFindTermMatches_ManyTerms(b *testing.B) {
	content := benchmarkContent(50 * 1024) // 50KB
	terms := []string{
		"searxng", "goroutines", "rate limiting", "instance", "metasearch",
		"aggregates", "private", "operators", "runtime", "concurrent",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		FindTermMatches(content, "https://example.com/result", terms)
	}
}

func BenchmarkSplitIntoSentences(b *testing.B) {
	content := benchmarkContent(50 * 1024) // 50KB

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		splitIntoSentences(content)
	}
}
