package archive

import (
	"context"
	"time"

	"github.com/FranksOps/sift/pkg/searx"
	"github.com/google/uuid"
)

// SearchRecord is one decoded search result flattened for persistence.
// The archive is write-only from the search path; nothing ever reads it to
// answer a query.
type SearchRecord struct {
	ID    string
	Query string
	// Position is the 0-based rank of the result within the operation's
	// accumulated list.
	Position      int
	Shape         string // "legacy" or "main"
	URL           string
	Title         string
	Content       string
	Engine        string
	Engines       []string
	Category      string
	Template      string
	Score         float64
	PublishedDate *time.Time
	FetchedAt     time.Time
}

// FromResult flattens one decoded result into a record.
func FromResult(query string, position int, res searx.SearchResult) *SearchRecord {
	return &SearchRecord{
		ID:            uuid.New().String(),
		Query:         query,
		Position:      position,
		Shape:         res.Shape(),
		URL:           res.URL(),
		Title:         res.Title(),
		Content:       res.Content(),
		Engine:        res.Engine(),
		Engines:       res.Engines(),
		Category:      res.Category(),
		Template:      res.Template(),
		Score:         res.Score(),
		PublishedDate: res.PublishedDate(),
		FetchedAt:     time.Now().UTC(),
	}
}

// Filter allows querying for specific SearchRecords.
type Filter struct {
	Query    string
	Engine   string
	Category string
	MinScore *float64
	Since    *time.Time
	Limit    int
	Offset   int
}

// Backend defines the interface for storing and querying search records.
type Backend interface {
	Save(ctx context.Context, record *SearchRecord) error
	Query(ctx context.Context, filter Filter) ([]*SearchRecord, error)
	Close() error
}
