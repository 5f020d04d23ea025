package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/sift/internal/archive"
)

// ensure csvBackend implements archive.Backend
var _ archive.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"query",
	"position",
	"shape",
	"url",
	"title",
	"content",
	"engine",
	"engines_json",
	"category",
	"template",
	"score",
	"published_date",
	"fetched_at",
}

// New creates a new CSV-backed archive.Backend.
func New(filePath string) (archive.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *archive.SearchRecord) error {
	enginesJSON, err := json.Marshal(record.Engines)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	published := ""
	if record.PublishedDate != nil {
		published = record.PublishedDate.Format(time.RFC3339Nano)
	}

	row := []string{
		record.ID,
		record.Query,
		strconv.Itoa(record.Position),
		record.Shape,
		record.URL,
		record.Title,
		record.Content,
		record.Engine,
		string(enginesJSON),
		record.Category,
		record.Template,
		strconv.FormatFloat(record.Score, 'f', -1, 64),
		published,
		record.FetchedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending (just in case)
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter archive.Filter) ([]*archive.SearchRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	_, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []*archive.SearchRecord{}, nil
		}
		return nil, fmt.Errorf("context: %w", err)
	}

	var allFiltered []*archive.SearchRecord

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		position, _ := strconv.Atoi(row[2])
		var engines []string
		if err := json.Unmarshal([]byte(row[8]), &engines); err != nil {
			// fallback to empty if parse fails
			engines = []string{}
		}
		score, _ := strconv.ParseFloat(row[11], 64)
		var published *time.Time
		if row[12] != "" {
			if t, err := time.Parse(time.RFC3339Nano, row[12]); err == nil {
				published = &t
			}
		}
		fetchedAt, _ := time.Parse(time.RFC3339Nano, row[13])

		rec := &archive.SearchRecord{
			ID:            row[0],
			Query:         row[1],
			Position:      position,
			Shape:         row[3],
			URL:           row[4],
			Title:         row[5],
			Content:       row[6],
			Engine:        row[7],
			Engines:       engines,
			Category:      row[9],
			Template:      row[10],
			Score:         score,
			PublishedDate: published,
			FetchedAt:     fetchedAt,
		}

		// Apply filters
		if filter.Query != "" && rec.Query != filter.Query {
			continue
		}
		if filter.Engine != "" && rec.Engine != filter.Engine {
			continue
		}
		if filter.Category != "" && rec.Category != filter.Category {
			continue
		}
		if filter.MinScore != nil && rec.Score < *filter.MinScore {
			continue
		}
		if filter.Since != nil && rec.FetchedAt.Before(*filter.Since) {
			continue
		}

		allFiltered = append(allFiltered, rec)
	}

	// Order by fetched_at DESC (reverse the slice)
	for i, j := 0, len(allFiltered)-1; i < j; i, j = i+1, j-1 {
		allFiltered[i], allFiltered[j] = allFiltered[j], allFiltered[i]
	}

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*archive.SearchRecord{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

func (b *csvBackend) Close() error {
	return b.file.Close()
}
