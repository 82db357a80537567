package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// JSONLLoader reads the chunk corpus the ingestion pipeline writes: one
// JSON record per line with the chunk text and its filing metadata.
type JSONLLoader struct {
	path string
}

func NewJSONLLoader(path string) *JSONLLoader {
	return &JSONLLoader{path: path}
}

type chunkRecord struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Form      string   `json:"form"`
	Period    string   `json:"period"`
	Accession string   `json:"accession"`
	File      string   `json:"file"`
	Text      string   `json:"text"`
	Tables    []string `json:"tables"`
}

func (l *JSONLLoader) Load(ctx context.Context) ([]domain.Chunk, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", l.path, err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec chunkRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}
		if rec.ID == "" || rec.Text == "" {
			return nil, fmt.Errorf("corpus line %d: missing id or text", line)
		}

		period := rec.Period
		if period == "" {
			period = rec.Accession
		}
		chunks = append(chunks, domain.Chunk{
			ID:        rec.ID,
			Ticker:    strings.ToUpper(rec.Ticker),
			Form:      rec.Form,
			Period:    period,
			Source:    rec.File,
			Text:      rec.Text,
			TableRefs: rec.Tables,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return chunks, nil
}
