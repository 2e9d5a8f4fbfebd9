// Package dataset reads the head of the training data sample shown on the
// Home page. It is display-only and never feeds the encoder.
package dataset

import (
	"context"
	"fmt"
	"html"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/database"

	"github.com/microcosm-cc/bluemonday"
)

// Table is a small rectangular sample with a header row.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Shape returns rows x columns.
func (t *Table) Shape() [2]int {
	return [2]int{len(t.Rows), len(t.Columns)}
}

// Source yields the first rows of the sample dataset.
type Source interface {
	Head(ctx context.Context, n int) (*Table, error)
	Name() string
}

// New picks the source configured in cfg. pg is only used for the
// postgres source and may be nil otherwise.
func New(cfg config.DatasetConfig, pg *database.PostgresClient) (Source, error) {
	switch cfg.Source {
	case config.DatasetSourceCSV:
		return NewCSVSource(cfg.Path), nil
	case config.DatasetSourcePostgres:
		if pg == nil {
			return nil, fmt.Errorf("postgres dataset source needs a database connection")
		}
		return NewPostgresSource(pg, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
}

// sanitizer reduces cells to plain text. Markup is stripped and entities
// are decoded again so html/template escapes each cell exactly once.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() sanitizer {
	return sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s sanitizer) clean(cell string) string {
	return html.UnescapeString(s.policy.Sanitize(cell))
}

func (s sanitizer) cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = s.clean(cell)
	}
	return out
}
