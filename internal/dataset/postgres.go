package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	commonerrors "credit-risk/internal/common/errors"
	"credit-risk/internal/common/database"

	"github.com/lib/pq"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads the sample from a table. Row order is whatever the
// table's physical order yields, as with the CSV head.
type PostgresSource struct {
	db    *database.PostgresClient
	table string
	query string
	clean sanitizer
}

// NewPostgresSource validates the table name ("table" or "schema.table").
func NewPostgresSource(db *database.PostgresClient, table string) (*PostgresSource, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset table name %q", table)
	}

	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}

	return &PostgresSource{
		db:    db,
		table: table,
		query: fmt.Sprintf("SELECT * FROM %s LIMIT $1", strings.Join(parts, ".")),
		clean: newSanitizer(),
	}, nil
}

func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

func (s *PostgresSource) Head(ctx context.Context, n int) (*Table, error) {
	if n < 0 {
		n = 0
	}

	rows, err := s.db.Query(ctx, s.query, n)
	if err != nil {
		return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
	}

	table := &Table{Columns: s.clean.cleanRow(columns)}

	cells := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		table.Rows = append(table.Rows, s.clean.cleanRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
	}

	return table, nil
}
