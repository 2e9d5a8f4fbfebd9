package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	commonerrors "credit-risk/internal/common/errors"
)

// CSVSource reads the sample from a CSV file with a header row.
type CSVSource struct {
	path  string
	clean sanitizer
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path, clean: newSanitizer()}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Head returns the header and at most n data rows.
func (s *CSVSource) Head(ctx context.Context, n int) (*Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("file is empty")
		}
		return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
	}

	table := &Table{Columns: s.clean.cleanRow(header)}
	for len(table.Rows) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, commonerrors.NewDatasetLoadFailedError(s.Name(), err)
		}
		table.Rows = append(table.Rows, s.clean.cleanRow(record))
	}

	return table, nil
}
