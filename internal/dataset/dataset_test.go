package dataset

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/database"
	"credit-risk/internal/common/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loan_df.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCSVSource_ShippedSample(t *testing.T) {
	src := NewCSVSource(filepath.Join("..", "..", "data", "loan_df.csv"))

	table, err := src.Head(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, [2]int{5, 10}, table.Shape())
	assert.Equal(t, "income", table.Columns[0])
	assert.Equal(t, "status", table.Columns[9])
	assert.Equal(t, []string{"59000", "1", "35000", "16.02", "0.59", "3", "Rent", "Personal", "20-24", "Y"}, table.Rows[0])
}

func TestCSVSource_ShortFileAndSanitizing(t *testing.T) {
	path := writeCSV(t, "home,<b>note</b>\nRent,<script>alert(1)</script>ok\nOwn,a & b\n")

	table, err := NewCSVSource(path).Head(context.Background(), 5)
	require.NoError(t, err)

	want := &Table{
		Columns: []string{"home", "note"},
		Rows: [][]string{
			{"Rent", "ok"},
			{"Own", "a & b"},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVSource_Errors(t *testing.T) {
	var stdErr *errors.StandardError

	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Head(context.Background(), 5)
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeDatasetLoadFailed, stdErr.Code)

	_, err = NewCSVSource(writeCSV(t, "")).Head(context.Background(), 5)
	require.True(t, stderrors.As(err, &stdErr))
	assert.Contains(t, stdErr.Details, "empty")

	_, err = NewCSVSource(writeCSV(t, "a,b\n1,2,3\n")).Head(context.Background(), 5)
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeDatasetLoadFailed, stdErr.Code)
}

func TestPostgresSource_Head(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src, err := NewPostgresSource(database.NewPostgresFromDB(db), "public.loan_samples")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"income", "home", "status"}).
		AddRow(int64(59000), "Rent", "Y").
		AddRow(9600.5, "<i>Own</i>", nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "public"."loan_samples" LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(rows)

	table, err := src.Head(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"income", "home", "status"}, table.Columns)
	assert.Equal(t, [][]string{
		{"59000", "Rent", "Y"},
		{"9600.5", "Own", ""},
	}, table.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src, err := NewPostgresSource(database.NewPostgresFromDB(db), "loan_samples")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "loan_samples"`).WillReturnError(stderrors.New("relation does not exist"))

	_, err = src.Head(context.Background(), 5)
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeDatasetLoadFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "postgres:loan_samples", src.Name())
}

func TestNewPostgresSource_RejectsBadTableNames(t *testing.T) {
	for _, name := range []string{"", "loan;DROP TABLE x", "a.b.c", "1table", `"quoted"`} {
		_, err := NewPostgresSource(nil, name)
		assert.Error(t, err, name)
	}
}

func TestNew(t *testing.T) {
	src, err := New(config.DatasetConfig{Source: config.DatasetSourceCSV, Path: "x.csv"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "csv:x.csv", src.Name())

	_, err = New(config.DatasetConfig{Source: config.DatasetSourcePostgres, Table: "t"}, nil)
	assert.Error(t, err)

	_, err = New(config.DatasetConfig{Source: "parquet"}, nil)
	assert.Error(t, err)
}
