package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // database/sql driver

	"github.com/apexreplay/apexreplay-service-go/log"
)

// ErrNotFound signals that no source file matches a (circuit, race, kind)
// request or that the circuit directory does not exist.
var ErrNotFound = errors.New("no matching data file")

// Kind identifies one of the per-session tables.
type Kind string

const (
	KindTelemetry Kind = "telemetry"
	KindLapTime   Kind = "lap_time"
	KindLapStart  Kind = "lap_start"
	KindLapEnd    Kind = "lap_end"
	KindResults   Kind = "results"
	KindWeather   Kind = "weather"
)

type (
	Option func(*Store)

	// Store resolves (circuit, race, kind) requests to concrete Parquet/CSV
	// files and reads them through an embedded DuckDB instance. Text sources
	// of the high-volume kinds are transcoded to Parquet on first touch.
	Store struct {
		dataDir   string
		db        *sql.DB
		l         *log.Logger
		convertMu sync.Mutex
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(s *Store) {
		s.l = arg
	}
}

func New(dataDir string, opts ...Option) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	ret := &Store{
		dataDir: dataDir,
		db:      db,
		l:       log.GetLogger("store"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DataDir() string { return s.dataDir }

// quoteLiteral renders a single-quoted SQL string literal. File paths end up
// inside DuckDB table functions which do not accept bind parameters
// everywhere, so they are inlined.
func quoteLiteral(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", "''") + "'"
}

// columns returns the column names of a Parquet/CSV source.
func (s *Store) columns(ctx context.Context, path string) ([]string, error) {
	query := fmt.Sprintf("DESCRIBE SELECT * FROM %s", s.fromClause(path))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", path, err)
	}
	defer rows.Close()

	ret := make([]string, 0)
	for rows.Next() {
		var name, colType string
		var null, key, dflt, extra sql.NullString
		if err := rows.Scan(&name, &colType, &null, &key, &dflt, &extra); err != nil {
			return nil, err
		}
		ret = append(ret, name)
	}
	return ret, rows.Err()
}

// fromClause picks the matching DuckDB reader for a file.
func (s *Store) fromClause(path string) string {
	if strings.EqualFold(fileExt(path), ".parquet") {
		return fmt.Sprintf("read_parquet(%s)", quoteLiteral(path))
	}
	return fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(path))
}
