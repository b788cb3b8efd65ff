package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/log"
)

// TelemetryRow is one long-format telemetry measurement.
type TelemetryRow struct {
	Timestamp string
	VehicleID string
	Lap       int
	Name      string
	Value     float64
	Valid     bool // false when the stored value was NULL
}

// Resolve locates the source file for (circuit, race, kind). A text source of
// an auto-convert kind is transcoded first; if the transcoding fails the CSV
// is used directly so a conversion problem never loses data.
func (s *Store) Resolve(ctx context.Context, circuit, race string, kind Kind) (string, error) {
	path, err := s.findFile(circuit, race, kind)
	if err != nil {
		return "", fmt.Errorf("%w for %s %s (%s)", ErrNotFound, circuit, race, kind)
	}
	if fileExt(path) == ".csv" && shouldConvert(filepath.Base(path)) {
		if converted, cerr := s.convertFile(ctx, path); cerr != nil {
			s.l.Warn("falling back to csv source", log.ErrorField(cerr))
		} else {
			path = converted
		}
	}
	return path, nil
}

// TelemetryRows loads the long-format telemetry table, optionally restricted
// to one lap. The lap predicate is pushed down into the Parquet scan.
func (s *Store) TelemetryRows(ctx context.Context, path string, lap *int) ([]TelemetryRow, error) {
	cols, err := s.columns(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"timestamp", "vehicle_id", "telemetry_name"} {
		if !lo.Contains(cols, required) {
			return nil, fmt.Errorf("column %s missing in %s", required, path)
		}
	}
	lapExpr := "CAST(0 AS BIGINT)"
	if lo.Contains(cols, "lap") {
		lapExpr = "CAST(lap AS BIGINT)"
	}
	query := fmt.Sprintf(
		"SELECT CAST(timestamp AS VARCHAR), CAST(vehicle_id AS VARCHAR), %s, "+
			"CAST(telemetry_name AS VARCHAR), CAST(telemetry_value AS DOUBLE) FROM %s",
		lapExpr, s.fromClause(path))
	if lap != nil {
		query += fmt.Sprintf(" WHERE lap = %d", *lap)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading telemetry from %s: %w", path, err)
	}
	defer rows.Close()

	ret := make([]TelemetryRow, 0, 4096)
	for rows.Next() {
		var item TelemetryRow
		var lapVal sql.NullInt64
		var value sql.NullFloat64
		if err := rows.Scan(
			&item.Timestamp, &item.VehicleID, &lapVal, &item.Name, &value); err != nil {
			return nil, err
		}
		item.Lap = int(lapVal.Int64)
		item.Value = value.Float64
		item.Valid = value.Valid
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

// Table is a generic all-string view of a tabular source, used for the small
// support tables (lap events, race results, weather).
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadTable loads a source with every column cast to VARCHAR. delim overrides
// the CSV delimiter ("" lets DuckDB sniff it); Parquet sources ignore it.
func (s *Store) ReadTable(ctx context.Context, path, delim string) (*Table, error) {
	from := s.fromClause(path)
	if fileExt(path) != ".parquet" && delim != "" {
		from = fmt.Sprintf(
			"read_csv(%s, delim=%s, header=true, all_varchar=true, ignore_errors=true)",
			quoteLiteral(path), quoteLiteral(delim))
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT COLUMNS(*)::VARCHAR FROM %s", from))
	if err != nil {
		return nil, fmt.Errorf("loading table from %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	ret := &Table{Columns: cols}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		ret.Rows = append(ret.Rows, lo.Map(raw,
			func(v sql.NullString, _ int) string { return v.String }))
	}
	return ret, rows.Err()
}

// Col returns the index of a column or -1.
func (t *Table) Col(name string) int {
	return lo.IndexOf(t.Columns, name)
}
