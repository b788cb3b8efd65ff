package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apexreplay/apexreplay-service-go/log"
)

// Bootstrap transcodes pending CSV sources of every circuit directory.
// Per-file failures are logged and skipped so one broken file never blocks
// sibling conversions.
func (s *Store) Bootstrap(ctx context.Context) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		s.l.Warn("data directory not found, skipping bootstrap",
			log.String("dir", s.dataDir), log.ErrorField(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		s.ConvertDir(ctx, filepath.Join(s.dataDir, e.Name()))
	}
}

// ConvertDir transcodes all auto-convert CSV files of one circuit directory.
func (s *Store) ConvertDir(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	pending := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || fileExt(e.Name()) != ".csv" || !shouldConvert(e.Name()) {
			continue
		}
		pending = append(pending, filepath.Join(dir, e.Name()))
	}
	if len(pending) == 0 {
		return
	}
	s.l.Info("preparing circuit directory",
		log.String("dir", dir), log.Int("csvFiles", len(pending)))
	for _, csvPath := range pending {
		if _, err := s.convertFile(ctx, csvPath); err != nil {
			s.l.Warn("conversion failed",
				log.String("file", filepath.Base(csvPath)), log.ErrorField(err))
		}
	}
}

// convertFile transcodes one CSV to Parquet. DuckDB streams the source in
// bounded chunks, the output goes to a temp path and is renamed into place
// only on success; any failure leaves the CSV untouched.
func (s *Store) convertFile(ctx context.Context, csvPath string) (string, error) {
	s.convertMu.Lock()
	defer s.convertMu.Unlock()

	parquetPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".parquet"
	if _, err := os.Stat(parquetPath); err == nil && !isStale(parquetPath, csvPath) {
		// already converted by an earlier run, just drop the text copy
		if err := os.Remove(csvPath); err != nil {
			s.l.Warn("could not remove converted csv",
				log.String("file", csvPath), log.ErrorField(err))
		}
		return parquetPath, nil
	}

	tmpPath := filepath.Join(filepath.Dir(parquetPath),
		"."+filepath.Base(parquetPath)+".tmp")
	s.l.Info("converting csv to parquet",
		log.String("src", filepath.Base(csvPath)),
		log.String("dest", filepath.Base(parquetPath)))

	query := fmt.Sprintf(
		"COPY (SELECT * FROM read_csv_auto(%s)) TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		quoteLiteral(csvPath), quoteLiteral(tmpPath))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("transcoding %s: %w", csvPath, err)
	}
	if err := os.Rename(tmpPath, parquetPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("placing %s: %w", parquetPath, err)
	}
	if err := os.Remove(csvPath); err != nil {
		s.l.Warn("could not remove converted csv",
			log.String("file", csvPath), log.ErrorField(err))
	}
	return parquetPath, nil
}
