// Package cache writes fetched tidy rows to Parquet files named after the
// query that produced them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"DataLink.piwebapi/internal/models"
)

// FilePrefix starts every cache artifact name.
const FilePrefix = "pi_cache_"

const keyLength = 16

type parquetRow struct {
	Timestamp time.Time `parquet:"timestamp"`
	Tag       string    `parquet:"tag,optional"`
	Stat      string    `parquet:"stat,optional"`
	Value     *float64  `parquet:"value,optional"`
	Unit      string    `parquet:"unit,optional"`
}

// Key derives the cache key of a query: the first 16 hex characters of the
// SHA-256 of its key-sorted JSON parameter record.
func Key(params models.QueryParameters) (string, error) {
	canonical, err := json.Marshal(params.KeyMap()) // map keys marshal sorted
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:keyLength], nil
}

// Artifacts manages cache files in one directory.
type Artifacts struct {
	dir string
}

// NewArtifacts uses dir, or the OS temp directory when dir is empty.
func NewArtifacts(dir string) *Artifacts {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Artifacts{dir: dir}
}

// Path is where the artifact for key lives.
func (a *Artifacts) Path(key string) string {
	return filepath.Join(a.dir, FilePrefix+key+".parquet")
}

// Write stores rows under key, atomically replacing an existing file, and
// returns the file path. Concurrent writers of one key are safe.
func (a *Artifacts) Write(key string, rows []models.TidyRow) (string, error) {
	out := make([]parquetRow, len(rows))
	for i, r := range rows {
		out[i] = parquetRow{
			Timestamp: r.Timestamp.UTC(),
			Tag:       r.Tag,
			Stat:      r.Stat,
			Value:     r.Value,
			Unit:      r.Unit,
		}
	}
	path := a.Path(key)
	tmp, err := os.CreateTemp(a.dir, FilePrefix+key+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating cache file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := parquet.Write(tmp, out); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing cache file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing cache file %s: %w", path, err)
	}
	// Readers only ever see a complete file.
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replacing cache file %s: %w", path, err)
	}
	return path, nil
}

// Read loads the rows stored under key.
func (a *Artifacts) Read(key string) ([]models.TidyRow, error) {
	path := a.Path(key)
	in, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading cache file %s: %w", path, err)
	}
	rows := make([]models.TidyRow, len(in))
	for i, r := range in {
		rows[i] = models.TidyRow{
			Timestamp: r.Timestamp.UTC(),
			Tag:       r.Tag,
			Stat:      r.Stat,
			Value:     r.Value,
			Unit:      r.Unit,
		}
	}
	return rows, nil
}
