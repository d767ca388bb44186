// Package export writes tidy rows as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"DataLink.piwebapi/internal/models"
)

// WriteCSV writes a header with the columns present in rows followed by one
// record per row. Timestamps are RFC 3339 in UTC; null values are empty.
// Re-parsing the output yields the same rows.
func WriteCSV(w io.Writer, rows []models.TidyRow) error {
	cols := models.Columns(rows)
	if len(cols) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			record[i] = field(r, c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func field(r models.TidyRow, col string) string {
	switch col {
	case models.ColumnTimestamp:
		return r.Timestamp.UTC().Format(time.RFC3339Nano)
	case models.ColumnTag:
		return r.Tag
	case models.ColumnStat:
		return r.Stat
	case models.ColumnUnit:
		return r.Unit
	case models.ColumnValue:
		if r.Value == nil {
			return ""
		}
		return strconv.FormatFloat(*r.Value, 'g', -1, 64)
	}
	return ""
}
