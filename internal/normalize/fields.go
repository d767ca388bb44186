package normalize

import (
	"fmt"
	"strings"
	"time"

	"DataLink.piwebapi/internal/models"
)

// synonymGroups maps vendor field names onto the tidy columns. Within a
// group the earlier name wins when an item carries several.
var synonymGroups = []struct {
	column string
	names  []string
}{
	{models.ColumnTimestamp, []string{"timestamp", "time", "datetime", "localtimestamp", "utcseconds"}},
	{models.ColumnValue, []string{"value", "val", "doublevalue", "numericvalue"}},
	{models.ColumnTag, []string{"name", "tag", "point", "path", "label"}},
	{models.ColumnUnit, []string{"units", "unit", "unitsabbreviation"}},
	{models.ColumnStat, []string{"summarytype", "stat", "type"}},
}

// renameFields returns item keyed by tidy column names. Keys outside the
// synonym groups are dropped.
func renameFields(item map[string]any) map[string]any {
	lower := make(map[string]string, len(item))
	for k := range item {
		lk := strings.ToLower(k)
		if prev, ok := lower[lk]; !ok || k < prev {
			lower[lk] = k
		}
	}

	out := make(map[string]any, len(synonymGroups))
	for _, g := range synonymGroups {
		for _, name := range g.names {
			if orig, ok := lower[name]; ok {
				out[g.column] = item[orig]
				break
			}
		}
	}
	return out
}

// hasColumns reports whether any record carries both a timestamp and a value.
func hasColumns(records []map[string]any) bool {
	var ts, val bool
	for _, rec := range records {
		_, okTS := rec[models.ColumnTimestamp]
		_, okVal := rec[models.ColumnValue]
		ts = ts || okTS
		val = val || okVal
		if ts && val {
			return true
		}
	}
	return false
}

// candidate is a row before timestamp validation.
type candidate struct {
	ts    time.Time
	valid bool
	row   models.TidyRow
}

func candidateFrom(rec map[string]any) candidate {
	ts, ok := models.ParseTimestamp(rec[models.ColumnTimestamp])
	return candidate{
		ts:    ts,
		valid: ok,
		row: models.TidyRow{
			Timestamp: ts,
			Tag:       text(rec[models.ColumnTag]),
			Stat:      text(rec[models.ColumnStat]),
			Value:     models.CoerceFloat(rec[models.ColumnValue]),
			Unit:      text(rec[models.ColumnUnit]),
		},
	}
}

// text renders scalar JSON values as strings; objects and nulls are absent.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return fmt.Sprint(x)
	}
	return ""
}

// firstText returns the first non-empty string among keys of obj.
func firstText(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := text(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

// objects keeps the map entries of a decoded JSON list.
func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
