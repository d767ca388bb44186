package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"DataLink.piwebapi/internal/models"
)

// Strategy recognizes one payload shape. Parse returns nil when the payload
// is not of that shape.
type Strategy struct {
	Name  string
	Parse func(raw []byte) []models.TidyRow
}

// DefaultStrategies is the order payload shapes are tried in.
var DefaultStrategies = []Strategy{
	{Name: "nested-items", Parse: ParseNestedItems},
	{Name: "flat-items", Parse: ParseFlatItems},
	{Name: "summary-items", Parse: ParseSummaryItems},
	{Name: "paired-arrays", Parse: ParsePairedArrays},
	{Name: "csv", Parse: ParseCSV},
}

func decodeObject(raw []byte) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ParseNestedItems handles {"Items":[{"Name":..., "Items":[...]}, ...]}, one
// outer entry per series. A series contributes rows only when its items carry
// both a timestamp and a value field.
func ParseNestedItems(raw []byte) []models.TidyRow {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	series := objects(obj["Items"])
	nested := false
	for _, s := range series {
		if _, ok := s["Items"].([]any); ok {
			nested = true
			break
		}
	}
	if !nested {
		return nil
	}

	var out []candidate
	for _, s := range series {
		items := objects(s["Items"])
		if len(items) == 0 {
			continue
		}
		name := firstText(s, "Name", "Label", "Path", "WebId")
		unit := firstText(s, "UnitsAbbreviation", "Unit")
		stat := firstText(s, "Stat", "SummaryType")

		records := make([]map[string]any, len(items))
		for i, it := range items {
			records[i] = renameFields(it)
		}
		if !hasColumns(records) {
			continue
		}
		for _, rec := range records {
			c := candidateFrom(rec)
			if c.row.Tag == "" {
				c.row.Tag = name
			}
			if c.row.Unit == "" {
				c.row.Unit = unit
			}
			if c.row.Stat == "" {
				c.row.Stat = stat
			}
			out = append(out, c)
		}
	}
	return finalize(out)
}

// ParseFlatItems handles {"Items":[{"Timestamp":..., "Value":...}, ...]}.
func ParseFlatItems(raw []byte) []models.TidyRow {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	items := objects(obj["Items"])
	if len(items) == 0 {
		return nil
	}
	records := make([]map[string]any, len(items))
	for i, it := range items {
		records[i] = renameFields(it)
	}
	if !hasColumns(records) {
		return nil
	}
	out := make([]candidate, len(records))
	for i, rec := range records {
		out[i] = candidateFrom(rec)
	}
	return finalize(out)
}

// ParseSummaryItems handles the streams summary shape
// {"Items":[{"Type":"Average","Value":{"Timestamp":...,"Value":...}}]}.
func ParseSummaryItems(raw []byte) []models.TidyRow {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var out []candidate
	for _, it := range objects(obj["Items"]) {
		inner, ok := it["Value"].(map[string]any)
		if !ok {
			continue
		}
		rec := renameFields(inner)
		if _, ok := rec[models.ColumnTimestamp]; !ok {
			continue
		}
		c := candidateFrom(rec)
		c.row.Stat = firstText(it, "Type", "SummaryType")
		if c.row.Tag == "" {
			c.row.Tag = firstText(obj, "Name", "Label", "Path")
		}
		out = append(out, c)
	}
	return finalize(out)
}

// ParsePairedArrays handles {"Timestamps":[...], "Values":[...], "Name":...}.
// Pairs beyond the shorter list are ignored.
func ParsePairedArrays(raw []byte) []models.TidyRow {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	timestamps, ok := obj["Timestamps"].([]any)
	if !ok {
		return nil
	}
	values, ok := obj["Values"].([]any)
	if !ok {
		return nil
	}
	n := min(len(timestamps), len(values))
	tag := firstText(obj, "Name", "Label", "Path")
	unit := firstText(obj, "UnitsAbbreviation")

	out := make([]candidate, n)
	for i := 0; i < n; i++ {
		out[i] = candidateFrom(map[string]any{
			models.ColumnTimestamp: timestamps[i],
			models.ColumnValue:     values[i],
			models.ColumnTag:       tag,
			models.ColumnUnit:      unit,
		})
	}
	return finalize(out)
}

var csvColumns = []struct {
	column string
	names  []string
}{
	{models.ColumnTimestamp, []string{"timestamp", "time", "datetime"}},
	{models.ColumnValue, []string{"value", "values"}},
	{models.ColumnTag, []string{"tag", "name", "point"}},
	{models.ColumnUnit, []string{"unit", "units", "unitsabbreviation"}},
	{models.ColumnStat, []string{"stat", "summarytype", "type"}},
}

// ParseCSV handles a header row followed by records. Timestamp and value
// columns are required; a non-numeric value becomes null. Quotes inside
// unquoted fields are literal and malformed records are skipped.
func ParseCSV(raw []byte) []models.TidyRow {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	cols := make(map[string]int, len(csvColumns))
	for _, c := range csvColumns {
		for _, name := range c.names {
			if i, ok := index[name]; ok {
				cols[c.column] = i
				break
			}
		}
	}
	if _, ok := cols[models.ColumnTimestamp]; !ok {
		return nil
	}
	if _, ok := cols[models.ColumnValue]; !ok {
		return nil
	}

	var out []candidate
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil
		}
		rec := make(map[string]any, len(cols))
		for column, i := range cols {
			if i < len(record) {
				rec[column] = record[i]
			}
		}
		out = append(out, candidateFrom(rec))
	}
	return finalize(out)
}
