package models

import (
	"encoding/json"
	"time"
)

// Canonical tidy column names, in output order.
const (
	ColumnTimestamp = "timestamp"
	ColumnTag       = "tag"
	ColumnStat      = "stat"
	ColumnValue     = "value"
	ColumnUnit      = "unit"
)

// TidyRow is one normalized sample. Empty Tag, Stat or Unit means the field
// is absent; a nil Value is a null reading.
type TidyRow struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag,omitempty"`
	Stat      string    `json:"stat,omitempty"`
	Value     *float64  `json:"value"`
	Unit      string    `json:"unit,omitempty"`
}

// Float returns a pointer to v, for building TidyRow values.
func Float(v float64) *float64 { return &v }

// Columns reports the tidy columns present in rows, in canonical order.
// Timestamp and value are present whenever there is at least one row.
func Columns(rows []TidyRow) []string {
	if len(rows) == 0 {
		return nil
	}
	var hasTag, hasStat, hasUnit bool
	for _, r := range rows {
		hasTag = hasTag || r.Tag != ""
		hasStat = hasStat || r.Stat != ""
		hasUnit = hasUnit || r.Unit != ""
	}
	cols := []string{ColumnTimestamp}
	if hasTag {
		cols = append(cols, ColumnTag)
	}
	if hasStat {
		cols = append(cols, ColumnStat)
	}
	cols = append(cols, ColumnValue)
	if hasUnit {
		cols = append(cols, ColumnUnit)
	}
	return cols
}

// RawSample is one event as delivered by the PI Web API streams endpoints.
type RawSample struct {
	Timestamp         string `json:"Timestamp"`
	Value             any    `json:"Value"`
	UnitsAbbreviation string `json:"UnitsAbbreviation,omitempty"`
	Good              *bool  `json:"Good,omitempty"`
	Questionable      bool   `json:"Questionable,omitempty"`
	Substituted       bool   `json:"Substituted,omitempty"`
}

// IsGood reports the sample quality; a missing flag counts as good.
func (s RawSample) IsGood() bool {
	return s.Good == nil || *s.Good
}

// NumericValue extracts a number from Value, unwrapping the nested
// {"Value": ...} objects used for digital states and summaries.
func (s RawSample) NumericValue() *float64 {
	return CoerceFloat(s.Value)
}

// SummaryItem is one aggregate of a summary response.
type SummaryItem struct {
	Type  string    `json:"Type"`
	Value RawSample `json:"Value"`
}

// SummaryResponse is the body of a streams summary call.
type SummaryResponse struct {
	Items []SummaryItem `json:"Items"`
}

// CoerceFloat converts a decoded JSON value to a number when it has one.
func CoerceFloat(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return finite(f)
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case bool:
		if x {
			return Float(1)
		}
		return Float(0)
	case string:
		return parseNumeric(x)
	case map[string]any:
		if inner, ok := x["Value"]; ok {
			return CoerceFloat(inner)
		}
	}
	return nil
}
