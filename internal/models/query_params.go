package models

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the only accepted format for start and end dates.
const DateLayout = "2006-01-02"

// IntervalUnit is the unit of the sampling interval magnitude.
type IntervalUnit string

const (
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
)

// AggregationKind is one of the data sets an operator can request.
type AggregationKind string

const (
	Minimum AggregationKind = "Minimum"
	Average AggregationKind = "Average"
	Maximum AggregationKind = "Maximum"
)

// OutputUnit is the engineering unit the values should be reported in.
type OutputUnit string

const (
	UnitAmp OutputUnit = "Amp"
	UnitMVW OutputUnit = "MVW"
)

// DeviceSlots lists the device selector keys in query order.
var DeviceSlots = []string{"substation", "line", "transformer", "bus", "feeder"}

// QueryPair is one flattened key/value of a query.
type QueryPair struct {
	Key   string
	Value string
}

// QueryParameters describes one time-series request. Build it with
// NewQueryParameters and treat it as immutable.
type QueryParameters struct {
	Substation  string
	Line        string
	Transformer string
	Bus         string
	Feeder      string

	StartDate string
	EndDate   string

	IntervalValue int
	IntervalUnit  IntervalUnit

	datasets []AggregationKind

	OutputUnit        OutputUnit
	CoincidentalPeaks bool
	MultiPhase        bool
	MultiPhaseAverage bool
}

// NewQueryParameters normalizes raw operator input. A non-digit interval
// becomes 0, unknown units fall back to minute and Amp, unknown data sets are
// dropped and multi-phase average is only kept when multi-phase is set.
func NewQueryParameters(req QueryRequest) QueryParameters {
	devices := make(map[string]string, len(req.Devices))
	for k, v := range req.Devices {
		devices[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	return QueryParameters{
		Substation:        devices["substation"],
		Line:              devices["line"],
		Transformer:       devices["transformer"],
		Bus:               devices["bus"],
		Feeder:            devices["feeder"],
		StartDate:         strings.TrimSpace(req.StartDate),
		EndDate:           strings.TrimSpace(req.EndDate),
		IntervalValue:     parseIntervalValue(req.IntervalValue),
		IntervalUnit:      parseIntervalUnit(req.IntervalUnit),
		datasets:          parseDatasets(req.Datasets),
		OutputUnit:        parseOutputUnit(req.OutputUnit),
		CoincidentalPeaks: req.CoincidentalPeaks,
		MultiPhase:        req.MultiPhase,
		MultiPhaseAverage: req.MultiPhase && req.MultiPhaseAverage,
	}
}

func parseIntervalValue(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseIntervalUnit(s string) IntervalUnit {
	switch IntervalUnit(strings.ToLower(strings.TrimSpace(s))) {
	case IntervalHour:
		return IntervalHour
	default:
		return IntervalMinute
	}
}

func parseOutputUnit(s string) OutputUnit {
	for _, u := range []OutputUnit{UnitAmp, UnitMVW} {
		if strings.EqualFold(strings.TrimSpace(s), string(u)) {
			return u
		}
	}
	return UnitAmp
}

// ParseAggregationKind matches a data set name case-insensitively.
func ParseAggregationKind(s string) (AggregationKind, bool) {
	for _, k := range []AggregationKind{Minimum, Average, Maximum} {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, true
		}
	}
	return "", false
}

func parseDatasets(names []string) []AggregationKind {
	kinds := make([]AggregationKind, 0, len(names))
	seen := make(map[AggregationKind]bool, len(names))
	for _, name := range names {
		k, ok := ParseAggregationKind(name)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds
}

// Datasets returns a copy of the requested aggregation kinds in request order.
func (p QueryParameters) Datasets() []AggregationKind {
	out := make([]AggregationKind, len(p.datasets))
	copy(out, p.datasets)
	return out
}

// DatasetNames returns the requested aggregation kinds as strings.
func (p QueryParameters) DatasetNames() []string {
	out := make([]string, len(p.datasets))
	for i, k := range p.datasets {
		out[i] = string(k)
	}
	return out
}

// Interval converts the interval magnitude and unit to a duration.
func (p QueryParameters) Interval() time.Duration {
	if p.IntervalUnit == IntervalHour {
		return time.Duration(p.IntervalValue) * time.Hour
	}
	return time.Duration(p.IntervalValue) * time.Minute
}

// Validate checks the date range. It must run before any provider call.
func (p QueryParameters) Validate() error {
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return &ValidationError{Field: "start_date", Message: "start and end dates must be YYYY-MM-DD"}
	}
	end, err := time.Parse(DateLayout, p.EndDate)
	if err != nil {
		return &ValidationError{Field: "end_date", Message: "start and end dates must be YYYY-MM-DD"}
	}
	if start.After(end) {
		return &ValidationError{Field: "start_date", Message: "start date must be on or before end date"}
	}
	return nil
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (p QueryParameters) allPairs() []QueryPair {
	return []QueryPair{
		{"substation", p.Substation},
		{"line", p.Line},
		{"transformer", p.Transformer},
		{"bus", p.Bus},
		{"feeder", p.Feeder},
		{"start_date", p.StartDate},
		{"end_date", p.EndDate},
		{"interval_value", strconv.Itoa(p.IntervalValue)},
		{"interval_unit", string(p.IntervalUnit)},
		{"datasets", strings.Join(p.DatasetNames(), ",")},
		{"output_unit", string(p.OutputUnit)},
		{"coincidental_peaks", formatBool(p.CoincidentalPeaks)},
		{"multi_phase", formatBool(p.MultiPhase)},
		{"multi_phase_average", formatBool(p.MultiPhaseAverage)},
	}
}

// Pairs flattens the parameters in field order, dropping empty values.
func (p QueryParameters) Pairs() []QueryPair {
	var out []QueryPair
	for _, kv := range p.allPairs() {
		if strings.TrimSpace(kv.Value) == "" {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// QueryMap is Pairs as a map, ready for a request's query parameters.
func (p QueryParameters) QueryMap() map[string]string {
	pairs := p.Pairs()
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		m[kv.Key] = kv.Value
	}
	return m
}

// KeyMap is the full parameter record, empties included, used to derive the
// cache key.
func (p QueryParameters) KeyMap() map[string]any {
	m := make(map[string]any, 14)
	for _, kv := range p.allPairs() {
		m[kv.Key] = kv.Value
	}
	m["datasets"] = p.DatasetNames()
	m["coincidental_peaks"] = p.CoincidentalPeaks
	m["multi_phase"] = p.MultiPhase
	m["multi_phase_average"] = p.MultiPhaseAverage
	return m
}
