// Package resample bins tidy rows onto a coarser time grid.
package resample

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"DataLink.piwebapi/internal/models"
)

// Aggregator reduces the values of one window.
type Aggregator string

const (
	Mean Aggregator = "mean"
	Sum  Aggregator = "sum"
	Min  Aggregator = "min"
	Max  Aggregator = "max"
)

// ParseAggregator maps a name to an Aggregator; unknown names mean Mean.
func ParseAggregator(s string) Aggregator {
	switch a := Aggregator(strings.ToLower(strings.TrimSpace(s))); a {
	case Sum, Min, Max:
		return a
	default:
		return Mean
	}
}

func (a Aggregator) reduce(values []float64) float64 {
	switch a {
	case Sum:
		return floats.Sum(values)
	case Min:
		return floats.Min(values)
	case Max:
		return floats.Max(values)
	default:
		return stat.Mean(values, nil)
	}
}

// DefaultGroupBy partitions by series and aggregation kind.
var DefaultGroupBy = []string{models.ColumnTag, models.ColumnStat}

var aliasPattern = regexp.MustCompile(`^(\d*)\s*([A-Za-z]+)$`)

var aliasUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"t": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseInterval accepts Go durations ("90s", "1h30m") and offset aliases
// ("15min", "15T", "1H", "D").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("interval %q must be positive", s)
		}
		return d, nil
	}
	m := aliasPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	unit, ok := aliasUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("invalid interval unit in %q", s)
	}
	n := 1
	if m[1] != "" {
		var err error
		if n, err = strconv.Atoi(m[1]); err != nil || n <= 0 {
			return 0, fmt.Errorf("interval %q must be positive", s)
		}
	}
	return time.Duration(n) * unit, nil
}

type groupKey struct {
	tag, stat string
}

type window struct {
	start  time.Time
	values []float64
}

type partition struct {
	key     groupKey
	units   map[string]struct{}
	windows map[int64]*window
}

// Resample bins rows into windows of interval aligned to the Unix epoch and
// reduces each window with agg. Rows are partitioned by the groupBy columns
// (DefaultGroupBy when empty). Empty windows emit nothing; a window whose
// rows are all null emits a null value. Output is sorted by timestamp and
// carries the partition's group values, plus its unit when uniform.
func Resample(rows []models.TidyRow, interval time.Duration, agg Aggregator, groupBy ...string) []models.TidyRow {
	if len(rows) == 0 || interval <= 0 {
		return append([]models.TidyRow(nil), rows...)
	}
	if len(groupBy) == 0 {
		groupBy = DefaultGroupBy
	}
	var byTag, byStat bool
	for _, g := range groupBy {
		byTag = byTag || g == models.ColumnTag
		byStat = byStat || g == models.ColumnStat
	}

	parts := make(map[groupKey]*partition)
	var order []groupKey
	for _, r := range rows {
		var k groupKey
		if byTag {
			k.tag = r.Tag
		}
		if byStat {
			k.stat = r.Stat
		}
		p, ok := parts[k]
		if !ok {
			p = &partition{key: k, units: map[string]struct{}{}, windows: map[int64]*window{}}
			parts[k] = p
			order = append(order, k)
		}
		p.units[r.Unit] = struct{}{}

		start := windowStart(r.Timestamp, interval)
		w, ok := p.windows[start.UnixNano()]
		if !ok {
			w = &window{start: start}
			p.windows[start.UnixNano()] = w
		}
		if r.Value != nil {
			w.values = append(w.values, *r.Value)
		}
	}

	var out []models.TidyRow
	for _, k := range order {
		p := parts[k]
		unit := ""
		if len(p.units) == 1 {
			for u := range p.units {
				unit = u
			}
		}
		starts := make([]int64, 0, len(p.windows))
		for s := range p.windows {
			starts = append(starts, s)
		}
		sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
		for _, s := range starts {
			w := p.windows[s]
			row := models.TidyRow{Timestamp: w.start, Tag: k.tag, Stat: k.stat, Unit: unit}
			if len(w.values) > 0 {
				row.Value = models.Float(agg.reduce(w.values))
			}
			out = append(out, row)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func windowStart(t time.Time, interval time.Duration) time.Time {
	ns := t.UnixNano()
	step := int64(interval)
	floor := ns / step * step
	if ns < 0 && ns%step != 0 {
		floor -= step
	}
	return time.Unix(0, floor).UTC()
}
