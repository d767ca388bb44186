// Package normalize turns PI Web API payloads of any known shape into tidy
// rows.
package normalize

import (
	"sort"

	"go.uber.org/zap"

	"DataLink.piwebapi/internal/metrics"
	"DataLink.piwebapi/internal/models"
)

// Normalizer tries its strategies in order; the first one producing rows
// wins.
type Normalizer struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New returns a Normalizer over strategies, or DefaultStrategies when none
// are given.
func New(logger *zap.Logger, strategies ...Strategy) *Normalizer {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{strategies: strategies, logger: logger}
}

// Parse never fails: an unrecognized payload yields no rows.
func (n *Normalizer) Parse(raw []byte) []models.TidyRow {
	rows, _ := n.ParseWithStrategy(raw)
	return rows
}

// ParseWithStrategy also reports which strategy matched ("" for none).
func (n *Normalizer) ParseWithStrategy(raw []byte) ([]models.TidyRow, string) {
	for _, s := range n.strategies {
		rows := safeParse(s, raw)
		if len(rows) > 0 {
			metrics.NormalizerMatches.WithLabelValues(s.Name).Inc()
			n.logger.Debug("parsed payload", zap.String("strategy", s.Name), zap.Int("rows", len(rows)))
			return rows, s.Name
		}
	}
	metrics.NormalizerMatches.WithLabelValues("none").Inc()
	n.logger.Debug("no strategy recognized payload", zap.Int("bytes", len(raw)))
	return nil, ""
}

func safeParse(s Strategy, raw []byte) (rows []models.TidyRow) {
	defer func() {
		if recover() != nil {
			rows = nil
		}
	}()
	return s.Parse(raw)
}

// Parse runs the default strategies.
func Parse(raw []byte) []models.TidyRow {
	return New(nil).Parse(raw)
}

// finalize drops candidates with unparsable timestamps and sorts the rest
// ascending, keeping payload order among equal timestamps.
func finalize(cands []candidate) []models.TidyRow {
	rows := make([]models.TidyRow, 0, len(cands))
	for _, c := range cands {
		if c.valid {
			rows = append(rows, c.row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	SortRows(rows)
	return rows
}

// SortRows stable-sorts rows by timestamp.
func SortRows(rows []models.TidyRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
}

// StampStat fills the stat of every row when no row has one and exactly one
// kind was requested. With several kinds the rows cannot be attributed and
// are left alone.
func StampStat(rows []models.TidyRow, kinds []models.AggregationKind) []models.TidyRow {
	if len(kinds) != 1 {
		return rows
	}
	for _, r := range rows {
		if r.Stat != "" {
			return rows
		}
	}
	out := make([]models.TidyRow, len(rows))
	for i, r := range rows {
		r.Stat = string(kinds[0])
		out[i] = r
	}
	return out
}

// StampUnit fills the unit of every row when no row has one.
func StampUnit(rows []models.TidyRow, unit string) []models.TidyRow {
	if unit == "" {
		return rows
	}
	for _, r := range rows {
		if r.Unit != "" {
			return rows
		}
	}
	out := make([]models.TidyRow, len(rows))
	for i, r := range rows {
		r.Unit = unit
		out[i] = r
	}
	return out
}

// FromSamples converts stream events of one tag into tidy rows.
func FromSamples(tag string, samples []models.RawSample) []models.TidyRow {
	cands := make([]candidate, len(samples))
	for i, s := range samples {
		ts, ok := models.ParseTimestamp(s.Timestamp)
		cands[i] = candidate{
			ts:    ts,
			valid: ok,
			row: models.TidyRow{
				Timestamp: ts,
				Tag:       tag,
				Value:     s.NumericValue(),
				Unit:      s.UnitsAbbreviation,
			},
		}
	}
	return finalize(cands)
}

// FromSummary converts a summary response of one tag into tidy rows, one per
// aggregate (and per interval in rollup mode).
func FromSummary(tag string, resp models.SummaryResponse) []models.TidyRow {
	cands := make([]candidate, len(resp.Items))
	for i, it := range resp.Items {
		ts, ok := models.ParseTimestamp(it.Value.Timestamp)
		cands[i] = candidate{
			ts:    ts,
			valid: ok,
			row: models.TidyRow{
				Timestamp: ts,
				Tag:       tag,
				Stat:      it.Type,
				Value:     it.Value.NumericValue(),
				Unit:      it.Value.UnitsAbbreviation,
			},
		}
	}
	return finalize(cands)
}
