package normalize

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DataLink.piwebapi/internal/models"
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseSingleFlatItem(t *testing.T) {
	rows, strategy := New(nil).ParseWithStrategy([]byte(`{"Items":[{"Timestamp":"2025-06-01T00:00:00Z","Value":12.5}]}`))
	require.Len(t, rows, 1)
	assert.Equal(t, "flat-items", strategy)
	assert.True(t, utc("2025-06-01T00:00:00Z").Equal(rows[0].Timestamp))
	assert.Equal(t, 12.5, *rows[0].Value)
	assert.Empty(t, rows[0].Tag)
	assert.Equal(t, []string{models.ColumnTimestamp, models.ColumnValue}, models.Columns(rows))
}

func TestParseNestedItems(t *testing.T) {
	raw := `{"Items":[
		{"Name":"A","UnitsAbbreviation":"Amp","Items":[
			{"Timestamp":"2025-06-01T00:10:00Z","Value":2},
			{"Timestamp":"2025-06-01T00:00:00Z","Value":1}]},
		{"Name":"B","Items":[
			{"Timestamp":"2025-06-01T00:05:00Z","Value":{"Name":"On","Value":3}}]},
		{"Name":"C","Items":[{"Foo":"bar"}]},
		{"Name":"D","Items":[]}
	]}`
	rows, strategy := New(nil).ParseWithStrategy([]byte(raw))
	assert.Equal(t, "nested-items", strategy)
	require.Len(t, rows, 3, "series without timestamp and value fields contribute nothing")

	assert.Equal(t, "A", rows[0].Tag)
	assert.Equal(t, 1.0, *rows[0].Value)
	assert.Equal(t, "Amp", rows[0].Unit)
	assert.Equal(t, "B", rows[1].Tag)
	assert.Equal(t, 3.0, *rows[1].Value)
	assert.Empty(t, rows[1].Unit)
	assert.Equal(t, "A", rows[2].Tag)
	assert.True(t, utc("2025-06-01T00:10:00Z").Equal(rows[2].Timestamp))
}

func TestParseNestedItemsRowCount(t *testing.T) {
	var series []string
	want := 0
	for s := 0; s < 4; s++ {
		var items []string
		for i := 0; i <= s; i++ {
			items = append(items, fmt.Sprintf(`{"Timestamp":"2025-06-01T0%d:00:00Z","Value":%d}`, i, i))
		}
		want += len(items)
		series = append(series, fmt.Sprintf(`{"Name":"S%d","Items":[%s]}`, s, strings.Join(items, ",")))
	}
	rows := Parse([]byte(`{"Items":[` + strings.Join(series, ",") + `]}`))
	assert.Len(t, rows, want)
}

func TestParseNestedItemsKeepsOwnFields(t *testing.T) {
	raw := `{"Items":[{"Name":"Outer","Stat":"Average","Items":[
		{"time":"2025-06-01T00:00:00Z","val":5,"Tag":"Inner","SummaryType":"Maximum","Units":"MW"}]}]}`
	rows := Parse([]byte(raw))
	require.Len(t, rows, 1)
	assert.Equal(t, "Inner", rows[0].Tag)
	assert.Equal(t, "Maximum", rows[0].Stat)
	assert.Equal(t, "MW", rows[0].Unit)
}

func TestParseFlatItemsSynonyms(t *testing.T) {
	raw := `{"Items":[
		{"DateTime":"2025-06-01 00:15:00","DoubleValue":"7.25","Point":"P1","Unit":"A"},
		{"DateTime":"not a time","DoubleValue":1},
		{"DateTime":"2025-06-01 00:00:00","DoubleValue":"n/a","Point":"P1"}
	]}`
	rows := Parse([]byte(raw))
	require.Len(t, rows, 2, "unparsable timestamps are dropped")
	assert.Nil(t, rows[0].Value, "non-numeric values become null")
	assert.Equal(t, 7.25, *rows[1].Value)
	assert.Equal(t, "P1", rows[1].Tag)
	assert.Equal(t, "A", rows[1].Unit)
}

func TestParseFlatItemsNeedTimestampAndValue(t *testing.T) {
	assert.Empty(t, Parse([]byte(`{"Items":[{"Timestamp":"2025-06-01T00:00:00Z"}]}`)))
	assert.Empty(t, Parse([]byte(`{"Items":[{"Value":1}]}`)))
}

func TestParseSummaryItems(t *testing.T) {
	raw := `{"Items":[
		{"Type":"Maximum","Value":{"Timestamp":"2025-06-01T12:00:00Z","Value":20,"UnitsAbbreviation":"A"}},
		{"Type":"Average","Value":{"Timestamp":"2025-06-01T00:00:00Z","Value":10,"UnitsAbbreviation":"A"}}
	]}`
	rows, strategy := New(nil).ParseWithStrategy([]byte(raw))
	assert.Equal(t, "summary-items", strategy)
	require.Len(t, rows, 2)
	assert.Equal(t, "Average", rows[0].Stat)
	assert.Equal(t, 10.0, *rows[0].Value)
	assert.Equal(t, "A", rows[0].Unit)
	assert.Equal(t, "Maximum", rows[1].Stat)
}

func TestParsePairedArrays(t *testing.T) {
	raw := `{"Name":"FDR-1","UnitsAbbreviation":"A",
		"Timestamps":["2025-06-01T00:00:00Z","2025-06-01T00:15:00Z","2025-06-01T00:30:00Z"],
		"Values":[1,2,3,4]}`
	rows, strategy := New(nil).ParseWithStrategy([]byte(raw))
	assert.Equal(t, "paired-arrays", strategy)
	require.Len(t, rows, 3, "zipped to the shorter list")
	for _, r := range rows {
		assert.Equal(t, "FDR-1", r.Tag)
		assert.Equal(t, "A", r.Unit)
	}
	assert.Equal(t, 3.0, *rows[2].Value)
}

func TestParseCSV(t *testing.T) {
	raw := "\xef\xbb\xbfTime,Value,Name,Units\n" +
		"2025-06-01T00:15:00Z,2.5,A,Amp\n" +
		"2025-06-01T00:00:00Z,bad,A,Amp\n" +
		"garbage,1,A,Amp\n"
	rows, strategy := New(nil).ParseWithStrategy([]byte(raw))
	assert.Equal(t, "csv", strategy)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Value)
	assert.Equal(t, 2.5, *rows[1].Value)
	assert.Equal(t, "A", rows[1].Tag)
	assert.Equal(t, "Amp", rows[1].Unit)
}

func TestParseCSVNeedsTimestampAndValueColumns(t *testing.T) {
	assert.Empty(t, Parse([]byte("when,value\n2025-06-01,1\n")))
	assert.Empty(t, Parse([]byte("timestamp,reading\n2025-06-01,1\n")))
}

func TestParseUnrecognized(t *testing.T) {
	for _, raw := range []string{
		"",
		"null",
		"[]",
		`{"Items":"nope"}`,
		`{"Links":{},"Items":[]}`,
		"<html><body>Login</body></html>",
		"\x00\x01\x02",
		`{"Items":[{"Timestamp":`,
	} {
		assert.Empty(t, Parse([]byte(raw)), "%q", raw)
	}
}

func TestParseIsSortedAndStable(t *testing.T) {
	raw := `{"Items":[
		{"Timestamp":"2025-06-01T02:00:00Z","Value":3,"Name":"x"},
		{"Timestamp":"2025-06-01T01:00:00Z","Value":1,"Name":"first"},
		{"Timestamp":"2025-06-01T01:00:00Z","Value":2,"Name":"second"}
	]}`
	rows := Parse([]byte(raw))
	require.Len(t, rows, 3)
	assert.Equal(t, "first", rows[0].Tag)
	assert.Equal(t, "second", rows[1].Tag)
	assert.Equal(t, "x", rows[2].Tag)
}

func TestCustomStrategyOrder(t *testing.T) {
	calls := 0
	n := New(nil,
		Strategy{Name: "panics", Parse: func([]byte) []models.TidyRow { calls++; panic("boom") }},
		Strategy{Name: "csv", Parse: ParseCSV},
	)
	rows, strategy := n.ParseWithStrategy([]byte("timestamp,value\n2025-06-01T00:00:00Z,1\n"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "csv", strategy)
	assert.Len(t, rows, 1)
}

func TestStampStat(t *testing.T) {
	rows := []models.TidyRow{{Value: models.Float(1)}, {Value: models.Float(2)}}

	stamped := StampStat(rows, []models.AggregationKind{models.Average})
	for _, r := range stamped {
		assert.Equal(t, "Average", r.Stat)
	}
	assert.Empty(t, rows[0].Stat, "input is not modified")

	for _, r := range StampStat(rows, []models.AggregationKind{models.Average, models.Maximum}) {
		assert.Empty(t, r.Stat)
	}
	for _, r := range StampStat(rows, nil) {
		assert.Empty(t, r.Stat)
	}

	mixed := []models.TidyRow{{Stat: "Maximum"}, {}}
	assert.Equal(t, mixed, StampStat(mixed, []models.AggregationKind{models.Average}))
}

func TestStampUnit(t *testing.T) {
	rows := []models.TidyRow{{}, {}}
	for _, r := range StampUnit(rows, "Amp") {
		assert.Equal(t, "Amp", r.Unit)
	}
	withUnit := []models.TidyRow{{Unit: "kV"}, {}}
	assert.Equal(t, withUnit, StampUnit(withUnit, "Amp"))
}

func TestFromSamplesAndSummary(t *testing.T) {
	rows := FromSamples("SINUSOID", []models.RawSample{
		{Timestamp: "2025-06-01T01:00:00Z", Value: float64(2), UnitsAbbreviation: "A"},
		{Timestamp: "2025-06-01T00:00:00Z", Value: map[string]any{"Name": "Shutdown", "Value": float64(248)}},
		{Timestamp: "bogus", Value: float64(1)},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 248.0, *rows[0].Value)
	assert.Equal(t, "SINUSOID", rows[1].Tag)
	assert.Equal(t, "A", rows[1].Unit)

	rows = FromSummary("SINUSOID", models.SummaryResponse{Items: []models.SummaryItem{
		{Type: "Average", Value: models.RawSample{Timestamp: "2025-06-01T00:00:00Z", Value: float64(10)}},
		{Type: "Maximum", Value: models.RawSample{Timestamp: "2025-06-01T00:00:00Z", Value: float64(20)}},
	}})
	require.Len(t, rows, 2)
	assert.Equal(t, "Average", rows[0].Stat)
	assert.Equal(t, "Maximum", rows[1].Stat)
}

func TestParseNonFiniteValuesBecomeNull(t *testing.T) {
	raw := `{"Items":[
		{"Timestamp":"2025-06-01T00:00:00Z","Value":"Infinity"},
		{"Timestamp":"2025-06-01T00:15:00Z","Value":"-inf"},
		{"Timestamp":"2025-06-01T00:30:00Z","Value":"NaN"},
		{"Timestamp":"2025-06-01T00:45:00Z","Value":4}
	]}`
	rows := Parse([]byte(raw))
	require.Len(t, rows, 4)
	for _, r := range rows[:3] {
		assert.Nil(t, r.Value, r.Timestamp)
	}
	assert.Equal(t, 4.0, *rows[3].Value)

	rows = Parse([]byte("timestamp,value\n2025-06-01T00:00:00Z,inf\n"))
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Value)
}

func TestParseCSVQuotesInsideFields(t *testing.T) {
	raw := "timestamp,value,tag\n" +
		"2025-06-01T00:00:00Z,1,A\n" +
		"2025-06-01T00:15:00Z,2,B 12\" pipe\n" +
		"2025-06-01T00:30:00Z,3,A\n"
	rows, strategy := New(nil).ParseWithStrategy([]byte(raw))
	assert.Equal(t, "csv", strategy)
	require.Len(t, rows, 3)
	assert.Equal(t, `B 12" pipe`, rows[1].Tag)
	assert.Equal(t, 2.0, *rows[1].Value)
	assert.Equal(t, "A", rows[2].Tag)
}
