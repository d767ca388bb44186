package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/normalize"
)

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteCSV(&buf, []models.TidyRow{
		{Timestamp: ts, Tag: "FDR,1", Value: models.Float(12.5), Unit: "A"},
		{Timestamp: ts.Add(15 * time.Minute), Tag: "FDR,1", Unit: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,tag,value,unit\n"+
			"2025-06-01T00:00:00Z,\"FDR,1\",12.5,A\n"+
			"2025-06-01T00:15:00Z,\"FDR,1\",,A\n",
		buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestWriteCSVReparses(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))
	rows := []models.TidyRow{
		{Timestamp: ts, Tag: "A", Stat: "Average", Value: models.Float(1.0 / 3), Unit: "Amp"},
		{Timestamp: ts.Add(time.Hour), Tag: "A", Stat: "Average", Unit: "Amp"},
		{Timestamp: ts.Add(2 * time.Hour), Tag: "B", Stat: "Maximum", Value: models.Float(-4e-7), Unit: "Amp"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	got, strategy := normalize.New(nil).ParseWithStrategy(buf.Bytes())
	assert.Equal(t, "csv", strategy)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.True(t, rows[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, rows[i].Tag, got[i].Tag)
		assert.Equal(t, rows[i].Stat, got[i].Stat)
		assert.Equal(t, rows[i].Unit, got[i].Unit)
		assert.Equal(t, rows[i].Value, got[i].Value)
	}
}
