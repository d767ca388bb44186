package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryString(t *testing.T) {
	p := NewQueryParameters(baseRequest())
	assert.Equal(t,
		"substation=24&start_date=2025-06-01&end_date=2025-06-02&interval_value=15&interval_unit=minute"+
			"&datasets=Average&output_unit=Amp&coincidental_peaks=false&multi_phase=false&multi_phase_average=false",
		p.QueryString())
}

func TestQueryStringEscapes(t *testing.T) {
	req := baseRequest()
	req.Devices = map[string]string{"line": "Line 1"}
	req.Datasets = []string{"Minimum", "Average"}
	q := NewQueryParameters(req).QueryString()

	assert.Contains(t, q, "line=Line+1")
	assert.Contains(t, q, "datasets=Minimum%2CAverage")
}

func TestComposeURL(t *testing.T) {
	p := NewQueryParameters(baseRequest())
	assert.Equal(t, "https://pi.example.com/piwebapi?"+p.QueryString(), p.ComposeURL("https://pi.example.com/piwebapi"))
}

func TestPreviewText(t *testing.T) {
	req := baseRequest()
	req.Devices = map[string]string{"substation": "24", "line": "Line 1"}
	req.StartDate, req.EndDate = "2025-06-01", "2025-06-01"
	req.MultiPhase = true
	p := NewQueryParameters(req)

	want := "Selected parameters:\n" +
		"{'substation': '24', 'line': 'Line 1', 'start_date': '2025-06-01', 'end_date': '2025-06-01', " +
		"'interval_value': '15', 'interval_unit': 'minute', 'datasets': 'Average', 'output_unit': 'Amp', " +
		"'coincidental_peaks': 'false', 'multi_phase': 'true', 'multi_phase_average': 'false'}\n\n" +
		"Example REST query URL:\n" +
		"http://pi/piwebapi?substation=24&line=Line+1&start_date=2025-06-01&end_date=2025-06-01" +
		"&interval_value=15&interval_unit=minute&datasets=Average&output_unit=Amp" +
		"&coincidental_peaks=false&multi_phase=true&multi_phase_average=false"
	assert.Equal(t, want, p.PreviewText("http://pi/piwebapi"))
}
