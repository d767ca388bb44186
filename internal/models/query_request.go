package models

// QueryRequest is the raw operator input for one query, as posted to the HTTP
// API or collected from CLI flags. NewQueryParameters normalizes it.
type QueryRequest struct {
	Devices           map[string]string `json:"devices"`
	StartDate         string            `json:"start_date"`
	EndDate           string            `json:"end_date"`
	IntervalValue     string            `json:"interval_value"`
	IntervalUnit      string            `json:"interval_unit"`
	Datasets          []string          `json:"datasets"`
	OutputUnit        string            `json:"output_unit"`
	CoincidentalPeaks bool              `json:"coincidental_peaks"`
	MultiPhase        bool              `json:"multi_phase"`
	MultiPhaseAverage bool              `json:"multi_phase_average"`
}
