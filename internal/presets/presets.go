// Package presets holds the canned date ranges and sampling intervals an
// operator can pick instead of typing values.
package presets

import (
	"fmt"
	"strconv"
	"time"

	"DataLink.piwebapi/internal/models"
)

// DatePresets lists the date range presets with their labels.
var DatePresets = []Option{
	{Value: "yesterday", Label: "Yesterday"},
	{Value: "7", Label: "Last 7 Days"},
	{Value: "30", Label: "Last 30 Days"},
	{Value: "365", Label: "Past 12 Months"},
}

// IntervalPresets lists the interval presets with their labels.
var IntervalPresets = []Option{
	{Value: "15m", Label: "15 minutes"},
	{Value: "hourly", Label: "Hourly"},
	{Value: "daily", Label: "Daily"},
	{Value: "weekly", Label: "Weekly"},
	{Value: "monthly", Label: "Monthly"},
}

// Option is one selectable preset.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Range is a start/end date pair in models.DateLayout.
type Range struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// Interval is an interval magnitude and unit as accepted by
// models.QueryRequest.
type Interval struct {
	Value string `json:"interval_value"`
	Unit  string `json:"interval_unit"`
}

// DateRange computes the range of preset relative to today. "yesterday" is
// a single day; "7", "30" and "365" end today and span that many days.
func DateRange(preset string, today time.Time) (Range, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	switch preset {
	case "yesterday":
		y := day.AddDate(0, 0, -1).Format(models.DateLayout)
		return Range{Start: y, End: y}, nil
	case "7", "30", "365":
		days, _ := strconv.Atoi(preset)
		return Range{
			Start: day.AddDate(0, 0, -(days - 1)).Format(models.DateLayout),
			End:   day.Format(models.DateLayout),
		}, nil
	}
	return Range{}, &models.ValidationError{Field: "preset", Message: fmt.Sprintf("unknown date preset %q", preset)}
}

// IntervalFor maps an interval preset to its magnitude and unit. Days,
// weeks and months are expressed in hours.
func IntervalFor(preset string) (Interval, error) {
	switch preset {
	case "15m":
		return Interval{Value: "15", Unit: string(models.IntervalMinute)}, nil
	case "hourly":
		return Interval{Value: "1", Unit: string(models.IntervalHour)}, nil
	case "daily":
		return Interval{Value: "24", Unit: string(models.IntervalHour)}, nil
	case "weekly":
		return Interval{Value: "168", Unit: string(models.IntervalHour)}, nil
	case "monthly":
		return Interval{Value: "720", Unit: string(models.IntervalHour)}, nil
	}
	return Interval{}, &models.ValidationError{Field: "preset", Message: fmt.Sprintf("unknown interval preset %q", preset)}
}
