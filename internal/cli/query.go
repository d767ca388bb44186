package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/presets"
	"DataLink.piwebapi/internal/resample"
	"DataLink.piwebapi/internal/service"
)

type queryFlags struct {
	devices           map[string]*string
	start, end        string
	interval, unit    string
	datasets          []string
	outputUnit        string
	coincidentalPeaks bool
	multiPhase        bool
	multiPhaseAverage bool

	datePreset     string
	intervalPreset string
	previousRange  string
}

func addQueryFlags(cmd *cobra.Command) *queryFlags {
	f := &queryFlags{devices: map[string]*string{}}
	for _, slot := range models.DeviceSlots {
		f.devices[slot] = cmd.Flags().String(slot, "", slot+" identifier")
	}
	cmd.Flags().StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.interval, "interval", "0", "sampling interval magnitude")
	cmd.Flags().StringVar(&f.unit, "unit", "minute", "sampling interval unit: minute or hour")
	cmd.Flags().StringSliceVar(&f.datasets, "dataset", nil, "aggregation kinds: Minimum, Average, Maximum")
	cmd.Flags().StringVar(&f.outputUnit, "output-unit", "Amp", "output unit: Amp or MVW")
	cmd.Flags().BoolVar(&f.coincidentalPeaks, "coincidental-peaks", false, "request coincidental peaks")
	cmd.Flags().BoolVar(&f.multiPhase, "multi-phase", false, "request per-phase values")
	cmd.Flags().BoolVar(&f.multiPhaseAverage, "multi-phase-average", false, "average the phases (needs --multi-phase)")
	cmd.Flags().StringVar(&f.datePreset, "date-preset", "", "yesterday, 7, 30 or 365 (overrides --start/--end)")
	cmd.Flags().StringVar(&f.intervalPreset, "interval-preset", "", "15m, hourly, daily, weekly or monthly (overrides --interval/--unit)")
	cmd.Flags().StringVar(&f.previousRange, "range", "", "previous range label from the catalog (overrides --start/--end)")
	return f
}

// params applies presets and builds the query parameters.
func (f *queryFlags) params(catalog config.Catalog, today time.Time) (models.QueryParameters, error) {
	req := models.QueryRequest{
		Devices:           map[string]string{},
		StartDate:         f.start,
		EndDate:           f.end,
		IntervalValue:     f.interval,
		IntervalUnit:      f.unit,
		Datasets:          f.datasets,
		OutputUnit:        f.outputUnit,
		CoincidentalPeaks: f.coincidentalPeaks,
		MultiPhase:        f.multiPhase,
		MultiPhaseAverage: f.multiPhaseAverage,
	}
	for slot, v := range f.devices {
		if *v != "" {
			req.Devices[slot] = *v
		}
	}

	if f.previousRange != "" {
		r, ok := catalog.Range(f.previousRange)
		if !ok {
			return models.QueryParameters{}, &models.ValidationError{Field: "range", Message: fmt.Sprintf("unknown previous range %q", f.previousRange)}
		}
		req.StartDate, req.EndDate = r.Start, r.End
	}
	if f.datePreset != "" {
		r, err := presets.DateRange(f.datePreset, today)
		if err != nil {
			return models.QueryParameters{}, err
		}
		req.StartDate, req.EndDate = r.Start, r.End
	}
	if f.intervalPreset != "" {
		iv, err := presets.IntervalFor(f.intervalPreset)
		if err != nil {
			return models.QueryParameters{}, err
		}
		req.IntervalValue, req.IntervalUnit = iv.Value, iv.Unit
	}
	return models.NewQueryParameters(req), nil
}

func newPreviewCmd(a *cliApp) *cobra.Command {
	var f *queryFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the selected parameters and the query URL without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := a.app(cmd.Context())
			if err != nil {
				return err
			}
			params, err := f.params(built.Catalog, time.Now())
			if err != nil {
				return err
			}
			text, err := built.Service.Preview(params)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, text)
			return nil
		},
	}
	f = addQueryFlags(cmd)
	return cmd
}

func newExecuteCmd(a *cliApp) *cobra.Command {
	var f *queryFlags
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Send the query and print the raw response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := a.app(cmd.Context())
			if err != nil {
				return err
			}
			params, err := f.params(built.Catalog, time.Now())
			if err != nil {
				return err
			}
			body, err := built.Service.Execute(cmd.Context(), params)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(body)
			return err
		},
	}
	f = addQueryFlags(cmd)
	return cmd
}

func newFetchCmd(a *cliApp) *cobra.Command {
	var (
		f        *queryFlags
		every    string
		how      string
		noCache  bool
		quietLog bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Send the query and print tidy rows, caching them as Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := a.app(cmd.Context())
			if err != nil {
				return err
			}
			params, err := f.params(built.Catalog, time.Now())
			if err != nil {
				return err
			}
			opts := service.FetchOptions{How: resample.ParseAggregator(how), NoCache: noCache}
			if every != "" {
				if opts.Resample, err = resample.ParseInterval(every); err != nil {
					return err
				}
			}
			result, err := built.Service.Fetch(cmd.Context(), params, opts)
			if err != nil {
				return err
			}
			if err := a.writeRows(result.Rows); err != nil {
				return err
			}
			if result.CachePath != "" && !quietLog {
				size := "?"
				if st, err := os.Stat(result.CachePath); err == nil {
					size = humanize.Bytes(uint64(st.Size()))
				}
				fmt.Fprintf(a.stderr, "%d rows (%s), cached at %s (%s)\n",
					len(result.Rows), result.Strategy, result.CachePath, size)
			}
			return nil
		},
	}
	f = addQueryFlags(cmd)
	cmd.Flags().StringVar(&every, "resample", "", "resample to this interval (e.g. 1h, 15min)")
	cmd.Flags().StringVar(&how, "how", "mean", "resample aggregator: mean, sum, min or max")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip writing the Parquet cache file")
	cmd.Flags().BoolVarP(&quietLog, "quiet", "q", false, "do not report the cache file")
	return cmd
}
