package cli

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/normalize"
	"DataLink.piwebapi/internal/repository"
	"DataLink.piwebapi/internal/service"
)

type tagReader func(ctx context.Context, svc *service.DataService, tag string) ([]models.TidyRow, error)

// readTags reads each tag in turn. Failing tags are reported together after
// the rows of the others are written.
func (a *cliApp) readTags(cmd *cobra.Command, tags []string, read tagReader) error {
	built, err := a.app(cmd.Context())
	if err != nil {
		return err
	}
	var (
		rows   []models.TidyRow
		result *multierror.Error
	)
	for _, tag := range tags {
		got, err := read(cmd.Context(), built.Service, tag)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", tag, err))
			continue
		}
		rows = append(rows, got...)
	}
	normalize.SortRows(rows)
	if len(rows) > 0 {
		if err := a.writeRows(rows); err != nil {
			return err
		}
	}
	return result.ErrorOrNil()
}

func newValueCmd(a *cliApp) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "value TAG...",
		Short: "Print the current (or --time) value of tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readTags(cmd, args, func(ctx context.Context, svc *service.DataService, tag string) ([]models.TidyRow, error) {
				return svc.Value(ctx, tag, at)
			})
		},
	}
	cmd.Flags().StringVar(&at, "time", "*", "PI time expression")
	return cmd
}

func newRecordedCmd(a *cliApp) *cobra.Command {
	var (
		start, end string
		boundary   string
		maxPoints  int
	)
	cmd := &cobra.Command{
		Use:   "recorded TAG...",
		Short: "Print the recorded events of tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readTags(cmd, args, func(ctx context.Context, svc *service.DataService, tag string) ([]models.TidyRow, error) {
				return svc.Recorded(ctx, tag, start, end, repository.BoundaryType(boundary), maxPoints)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "*-1d", "start time")
	cmd.Flags().StringVar(&end, "end", "*", "end time")
	cmd.Flags().StringVar(&boundary, "boundary", string(repository.BoundaryInside), "Inside, Outside or Interpolated")
	cmd.Flags().IntVar(&maxPoints, "max", 0, "maximum events per tag (0 for the server default)")
	return cmd
}

func newInterpolatedCmd(a *cliApp) *cobra.Command {
	var start, end, interval string
	cmd := &cobra.Command{
		Use:   "interpolated TAG...",
		Short: "Print evenly spaced interpolated samples of tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readTags(cmd, args, func(ctx context.Context, svc *service.DataService, tag string) ([]models.TidyRow, error) {
				return svc.Interpolated(ctx, tag, start, end, interval)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "*-1d", "start time")
	cmd.Flags().StringVar(&end, "end", "*", "end time")
	cmd.Flags().StringVar(&interval, "interval", "1h", "sample spacing")
	return cmd
}

func newSummaryCmd(a *cliApp) *cobra.Command {
	var (
		start, end string
		opts       repository.SummaryOptions
	)
	cmd := &cobra.Command{
		Use:   "summary TAG...",
		Short: "Print summary aggregates of tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readTags(cmd, args, func(ctx context.Context, svc *service.DataService, tag string) ([]models.TidyRow, error) {
				return svc.Summary(ctx, tag, start, end, opts)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "*-1d", "start time")
	cmd.Flags().StringVar(&end, "end", "*", "end time")
	cmd.Flags().StringSliceVar(&opts.Types, "type", []string{string(models.Average)}, "summary types (Average, Minimum, Maximum, Total, Count...)")
	cmd.Flags().StringVar(&opts.CalculationBasis, "basis", "TimeWeighted", "TimeWeighted or EventWeighted")
	cmd.Flags().StringVar(&opts.SampleInterval, "interval", "", "roll up per interval (e.g. 1h)")
	cmd.Flags().StringVar(&opts.TimeType, "time-type", "Auto", "Auto, Local or UTC")
	return cmd
}

func newResolveCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve TAG...",
		Short: "Print the WebId of tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := a.app(cmd.Context())
			if err != nil {
				return err
			}
			var result *multierror.Error
			for _, tag := range args {
				webID, err := built.Service.Resolve(cmd.Context(), tag)
				if err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", tag, err))
					continue
				}
				fmt.Fprintf(a.stdout, "%s\t%s\n", tag, webID)
			}
			return result.ErrorOrNil()
		},
	}
}
