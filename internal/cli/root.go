// Package cli implements the datalink command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/app"
	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/export"
	"DataLink.piwebapi/internal/logging"
	"DataLink.piwebapi/internal/models"
)

type cliApp struct {
	baseURL  string
	catalog  string
	cacheDir string
	logLevel string
	output   string

	getenv func(string) string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	built  *app.App
	logger *zap.Logger
}

// NewRootCommand builds the datalink command tree on the process streams.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Getenv, os.Stdin, os.Stdout, os.Stderr)
}

// NewRootCommandWithIO builds the command tree on the given streams and
// environment lookup.
func NewRootCommandWithIO(getenv func(string) string, in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(getenv, in, out, errOut)
}

func newRootCommand(getenv func(string) string, in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &cliApp{getenv: getenv, stdin: in, stdout: out, stderr: errOut}
	return a.rootCommand()
}

func (a *cliApp) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "datalink",
		Short:         "Query PI Web API time series as tidy rows",
		Long:          "datalink previews and runs PI Web API queries, reads tag streams and serves the same operations over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "PI Web API root (overrides PI_BASE_URL)")
	cmd.PersistentFlags().StringVar(&a.catalog, "catalog", "", "device catalog YAML (overrides DATALINK_CATALOG)")
	cmd.PersistentFlags().StringVar(&a.cacheDir, "cache-dir", "", "directory for Parquet cache files (overrides DATALINK_CACHE_DIR)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "csv", "row output format: csv or json")

	cmd.AddCommand(
		newPreviewCmd(a),
		newExecuteCmd(a),
		newFetchCmd(a),
		newValueCmd(a),
		newRecordedCmd(a),
		newInterpolatedCmd(a),
		newSummaryCmd(a),
		newResolveCmd(a),
		newCatalogCmd(a),
		newServeCmd(a),
	)
	for _, sub := range cmd.Commands() {
		if sub.RunE != nil {
			sub.RunE = a.closing(sub.RunE)
		}
	}
	return cmd
}

// closing releases the built app after run, whether or not it failed.
func (a *cliApp) closing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

// config reads the environment, applying flag overrides before validation.
func (a *cliApp) config() (config.Config, error) {
	getenv := func(key string) string {
		switch {
		case key == "PI_BASE_URL" && a.baseURL != "":
			return a.baseURL
		case key == "DATALINK_CATALOG" && a.catalog != "":
			return a.catalog
		case key == "DATALINK_CACHE_DIR" && a.cacheDir != "":
			return a.cacheDir
		case key == "LOG_LEVEL" && a.logLevel != "":
			return a.logLevel
		case key == "LOG_FORMAT" && a.getenv(key) == "":
			return "console"
		}
		return a.getenv(key)
	}
	return config.FromEnv(getenv)
}

// app builds the application once per invocation.
func (a *cliApp) app(ctx context.Context) (*app.App, error) {
	if a.built != nil {
		return a.built, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	built, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.built, a.logger = built, logger
	zap.ReplaceGlobals(logger)
	return built, nil
}

func (a *cliApp) close() error {
	if a.built == nil {
		return nil
	}
	err := a.built.Close()
	_ = a.logger.Sync()
	a.built = nil
	return err
}

func (a *cliApp) writeRows(rows []models.TidyRow) error {
	switch strings.ToLower(a.output) {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []models.TidyRow{}
		}
		return enc.Encode(rows)
	case "csv", "":
		return export.WriteCSV(a.stdout, rows)
	}
	return fmt.Errorf("unknown output format %q (want csv or json)", a.output)
}
