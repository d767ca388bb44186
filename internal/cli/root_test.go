package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
)

// fakePI answers the query root, the points search and stream value calls.
func fakePI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/piwebapi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Items":[
			{"Timestamp":"2025-06-01T00:00:00Z","Value":1},
			{"Timestamp":"2025-06-01T00:30:00Z","Value":3}]}`))
	})
	mux.HandleFunc("/piwebapi/points", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nameFilter") != "SINUSOID" {
			_, _ = w.Write([]byte(`{"Items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"Items":[{"Name":"SINUSOID","WebId":"W-SIN"}]}`))
	})
	mux.HandleFunc("/piwebapi/streams/W-SIN/value", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Timestamp":"2025-06-01T00:00:00Z","Value":12.5,"UnitsAbbreviation":"A"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	getenv := func(key string) string { return env[key] }
	cmd := NewRootCommandWithIO(getenv, strings.NewReader(""), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func testEnv(t *testing.T, baseURL string) map[string]string {
	return map[string]string{
		"PI_BASE_URL":        baseURL,
		"DATALINK_CACHE_DIR": t.TempDir(),
		"LOG_LEVEL":          "error",
	}
}

func TestPreviewCommand(t *testing.T) {
	out, _, err := run(t, testEnv(t, "https://pi.example.com/piwebapi"),
		"preview", "--feeder", "8-27.11", "--start", "2025-06-01", "--end", "2025-06-07",
		"--interval-preset", "hourly", "--dataset", "Average")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected parameters:")
	assert.Contains(t, out, "https://pi.example.com/piwebapi?feeder=8-27.11&start_date=2025-06-01&end_date=2025-06-07&interval_value=1&interval_unit=hour&datasets=Average")
}

func TestPreviewCommandRange(t *testing.T) {
	out, _, err := run(t, testEnv(t, "https://pi.example.com/piwebapi"), "preview", "--range", "June 2025")
	require.NoError(t, err)
	assert.Contains(t, out, "start_date=2025-06-01&end_date=2025-06-30")

	_, _, err = run(t, testEnv(t, "https://pi.example.com/piwebapi"), "preview", "--range", "Someday")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPreviewCommandRejectsReversedDates(t *testing.T) {
	_, _, err := run(t, testEnv(t, "https://pi.example.com/piwebapi"),
		"preview", "--start", "2025-06-07", "--end", "2025-06-01")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMissingBaseURL(t *testing.T) {
	_, _, err := run(t, map[string]string{}, "preview", "--date-preset", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PI_BASE_URL")
}

func TestBaseURLFlagOverridesEnvironment(t *testing.T) {
	out, _, err := run(t, testEnv(t, "https://ignored.example.com"),
		"--base-url", "https://pi.example.com/piwebapi", "preview", "--date-preset", "yesterday")
	require.NoError(t, err)
	assert.Contains(t, out, "https://pi.example.com/piwebapi?")
	assert.NotContains(t, out, "ignored.example.com")
}

func TestFetchCommand(t *testing.T) {
	srv := fakePI(t)
	env := testEnv(t, srv.URL+"/piwebapi")

	out, errOut, err := run(t, env,
		"fetch", "--feeder", "8-27.11", "--start", "2025-06-01", "--end", "2025-06-01",
		"--interval", "15", "--dataset", "Average")
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,stat,value,unit\n"+
			"2025-06-01T00:00:00Z,Average,1,Amp\n"+
			"2025-06-01T00:30:00Z,Average,3,Amp\n", out)
	assert.Contains(t, errOut, "cached at "+filepath.Join(env["DATALINK_CACHE_DIR"], "pi_cache_"))

	entries, err := os.ReadDir(env["DATALINK_CACHE_DIR"])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))
}

func TestFetchCommandResampleJSON(t *testing.T) {
	srv := fakePI(t)
	env := testEnv(t, srv.URL+"/piwebapi")

	out, errOut, err := run(t, env, "-o", "json",
		"fetch", "--start", "2025-06-01", "--end", "2025-06-01", "--dataset", "Average",
		"--resample", "1h", "--no-cache")
	require.NoError(t, err)
	assert.Empty(t, errOut)

	var rows []models.TidyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, *rows[0].Value)
	assert.True(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Equal(rows[0].Timestamp))
}

func TestValueCommandReportsFailingTags(t *testing.T) {
	srv := fakePI(t)
	out, _, err := run(t, testEnv(t, srv.URL+"/piwebapi"), "value", "SINUSOID", "MISSING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
	assert.Equal(t, "timestamp,tag,value,unit\n2025-06-01T00:00:00Z,SINUSOID,12.5,A\n", out)
}

func TestFailingCommandClosesApp(t *testing.T) {
	srv := fakePI(t)
	env := testEnv(t, srv.URL+"/piwebapi")
	var out bytes.Buffer
	a := &cliApp{getenv: func(key string) string { return env[key] }, stdin: strings.NewReader(""), stdout: &out, stderr: &out}
	cmd := a.rootCommand()
	cmd.SetArgs([]string{"value", "SINUSOID", "MISSING"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Nil(t, a.built)

	cmd.SetArgs([]string{"resolve", "SINUSOID"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Nil(t, a.built)
}

func TestCommandInstallsGlobalLogger(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))
	require.False(t, zap.L().Core().Enabled(zap.ErrorLevel))

	srv := fakePI(t)
	_, _, err := run(t, testEnv(t, srv.URL+"/piwebapi"), "resolve", "SINUSOID")
	require.NoError(t, err)
	assert.True(t, zap.L().Core().Enabled(zap.ErrorLevel))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
}

func TestResolveCommand(t *testing.T) {
	srv := fakePI(t)
	out, _, err := run(t, testEnv(t, srv.URL+"/piwebapi"), "resolve", "SINUSOID")
	require.NoError(t, err)
	assert.Equal(t, "SINUSOID\tW-SIN\n", out)
}

func TestCatalogCommand(t *testing.T) {
	out, _, err := run(t, map[string]string{}, "catalog")
	require.NoError(t, err)

	var cat config.Catalog
	require.NoError(t, yaml.Unmarshal([]byte(out), &cat))
	assert.Equal(t, config.DefaultCatalog(), cat)
}

func TestCatalogCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeders: [\"F-1\"]\n"), 0o600))

	out, _, err := run(t, map[string]string{}, "--catalog", path, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "- F-1")
	assert.Contains(t, out, "substations:")
}
