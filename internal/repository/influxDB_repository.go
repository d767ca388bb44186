// internal/repository/influxDB_repository.go

package repository

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
)

// ExportMeasurement is the measurement name exported tidy rows are written
// under.
const ExportMeasurement = "pi_series"

// Exporter receives fetched tidy rows for downstream dashboards.
type Exporter interface {
	Export(ctx context.Context, rows []models.TidyRow) error
}

// InfluxExporter writes tidy rows into an InfluxDB v2 bucket.
type InfluxExporter struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *zap.Logger
}

// NewInfluxExporter creates an exporter for the configured bucket.
func NewInfluxExporter(cfg config.InfluxConfig, logger *zap.Logger) *InfluxExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfluxExporter{
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
		org:    cfg.Org,
		bucket: cfg.Bucket,
		logger: logger,
	}
}

// Export writes one point per row. Rows with a null value are skipped since
// InfluxDB has no null fields.
func (e *InfluxExporter) Export(ctx context.Context, rows []models.TidyRow) error {
	points := RowsToPoints(rows)
	if len(points) == 0 {
		return nil
	}
	writeAPI := e.client.WriteAPIBlocking(e.org, e.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	e.logger.Info("exported rows to InfluxDB",
		zap.String("bucket", e.bucket), zap.Int("points", len(points)))
	return nil
}

// Close releases the underlying InfluxDB client.
func (e *InfluxExporter) Close() {
	e.client.Close()
}

// RowsToPoints converts tidy rows to line-protocol points. Tag, stat and unit
// become point tags when present.
func RowsToPoints(rows []models.TidyRow) []*write.Point {
	points := make([]*write.Point, 0, len(rows))
	for _, r := range rows {
		if r.Value == nil {
			continue
		}
		tags := make(map[string]string, 3)
		if r.Tag != "" {
			tags["tag"] = r.Tag
		}
		if r.Stat != "" {
			tags["stat"] = r.Stat
		}
		if r.Unit != "" {
			tags["unit"] = r.Unit
		}
		points = append(points, influxdb2.NewPoint(
			ExportMeasurement,
			tags,
			map[string]interface{}{"value": *r.Value},
			r.Timestamp,
		))
	}
	return points
}
