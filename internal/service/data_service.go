package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DataLink.piwebapi/internal/cache"
	"DataLink.piwebapi/internal/metrics"
	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/normalize"
	"DataLink.piwebapi/internal/repository"
	"DataLink.piwebapi/internal/resample"
)

// DataService handles the business logic of turning operator queries into
// tidy time series.
type DataService struct {
	repo       repository.Repository
	normalizer *normalize.Normalizer
	artifacts  *cache.Artifacts
	store      repository.ResultStore
	exporter   repository.Exporter
	logger     *zap.Logger
}

// Option configures a DataService.
type Option func(*DataService)

// WithResultStore keeps every fetched result in store.
func WithResultStore(store repository.ResultStore) Option {
	return func(s *DataService) { s.store = store }
}

// WithExporter forwards every fetched result to exporter.
func WithExporter(exporter repository.Exporter) Option {
	return func(s *DataService) { s.exporter = exporter }
}

// WithArtifacts sets where Parquet cache files are written.
func WithArtifacts(a *cache.Artifacts) Option {
	return func(s *DataService) { s.artifacts = a }
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *DataService) { s.normalizer = n }
}

// NewDataService creates a new DataService.
func NewDataService(repo repository.Repository, logger *zap.Logger, opts ...Option) *DataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DataService{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(logger)
	}
	if s.artifacts == nil {
		s.artifacts = cache.NewArtifacts("")
	}
	return s
}

// FetchOptions tunes post-processing of a fetch.
type FetchOptions struct {
	Resample time.Duration // zero keeps the provider's sampling
	How      resample.Aggregator
	NoCache  bool // skip the Parquet artifact
}

// FetchResult is a normalized fetch with its cache bookkeeping.
type FetchResult struct {
	Rows      []models.TidyRow `json:"rows"`
	Columns   []string         `json:"columns"`
	Strategy  string           `json:"strategy"`
	CacheKey  string           `json:"cache_key"`
	CachePath string           `json:"cache_path,omitempty"`
}

// BaseURL is the provider root queries are sent to.
func (s *DataService) BaseURL() string { return s.repo.BaseURL() }

// Preview validates params and renders the preview text.
func (s *DataService) Preview(params models.QueryParameters) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	return params.PreviewText(s.repo.BaseURL()), nil
}

// Execute validates params and returns the raw provider response.
func (s *DataService) Execute(ctx context.Context, params models.QueryParameters) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Execute(ctx, params)
}

// Fetch executes params and normalizes the response. A response with no
// usable rows is a ValidationError. The result is stamped with the requested
// aggregation kind and output unit when the payload carries none, optionally
// resampled, then cached, stored and exported.
func (s *DataService) Fetch(ctx context.Context, params models.QueryParameters, opts FetchOptions) (FetchResult, error) {
	raw, err := s.Execute(ctx, params)
	if err != nil {
		return FetchResult{}, err
	}

	rows, strategy := s.normalizer.ParseWithStrategy(raw)
	if len(rows) == 0 {
		return FetchResult{}, &models.ValidationError{Field: "response", Message: "parsed response is empty (no usable rows)"}
	}
	rows = normalize.StampStat(rows, params.Datasets())
	rows = normalize.StampUnit(rows, string(params.OutputUnit))

	if opts.Resample > 0 {
		rows = resample.Resample(rows, opts.Resample, opts.How)
	}

	key, err := cache.Key(params)
	if err != nil {
		return FetchResult{}, err
	}
	result := FetchResult{
		Rows:     rows,
		Columns:  models.Columns(rows),
		Strategy: strategy,
		CacheKey: key,
	}

	if !opts.NoCache {
		path, err := s.artifacts.Write(key, rows)
		if err != nil {
			return FetchResult{}, err
		}
		result.CachePath = path
	}
	s.persist(ctx, key, rows)

	metrics.RowsFetched.Add(float64(len(rows)))
	s.logger.Info("fetched series",
		zap.String("cache_key", key),
		zap.String("strategy", strategy),
		zap.Int("rows", len(rows)))
	return result, nil
}

// persist hands rows to the optional sinks. Sink failures are logged and do
// not fail the fetch.
func (s *DataService) persist(ctx context.Context, key string, rows []models.TidyRow) {
	if s.store != nil {
		if err := s.store.Save(ctx, key, rows); err != nil {
			s.logger.Warn("could not store result", zap.String("cache_key", key), zap.Error(err))
		}
	}
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, rows); err != nil {
			s.logger.Warn("could not export result", zap.String("cache_key", key), zap.Error(err))
		}
	}
}

// Stored returns the rows kept in the result store for the query, if any.
func (s *DataService) Stored(ctx context.Context, params models.QueryParameters) ([]models.TidyRow, bool, error) {
	if s.store == nil {
		return nil, false, nil
	}
	key, err := cache.Key(params)
	if err != nil {
		return nil, false, err
	}
	return s.store.Load(ctx, key)
}

// Resolve maps a tag to its WebId.
func (s *DataService) Resolve(ctx context.Context, tag string) (string, error) {
	return s.repo.Resolve(ctx, tag)
}

// Value returns the tag's value at a PI time expression as one tidy row.
func (s *DataService) Value(ctx context.Context, tag, at string) ([]models.TidyRow, error) {
	sample, err := s.repo.Value(ctx, tag, at)
	if err != nil {
		return nil, fmt.Errorf("reading value of %s: %w", tag, err)
	}
	return normalize.FromSamples(tag, []models.RawSample{sample}), nil
}

// Recorded returns the tag's stored events as tidy rows.
func (s *DataService) Recorded(ctx context.Context, tag, start, end string, boundary repository.BoundaryType, maxPoints int) ([]models.TidyRow, error) {
	samples, err := s.repo.Recorded(ctx, tag, start, end, boundary, maxPoints)
	if err != nil {
		return nil, fmt.Errorf("reading recorded values of %s: %w", tag, err)
	}
	return normalize.FromSamples(tag, samples), nil
}

// Interpolated returns evenly spaced samples of the tag as tidy rows.
func (s *DataService) Interpolated(ctx context.Context, tag, start, end, interval string) ([]models.TidyRow, error) {
	samples, err := s.repo.Interpolated(ctx, tag, start, end, interval)
	if err != nil {
		return nil, fmt.Errorf("reading interpolated values of %s: %w", tag, err)
	}
	return normalize.FromSamples(tag, samples), nil
}

// Summary returns the tag's aggregates as tidy rows, one per summary type
// and interval.
func (s *DataService) Summary(ctx context.Context, tag, start, end string, opts repository.SummaryOptions) ([]models.TidyRow, error) {
	resp, err := s.repo.Summary(ctx, tag, start, end, opts)
	if err != nil {
		return nil, fmt.Errorf("reading summary of %s: %w", tag, err)
	}
	return normalize.FromSummary(tag, resp), nil
}
