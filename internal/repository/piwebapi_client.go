package repository

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/metrics"
	"DataLink.piwebapi/internal/models"
)

// BoundaryType controls how recorded calls treat events straddling the range
// edges. The value is passed to the provider unchanged.
type BoundaryType string

const (
	BoundaryInside       BoundaryType = "Inside"
	BoundaryOutside      BoundaryType = "Outside"
	BoundaryInterpolated BoundaryType = "Interpolated"
)

// SummaryOptions describes a summary calculation. A non-empty SampleInterval
// switches the provider to per-interval rollups.
type SummaryOptions struct {
	Types            []string
	CalculationBasis string // TimeWeighted | EventWeighted
	SampleInterval   string // e.g. "1h"
	TimeType         string // Auto | Local | UTC
}

// Repository is the read-only view of the PI Web API used by the services.
type Repository interface {
	Resolve(ctx context.Context, tag string) (string, error)
	Value(ctx context.Context, tag, at string) (models.RawSample, error)
	Recorded(ctx context.Context, tag, start, end string, boundary BoundaryType, maxPoints int) ([]models.RawSample, error)
	Interpolated(ctx context.Context, tag, start, end, interval string) ([]models.RawSample, error)
	Summary(ctx context.Context, tag, start, end string, opts SummaryOptions) (models.SummaryResponse, error)
	Execute(ctx context.Context, params models.QueryParameters) ([]byte, error)
	BaseURL() string
}

// PIWebAPIClient talks to a PI Web API server over HTTP. It performs no
// retries; each call blocks until the response or the configured timeout.
type PIWebAPIClient struct {
	http     *resty.Client
	baseURL  string
	resolver *TagResolver
	logger   *zap.Logger
}

type itemsResponse[T any] struct {
	Items []T `json:"Items"`
}

// NewPIWebAPIClient creates a client with exactly one authentication mode.
func NewPIWebAPIClient(cfg config.PIConfig, logger *zap.Logger) (*PIWebAPIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifySSL} //nolint:gosec // operator controlled
	var rt http.RoundTripper = transport
	if cfg.AuthMode == config.AuthNTLM {
		rt = ntlmssp.Negotiator{RoundTripper: transport}
	}

	client := resty.New().
		SetTransport(rt).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())

	switch cfg.AuthMode {
	case config.AuthBearer:
		client.SetAuthToken(cfg.BearerToken)
	case config.AuthBasic, config.AuthNTLM:
		// The NTLM negotiator takes its credentials from the basic auth header.
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	c := &PIWebAPIClient{
		http:    client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
	resolver, err := NewTagResolver(c, DefaultTagCacheSize, logger)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver
	return c, nil
}

// BaseURL is the configured PI Web API root.
func (c *PIWebAPIClient) BaseURL() string { return c.baseURL }

// Resolver exposes the client's tag resolver.
func (c *PIWebAPIClient) Resolver() *TagResolver { return c.resolver }

// get issues one GET and maps the outcome onto the error taxonomy: 404 is a
// NotFoundError, everything else that is not 2xx is a TransportError.
func (c *PIWebAPIClient) get(ctx context.Context, endpoint, rawURL string, params map[string]string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(rawURL)
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("PI Web API request failed", zap.String("url", rawURL), zap.Error(err))
		return nil, &models.TransportError{URL: rawURL, Err: err}
	}

	fullURL := requestURL(resp, rawURL)
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &models.NotFoundError{Resource: fullURL, Message: "resource not found"}
	}
	if !resp.IsSuccess() {
		c.logger.Warn("PI Web API returned an error status",
			zap.String("url", fullURL), zap.Int("status", resp.StatusCode()))
		return nil, &models.TransportError{
			URL:        fullURL,
			StatusCode: resp.StatusCode(),
			Body:       models.TruncateBody(resp.String()),
		}
	}
	return resp.Body(), nil
}

func (c *PIWebAPIClient) getJSON(ctx context.Context, endpoint, rawURL string, params map[string]string, out any) error {
	body, err := c.get(ctx, endpoint, rawURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.TransportError{
			URL:  rawURL,
			Body: models.TruncateBody(string(body)),
			Err:  fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

func requestURL(resp *resty.Response, fallback string) string {
	if resp != nil && resp.Request != nil && resp.Request.RawRequest != nil {
		return resp.Request.RawRequest.URL.String()
	}
	return fallback
}

func (c *PIWebAPIClient) streamURL(webID, kind string) string {
	return fmt.Sprintf("%s/streams/%s/%s", c.baseURL, url.PathEscape(webID), kind)
}

// FindPoints queries the points endpoint with a name filter.
func (c *PIWebAPIClient) FindPoints(ctx context.Context, nameFilter string) ([]PointCandidate, error) {
	var data itemsResponse[PointCandidate]
	if err := c.getJSON(ctx, "points", c.baseURL+"/points", map[string]string{"nameFilter": nameFilter}, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// Resolve maps a tag name to its WebId through the client's resolver.
func (c *PIWebAPIClient) Resolve(ctx context.Context, tag string) (string, error) {
	return c.resolver.Resolve(ctx, tag)
}

// Value returns the value at or before at, a PI time expression ("*" when
// empty).
func (c *PIWebAPIClient) Value(ctx context.Context, tag, at string) (models.RawSample, error) {
	webID, err := c.Resolve(ctx, tag)
	if err != nil {
		return models.RawSample{}, err
	}
	if at == "" {
		at = "*"
	}
	var sample models.RawSample
	if err := c.getJSON(ctx, "value", c.streamURL(webID, "value"), map[string]string{"time": at}, &sample); err != nil {
		return models.RawSample{}, err
	}
	return sample, nil
}

// Recorded returns the stored events between start and end. maxPoints > 0
// caps the count on the provider side.
func (c *PIWebAPIClient) Recorded(ctx context.Context, tag, start, end string, boundary BoundaryType, maxPoints int) ([]models.RawSample, error) {
	webID, err := c.Resolve(ctx, tag)
	if err != nil {
		return nil, err
	}
	if boundary == "" {
		boundary = BoundaryInside
	}
	params := map[string]string{
		"startTime":    start,
		"endTime":      end,
		"boundaryType": string(boundary),
	}
	if maxPoints > 0 {
		params["maxCount"] = strconv.Itoa(maxPoints)
	}
	var data itemsResponse[models.RawSample]
	if err := c.getJSON(ctx, "recorded", c.streamURL(webID, "recorded"), params, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// Interpolated returns evenly spaced synthetic samples ("1h" when interval is
// empty).
func (c *PIWebAPIClient) Interpolated(ctx context.Context, tag, start, end, interval string) ([]models.RawSample, error) {
	webID, err := c.Resolve(ctx, tag)
	if err != nil {
		return nil, err
	}
	if interval == "" {
		interval = "1h"
	}
	params := map[string]string{
		"startTime": start,
		"endTime":   end,
		"interval":  interval,
	}
	var data itemsResponse[models.RawSample]
	if err := c.getJSON(ctx, "interpolated", c.streamURL(webID, "interpolated"), params, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// Summary computes aggregates over the range, or per sub-interval when
// opts.SampleInterval is set.
func (c *PIWebAPIClient) Summary(ctx context.Context, tag, start, end string, opts SummaryOptions) (models.SummaryResponse, error) {
	webID, err := c.Resolve(ctx, tag)
	if err != nil {
		return models.SummaryResponse{}, err
	}
	params := summaryParams(start, end, opts)
	var data models.SummaryResponse
	if err := c.getJSON(ctx, "summary", c.streamURL(webID, "summary"), params, &data); err != nil {
		return models.SummaryResponse{}, err
	}
	return data, nil
}

func summaryParams(start, end string, opts SummaryOptions) map[string]string {
	types := opts.Types
	if len(types) == 0 {
		types = []string{string(models.Average)}
	}
	basis := opts.CalculationBasis
	if basis == "" {
		basis = "TimeWeighted"
	}
	timeType := opts.TimeType
	if timeType == "" {
		timeType = "Auto"
	}
	params := map[string]string{
		"startTime":        start,
		"endTime":          end,
		"summaryType":      strings.Join(types, ","),
		"calculationBasis": basis,
		"timeType":         timeType,
	}
	if opts.SampleInterval != "" {
		params["sampleType"] = "Interval"
		params["intervals"] = opts.SampleInterval
	}
	return params
}

// Execute sends the flattened query parameters to the base URL and returns
// the raw response body.
func (c *PIWebAPIClient) Execute(ctx context.Context, params models.QueryParameters) ([]byte, error) {
	return c.get(ctx, "query", c.baseURL, params.QueryMap())
}
