package repository

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/metrics"
	"DataLink.piwebapi/internal/models"
)

// DefaultTagCacheSize bounds the resolver cache. Tag universes are small and
// static, so in practice nothing is evicted.
const DefaultTagCacheSize = 4096

// PointCandidate is one entry of a points lookup.
type PointCandidate struct {
	Name             string `json:"Name"`
	WebID            string `json:"WebId"`
	Path             string `json:"Path,omitempty"`
	Descriptor       string `json:"Descriptor,omitempty"`
	EngineeringUnits string `json:"EngineeringUnits,omitempty"`
}

// PointLookup lists the points matching a name filter, in provider order.
type PointLookup interface {
	FindPoints(ctx context.Context, nameFilter string) ([]PointCandidate, error)
}

// TagResolver maps tag names to WebIds and remembers successful answers.
// The cache belongs to the resolver instance and is keyed by the exact input
// string, so "FOO" and "foo" are resolved and cached separately.
type TagResolver struct {
	lookup PointLookup
	cache  *lru.Cache[string, string]
	logger *zap.Logger
}

// NewTagResolver creates a resolver with a cache of size entries
// (DefaultTagCacheSize when size <= 0).
func NewTagResolver(lookup PointLookup, size int, logger *zap.Logger) (*TagResolver, error) {
	if size <= 0 {
		size = DefaultTagCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating tag cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagResolver{lookup: lookup, cache: cache, logger: logger}, nil
}

// Resolve returns the WebId for tag. When the provider returns several
// candidates the case-insensitive exact name match wins, otherwise the first
// candidate does.
func (r *TagResolver) Resolve(ctx context.Context, tag string) (string, error) {
	if webID, ok := r.cache.Get(tag); ok {
		metrics.TagCacheLookups.WithLabelValues("hit").Inc()
		return webID, nil
	}
	metrics.TagCacheLookups.WithLabelValues("miss").Inc()

	candidates, err := r.lookup.FindPoints(ctx, tag)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", &models.NotFoundError{Resource: tag, Message: "tag not found"}
	}

	chosen := candidates[0]
	for _, c := range candidates {
		if strings.EqualFold(c.Name, tag) {
			chosen = c
			break
		}
	}
	if chosen.WebID == "" {
		return "", &models.NotFoundError{Resource: tag, Message: "no WebId for tag"}
	}

	r.cache.Add(tag, chosen.WebID)
	r.logger.Debug("resolved tag", zap.String("tag", tag), zap.String("point", chosen.Name), zap.String("web_id", chosen.WebID))
	return chosen.WebID, nil
}

// Cached reports whether tag has a cached resolution.
func (r *TagResolver) Cached(tag string) bool {
	return r.cache.Contains(tag)
}

// Len is the number of cached resolutions.
func (r *TagResolver) Len() int {
	return r.cache.Len()
}

// Purge drops every cached resolution.
func (r *TagResolver) Purge() {
	r.cache.Purge()
}
