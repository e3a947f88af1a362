package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService fronts a cache backend with a key namespace, a default TTL and
// hit/miss metrics. A nil service or one without a backend is a no-op.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
}

// CacheOption configures a CacheService.
type CacheOption func(*CacheService)

// WithCacheMetrics records lookups and writes on m.
func WithCacheMetrics(m *MetricsService) CacheOption {
	return func(s *CacheService) { s.metrics = m }
}

// WithCacheTTL sets the TTL used when Set is called without one.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(s *CacheService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for backend failures.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(s *CacheService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix namespaces every key, so deployments sharing one Redis do
// not read each other's entries.
func WithKeyPrefix(prefix string) CacheOption {
	return func(s *CacheService) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		s.prefix = prefix
	}
}

// NewCacheService wraps repo. Pass a nil repo to disable caching.
func NewCacheService(repo CacheRepository, opts ...CacheOption) *CacheService {
	s := &CacheService{repo: repo, ttl: time.Minute, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a backend is attached.
func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil
}

func (s *CacheService) key(k string) string {
	return s.prefix + k
}

// Get loads key into dest and reports whether it was a hit. A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	s.recordLookup(err == nil, start)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", s.key(key)), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. A non-positive ttl falls back to the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", s.key(key)), zap.Error(err))
	}
	return err
}

// Delete drops the given keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = s.key(k)
	}
	if err := s.repo.Delete(ctx, namespaced...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", namespaced), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) recordLookup(hit bool, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, time.Since(start))
	}
}
