package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

type fakeCacheRepo struct {
	entries map[string]interface{}
	getErr  error
	deleted []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string]interface{}{}}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	value, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = value.(string)
	return nil
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newFakeCacheRepo()
	svc := NewCacheService(repo, WithCacheMetrics(NewMetricsService()), WithCacheTTL(time.Minute))
	ctx := context.Background()

	var out string
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "v", out)

	require.NoError(t, svc.Delete(ctx, "k"))
	require.Equal(t, []string{"k"}, repo.deleted)
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil)
	require.False(t, svc.Enabled())

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	require.NoError(t, svc.Delete(context.Background(), "k"))

	var nilSvc *CacheService
	require.False(t, nilSvc.Enabled())
}

func TestCacheServiceNamespacesKeys(t *testing.T) {
	repo := newFakeCacheRepo()
	svc := NewCacheService(repo, WithKeyPrefix("campground:staging"))
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "approvals:policies:active", "v", 0))
	require.Contains(t, repo.entries, "campground:staging:approvals:policies:active")

	var out string
	hit, err := svc.Get(ctx, "approvals:policies:active", &out)
	require.NoError(t, err)
	require.True(t, hit)

	require.NoError(t, svc.Delete(ctx, "approvals:policies:active"))
	require.Equal(t, []string{"campground:staging:approvals:policies:active"}, repo.deleted)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newFakeCacheRepo()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.Error(t, err)
	require.False(t, hit)
}
