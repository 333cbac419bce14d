package assets_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-contentcache/pkg/assets"
	"github.com/illmade-knight/go-contentcache/pkg/cache"
)

type mockLister struct {
	calls atomic.Int32
	names map[string][]string
	err   error
}

func (m *mockLister) List(_ context.Context, prefix string) ([]string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.names[prefix], nil
}

func TestStaticPicker(t *testing.T) {
	ctx := context.Background()
	p := assets.NewStaticPicker("https://example.com/images/", map[string][]string{
		"vacancy": {"a.jpg", "b.jpg"},
	})

	for i := 0; i < 10; i++ {
		ref, err := p.Pick(ctx, "vacancy")
		require.NoError(t, err)
		assert.Contains(t, []string{"https://example.com/images/vacancy/a.jpg", "https://example.com/images/vacancy/b.jpg"}, ref)
	}

	_, err := p.Pick(ctx, "empty")
	assert.True(t, errors.Is(err, assets.ErrNoAssets))
}

func TestGCSPicker(t *testing.T) {
	ctx := context.Background()
	listing, err := cache.NewInMemoryLRUCache[string, []string](10)
	require.NoError(t, err)

	lister := &mockLister{names: map[string][]string{
		"images/vacancy/": {"images/vacancy/1.png", "images/vacancy/2.png"},
	}}
	p, err := assets.NewGCSPicker(assets.GCSConfig{
		Prefix:  "images/",
		BaseURL: "https://storage.googleapis.com/site/",
		ListTTL: time.Minute,
	}, lister, listing, zerolog.Nop())
	require.NoError(t, err)

	t.Run("Picks from the listing and caches it", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			ref, err := p.Pick(ctx, "vacancy")
			require.NoError(t, err)
			assert.Contains(t, []string{
				"https://storage.googleapis.com/site/images/vacancy/1.png",
				"https://storage.googleapis.com/site/images/vacancy/2.png",
			}, ref)
		}
		assert.Equal(t, int32(1), lister.calls.Load())
	})

	t.Run("Empty prefix", func(t *testing.T) {
		_, err := p.Pick(ctx, "none")
		assert.True(t, errors.Is(err, assets.ErrNoAssets))
	})

	t.Run("Listing failure", func(t *testing.T) {
		failing := &mockLister{err: errors.New("permission denied")}
		fp, err := assets.NewGCSPicker(assets.GCSConfig{}, failing, listing, zerolog.Nop())
		require.NoError(t, err)
		_, err = fp.Pick(ctx, "other")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, assets.ErrNoAssets))
	})
}
