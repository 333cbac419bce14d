package assets

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
)

// ObjectLister abstracts listing object names under a prefix, so the picker can
// be tested without a real bucket.
type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// gcsLister wraps a *storage.BucketHandle to satisfy ObjectLister.
type gcsLister struct {
	bucket *storage.BucketHandle
}

// NewGCSLister creates an ObjectLister over one bucket.
func NewGCSLister(client *storage.Client, bucket string) ObjectLister {
	return &gcsLister{bucket: client.Bucket(bucket)}
}

func (l *gcsLister) List(ctx context.Context, prefix string) ([]string, error) {
	it := l.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		// Skip "directory" placeholder objects.
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		names = append(names, attrs.Name)
	}
}

// GCSConfig configures a GCSPicker.
type GCSConfig struct {
	// Prefix is prepended to the category, e.g. "images/".
	Prefix string
	// BaseURL is prepended to object names, e.g. "https://storage.googleapis.com/my-bucket/".
	BaseURL string
	// ListTTL bounds how long a category listing is reused.
	ListTTL time.Duration
}

// GCSPicker picks a random object from a Cloud Storage prefix. Listings are
// cached, so a pick usually costs no storage call.
type GCSPicker struct {
	lister  ObjectLister
	cfg     GCSConfig
	listing cache.Cache[string, []string]
	intn    func(n int) int
	logger  zerolog.Logger
}

// NewGCSPicker creates a picker. listing caches object names per category.
func NewGCSPicker(cfg GCSConfig, lister ObjectLister, listing cache.Cache[string, []string], logger zerolog.Logger) (*GCSPicker, error) {
	if lister == nil || listing == nil {
		return nil, fmt.Errorf("lister and listing cache must be provided")
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 10 * time.Minute
	}
	return &GCSPicker{
		lister:  lister,
		cfg:     cfg,
		listing: listing,
		intn:    rand.IntN,
		logger:  logger.With().Str("component", "GCSPicker").Logger(),
	}, nil
}

func (p *GCSPicker) Pick(ctx context.Context, category string) (string, error) {
	prefix := p.cfg.Prefix + strings.Trim(category, "/") + "/"

	names, ok, err := p.listing.Get(ctx, prefix)
	if err != nil || !ok {
		names, err = p.lister.List(ctx, prefix)
		if err != nil {
			p.logger.Error().Err(err).Str("prefix", prefix).Msg("Failed to list assets.")
			return "", fmt.Errorf("list assets under %s: %w", prefix, err)
		}
		if err := p.listing.Set(ctx, prefix, names, p.cfg.ListTTL); err != nil {
			p.logger.Warn().Err(err).Str("prefix", prefix).Msg("Failed to cache asset listing.")
		}
	}
	if len(names) == 0 {
		return "", ErrNoAssets
	}
	return p.cfg.BaseURL + names[p.intn(len(names))], nil
}
