package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for a Firestore backed cache.
type FirestoreConfig struct {
	CollectionName string
	// KeyPrefix namespaces document IDs within the collection.
	KeyPrefix string
}

// firestoreEntry is the stored document. Payload is the JSON encoded value, so
// any V round trips regardless of Firestore's own type mapping. A TTL policy on
// expires_at lets Firestore delete stale documents in the background.
type firestoreEntry struct {
	Payload   string    `firestore:"payload"`
	ExpiresAt time.Time `firestore:"expires_at,omitempty"`
}

// FirestoreCache stores cache entries as documents in one collection.
//
// It suits low volume deployments that already run on Firestore; a busy site
// should use Redis.
type FirestoreCache[K comparable, V any] struct {
	client     *firestore.Client
	collection string
	prefix     string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewFirestoreCache creates a cache over an existing client. The client's
// lifecycle is managed by the caller.
func NewFirestoreCache[K comparable, V any](
	cfg *FirestoreConfig,
	client *firestore.Client,
	logger zerolog.Logger,
) (*FirestoreCache[K, V], error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("firestore cache collection name is required")
	}

	return &FirestoreCache[K, V]{
		client:     client,
		collection: cfg.CollectionName,
		prefix:     cfg.KeyPrefix,
		now:        time.Now,
		logger:     logger.With().Str("component", "FirestoreCache").Str("collection", cfg.CollectionName).Logger(),
	}, nil
}

// docID builds a valid document ID; "/" is not allowed in IDs.
func (c *FirestoreCache[K, V]) docID(key K) string {
	return strings.ReplaceAll(c.prefix+fmt.Sprintf("%v", key), "/", "|")
}

// Get retrieves a document. A missing, expired or undecodable document is a miss.
func (c *FirestoreCache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	value, _, ok, err := c.GetWithTTL(ctx, key)
	return value, ok, err
}

// GetWithTTL is Get plus the time left until the document's expires_at.
func (c *FirestoreCache[K, V]) GetWithTTL(ctx context.Context, key K) (V, time.Duration, bool, error) {
	var zero V
	id := c.docID(key)
	snap, err := c.client.Collection(c.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return zero, 0, false, nil
		}
		c.logger.Error().Err(err).Str("key", id).Msg("Failed to get document from Firestore.")
		return zero, 0, false, fmt.Errorf("firestore get for %s: %w", id, err)
	}

	var entry firestoreEntry
	if err := snap.DataTo(&entry); err != nil {
		c.logger.Warn().Err(err).Str("key", id).Msg("Failed to map cached document, treating as miss.")
		return zero, 0, false, nil
	}
	var remaining time.Duration
	if !entry.ExpiresAt.IsZero() {
		remaining = entry.ExpiresAt.Sub(c.now())
		if remaining <= 0 {
			return zero, 0, false, nil
		}
	}

	var value V
	if err := json.Unmarshal([]byte(entry.Payload), &value); err != nil {
		c.logger.Warn().Err(err).Str("key", id).Msg("Failed to unmarshal cached data, treating as miss.")
		return zero, 0, false, nil
	}
	c.logger.Debug().Str("key", id).Msg("Firestore cache hit.")
	return value, remaining, true, nil
}

// Set writes value with an absolute expiry of now+ttl; ttl <= 0 never expires.
func (c *FirestoreCache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	id := c.docID(key)
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	entry := firestoreEntry{Payload: string(payload)}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}

	if _, err := c.client.Collection(c.collection).Doc(id).Set(ctx, entry); err != nil {
		c.logger.Error().Err(err).Str("key", id).Msg("Failed to write document to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", id, err)
	}
	c.logger.Debug().Str("key", id).Dur("ttl", ttl).Msg("Successfully wrote data to Firestore.")
	return nil
}

// Invalidate deletes the document for key.
func (c *FirestoreCache[K, V]) Invalidate(ctx context.Context, key K) error {
	if _, err := c.client.Collection(c.collection).Doc(c.docID(key)).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete for %s: %w", c.docID(key), err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (c *FirestoreCache[K, V]) Close() error {
	return nil
}
