// Package firestore implements store.Store on Cloud Firestore.
//
// Each entity kind lives in its own collection and the document ID is the
// decimal entity ID. Listing queries need composite indexes on
// (category_id, published_at DESC, id DESC) and (hot, published_at DESC, id DESC).
package firestore

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// Config holds configuration for the Firestore-backed store.
type Config struct {
	ProjectID              string
	PublicationsCollection string
	VacanciesCollection    string
	CategoriesCollection   string
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PublicationsCollection == "" {
		out.PublicationsCollection = "publications"
	}
	if out.VacanciesCollection == "" {
		out.VacanciesCollection = "vacancies"
	}
	if out.CategoriesCollection == "" {
		out.CategoriesCollection = "categories"
	}
	return out
}

// Store reads content documents from Firestore.
type Store struct {
	client *firestore.Client
	cfg    Config
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store around an existing client. The client's lifecycle is
// managed by the caller.
func New(cfg *Config, client *firestore.Client, logger zerolog.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	resolved := cfg.withDefaults()

	logger.Info().Str("project_id", resolved.ProjectID).Msg("Firestore store initialized.")

	return &Store{
		client: client,
		cfg:    resolved,
		logger: logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

func newestFirst(q firestore.Query) firestore.Query {
	return q.OrderBy("published_at", firestore.Desc).OrderBy("id", firestore.Desc)
}

func (s *Store) publications(categoryID *int64) firestore.Query {
	q := s.client.Collection(s.cfg.PublicationsCollection).Query
	if categoryID != nil {
		q = q.Where("category_id", "==", *categoryID)
	}
	return q
}

func (s *Store) count(ctx context.Context, op string, q firestore.Query) (int, error) {
	results, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("Firestore count failed.")
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	switch v := results["all"].(type) {
	case *firestorepb.Value:
		return int(v.GetIntegerValue()), nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: unexpected count type %T", op, results["all"])
	}
}

func (s *Store) CountPublications(ctx context.Context, categoryID *int64) (int, error) {
	return s.count(ctx, "CountPublications", s.publications(categoryID))
}

func (s *Store) PublicationsPage(ctx context.Context, categoryID *int64, offset, limit int) ([]types.Publication, error) {
	q := newestFirst(s.publications(categoryID)).Offset(max(offset, 0)).Limit(max(limit, 0))
	return getAll[types.Publication](ctx, s, "PublicationsPage", q)
}

func (s *Store) PublicationByID(ctx context.Context, id int64) (types.Publication, error) {
	return getOne[types.Publication](ctx, s, s.cfg.PublicationsCollection, id)
}

func (s *Store) Categories(ctx context.Context) ([]types.Category, error) {
	q := s.client.Collection(s.cfg.CategoriesCollection).OrderBy("name", firestore.Asc)
	return getAll[types.Category](ctx, s, "Categories", q)
}

func (s *Store) CountVacancies(ctx context.Context) (int, error) {
	return s.count(ctx, "CountVacancies", s.client.Collection(s.cfg.VacanciesCollection).Query)
}

func (s *Store) VacanciesPage(ctx context.Context, offset, limit int) ([]types.Vacancy, error) {
	q := newestFirst(s.client.Collection(s.cfg.VacanciesCollection).Query).Offset(max(offset, 0)).Limit(max(limit, 0))
	return getAll[types.Vacancy](ctx, s, "VacanciesPage", q)
}

func (s *Store) VacancyByID(ctx context.Context, id int64) (types.Vacancy, error) {
	return getOne[types.Vacancy](ctx, s, s.cfg.VacanciesCollection, id)
}

func (s *Store) HotVacancies(ctx context.Context, limit int) ([]types.Vacancy, error) {
	q := newestFirst(s.client.Collection(s.cfg.VacanciesCollection).Where("hot", "==", true)).Limit(max(limit, 0))
	return getAll[types.Vacancy](ctx, s, "HotVacancies", q)
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *Store) Close() error {
	s.logger.Info().Msg("FirestoreStore does not close the injected Firestore client.")
	return nil
}

func getAll[T any](ctx context.Context, s *Store, op string, q firestore.Query) ([]T, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("Firestore query failed.")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		var item T
		if err := snap.DataTo(&item); err != nil {
			return nil, fmt.Errorf("%s: DataTo for %s: %w", op, snap.Ref.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func getOne[T any](ctx context.Context, s *Store, collection string, id int64) (T, error) {
	var zero T
	key := strconv.FormatInt(id, 10)
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.logger.Debug().Str("collection", collection).Str("key", key).Msg("Document not found in Firestore.")
			return zero, store.ErrNotFound
		}
		s.logger.Error().Err(err).Str("collection", collection).Str("key", key).Msg("Failed to get document from Firestore.")
		return zero, fmt.Errorf("firestore get for %s/%s: %w", collection, key, err)
	}

	var value T
	if err := snap.DataTo(&value); err != nil {
		return zero, fmt.Errorf("firestore DataTo for %s/%s: %w", collection, key, err)
	}
	return value, nil
}
