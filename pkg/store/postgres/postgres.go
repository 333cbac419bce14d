// Package postgres implements store.Store on PostgreSQL using pgx and squirrel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// Config holds the connection settings.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

var (
	publicationColumns = []string{"id", "title", "description", "content", "image", "category_id", "published_at"}
	vacancyColumns     = []string{"id", "title", "description", "content", "company", "location", "contact", "hot", "published_at"}
	newestFirst        = []string{"published_at DESC", "id DESC"}
)

// Store reads content from PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	qb     sq.StatementBuilderType
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logger.Info().Str("host", poolCfg.ConnConfig.Host).Str("database", poolCfg.ConnConfig.Database).Msg("Successfully connected to Postgres.")
	return NewFromPool(pool, logger), nil
}

// NewFromPool wraps an existing pool. The pool is closed by Close.
func NewFromPool(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:   pool,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger.With().Str("component", "PostgresStore").Logger(),
	}
}

func (s *Store) count(ctx context.Context, op string, q sq.SelectBuilder) (int, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: build query: %w", op, err)
	}
	start := time.Now()
	var n int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		s.logger.Error().Err(err).Str("op", op).Dur("elapsed", time.Since(start)).Msg("Count query failed.")
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug().Str("op", op).Int("count", n).Dur("elapsed", time.Since(start)).Msg("Count query done.")
	return n, nil
}

func categoryFilter(q sq.SelectBuilder, categoryID *int64) sq.SelectBuilder {
	if categoryID != nil {
		return q.Where(sq.Eq{"category_id": *categoryID})
	}
	return q
}

func window(q sq.SelectBuilder, offset, limit int) sq.SelectBuilder {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	return q.Offset(uint64(offset)).Limit(uint64(limit))
}

func (s *Store) CountPublications(ctx context.Context, categoryID *int64) (int, error) {
	q := categoryFilter(s.qb.Select("COUNT(*)").From("publications"), categoryID)
	return s.count(ctx, "CountPublications", q)
}

func (s *Store) PublicationsPage(ctx context.Context, categoryID *int64, offset, limit int) ([]types.Publication, error) {
	q := s.qb.Select(publicationColumns...).From("publications").OrderBy(newestFirst...)
	q = window(categoryFilter(q, categoryID), offset, limit)
	return queryAll(ctx, s, "PublicationsPage", q, scanPublication)
}

func (s *Store) PublicationByID(ctx context.Context, id int64) (types.Publication, error) {
	q := s.qb.Select(publicationColumns...).From("publications").Where(sq.Eq{"id": id})
	return queryOne(ctx, s, "PublicationByID", q, scanPublication)
}

func (s *Store) Categories(ctx context.Context) ([]types.Category, error) {
	q := s.qb.Select("id", "name").From("categories").OrderBy("name", "id")
	return queryAll(ctx, s, "Categories", q, func(row pgx.Row) (types.Category, error) {
		var c types.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (s *Store) CountVacancies(ctx context.Context) (int, error) {
	return s.count(ctx, "CountVacancies", s.qb.Select("COUNT(*)").From("vacancies"))
}

func (s *Store) VacanciesPage(ctx context.Context, offset, limit int) ([]types.Vacancy, error) {
	q := window(s.qb.Select(vacancyColumns...).From("vacancies").OrderBy(newestFirst...), offset, limit)
	return queryAll(ctx, s, "VacanciesPage", q, scanVacancy)
}

func (s *Store) VacancyByID(ctx context.Context, id int64) (types.Vacancy, error) {
	q := s.qb.Select(vacancyColumns...).From("vacancies").Where(sq.Eq{"id": id})
	return queryOne(ctx, s, "VacancyByID", q, scanVacancy)
}

func (s *Store) HotVacancies(ctx context.Context, limit int) ([]types.Vacancy, error) {
	q := s.qb.Select(vacancyColumns...).From("vacancies").Where(sq.Eq{"hot": true}).OrderBy(newestFirst...)
	return queryAll(ctx, s, "HotVacancies", window(q, 0, limit), scanVacancy)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.logger.Info().Msg("Closing Postgres pool...")
	s.pool.Close()
	return nil
}

func scanPublication(row pgx.Row) (types.Publication, error) {
	var p types.Publication
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Content, &p.Image, &p.CategoryID, &p.PublishedAt)
	return p, err
}

func scanVacancy(row pgx.Row) (types.Vacancy, error) {
	var v types.Vacancy
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Content, &v.Company, &v.Location, &v.Contact, &v.Hot, &v.PublishedAt)
	return v, err
}

func queryAll[T any](ctx context.Context, s *Store, op string, q sq.SelectBuilder, scan func(pgx.Row) (T, error)) ([]T, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("Query failed.")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("Row iteration failed.")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug().Str("op", op).Int("rows", len(out)).Dur("elapsed", time.Since(start)).Msg("Query done.")
	return out, nil
}

func queryOne[T any](ctx context.Context, s *Store, op string, q sq.SelectBuilder, scan func(pgx.Row) (T, error)) (T, error) {
	var zero T
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return zero, fmt.Errorf("%s: build query: %w", op, err)
	}
	item, err := scan(s.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, store.ErrNotFound
		}
		s.logger.Error().Err(err).Str("op", op).Msg("Query failed.")
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}
