package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

const (
	// DefaultTable holds candidate rows.
	DefaultTable = "candidates"
	// DefaultOverfetchFactor widens the approximate result set before re-scoring.
	DefaultOverfetchFactor = 5
)

// Store implements storage.CandidateRepository and retrieval.SimilarityBackend.
type Store struct {
	pool            *pgxpool.Pool
	table           string
	overfetchFactor int
	logger          *slog.Logger
}

var _ storage.CandidateRepository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable sets the candidate table name.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = pgx.Identifier{name}.Sanitize()
		}
	}
}

// WithOverfetchFactor sets the pool multiplier reported to the retriever.
func WithOverfetchFactor(factor int) Option {
	return func(s *Store) {
		if factor > 0 {
			s.overfetchFactor = factor
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// Connect opens a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string, maxConns int32, opts ...Option) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewStore(pool, opts...), nil
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:            pool,
		table:           pgx.Identifier{DefaultTable}.Sanitize(),
		overfetchFactor: DefaultOverfetchFactor,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pgvector")
	return s
}

// EnsureSchema creates the extension, table and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return storage.ErrInvalidQuery
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          uuid PRIMARY KEY,
			title       text NOT NULL,
			company     text NOT NULL DEFAULT '',
			description text NOT NULL DEFAULT '',
			tags        text[] NOT NULL DEFAULT '{}',
			seniority   text NOT NULL DEFAULT '',
			location    text NOT NULL DEFAULT '',
			remote      boolean NOT NULL DEFAULT false,
			active      boolean NOT NULL DEFAULT true,
			created_at  timestamptz NOT NULL,
			embedding   vector(%d)
		)`, s.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			s.indexName("embedding"), s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC, id DESC)`,
			s.indexName("recency"), s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) indexName(suffix string) string {
	// s.table is already quoted; strip quotes to build the index identifier
	raw := s.table[1 : len(s.table)-1]
	return pgx.Identifier{raw + "_" + suffix + "_idx"}.Sanitize()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// OverfetchFactor reports the pool multiplier for this backend.
func (s *Store) OverfetchFactor() int {
	return s.overfetchFactor
}

// Search returns up to k active candidate IDs ordered by cosine distance to
// query. Candidates without an embedding fill any remaining slots, newest
// first. They are fetched separately so the ranked query keeps using the
// HNSW index.
func (s *Store) Search(ctx context.Context, query []float32, filter storage.Filter, k int) ([]core.ID, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	excluded := idStrings(filter.Excluded())

	ranked := fmt.Sprintf(`SELECT id FROM %s
		WHERE active AND embedding IS NOT NULL AND NOT (id = ANY($2::uuid[]))
		ORDER BY embedding <=> $1::vector
		LIMIT $3`, s.table)
	ids, err := s.queryIDs(ctx, ranked, pgvector.NewVector(query), excluded, k)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	if len(ids) == k {
		return ids, nil
	}

	unembedded := fmt.Sprintf(`SELECT id FROM %s
		WHERE active AND embedding IS NULL AND NOT (id = ANY($1::uuid[]))
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, s.table)
	rest, err := s.queryIDs(ctx, unembedded, excluded, k-len(ids))
	if err != nil {
		return nil, fmt.Errorf("unembedded candidate query failed: %w", err)
	}
	return append(ids, rest...), nil
}

func (s *Store) queryIDs(ctx context.Context, sql string, args ...any) ([]core.ID, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ID, error) {
		var id core.ID
		err := row.Scan(&id)
		return id, err
	})
}

// AddCandidates upserts candidates.
func (s *Store) AddCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error) {
	for _, c := range candidates {
		if c.Id == core.NilID {
			c.Id = core.IDFromContent(c.Title + "\x00" + c.Company + "\x00" + c.Description)
		}
		if err := core.ValidateCandidate(c); err != nil {
			return nil, err
		}
	}

	sql := fmt.Sprintf(`INSERT INTO %s
		(id, title, company, description, tags, seniority, location, remote, active, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::vector)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, company = EXCLUDED.company, description = EXCLUDED.description,
			tags = EXCLUDED.tags, seniority = EXCLUDED.seniority, location = EXCLUDED.location,
			remote = EXCLUDED.remote, active = EXCLUDED.active, created_at = EXCLUDED.created_at,
			embedding = EXCLUDED.embedding`, s.table)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range candidates {
			batch.Queue(sql, candidateArgs(c)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add candidates: %w", err)
	}
	return candidates, nil
}

// UpdateCandidates replaces existing candidates. Returns storage.ErrNotFound
// and writes nothing if any candidate is missing.
func (s *Store) UpdateCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error) {
	for _, c := range candidates {
		if err := core.ValidateCandidate(c); err != nil {
			return nil, err
		}
	}

	sql := fmt.Sprintf(`UPDATE %s SET
		title = $2, company = $3, description = $4, tags = $5, seniority = $6,
		location = $7, remote = $8, active = $9, created_at = $10, embedding = $11::vector
		WHERE id = $1`, s.table)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, c := range candidates {
			tag, err := tx.Exec(ctx, sql, candidateArgs(c)...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return storage.ErrNotFound
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update candidates: %w", err)
	}
	return candidates, nil
}

// GetCandidate retrieves a single candidate by ID.
func (s *Store) GetCandidate(ctx context.Context, id core.ID) (*core.Candidate, error) {
	rows, err := s.pool.Query(ctx, s.selectSQL("WHERE id = $1"), id.String())
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCandidate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return c, err
}

// GetCandidates retrieves candidates in the order of ids, skipping missing ones.
func (s *Store) GetCandidates(ctx context.Context, ids ...core.ID) ([]*core.Candidate, error) {
	if len(ids) == 0 {
		return []*core.Candidate{}, nil
	}
	rows, err := s.pool.Query(ctx, s.selectSQL("WHERE id = ANY($1::uuid[])"), idStrings(ids))
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, scanCandidate)
	if err != nil {
		return nil, err
	}

	byID := make(map[core.ID]*core.Candidate, len(found))
	for _, c := range found {
		byID[c.Id] = c
	}
	result := make([]*core.Candidate, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// RecentCandidates returns active candidates newest first, ties by ID descending.
func (s *Store) RecentCandidates(ctx context.Context, filter storage.Filter, limit int) ([]*core.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		s.selectSQL("WHERE active AND NOT (id = ANY($1::uuid[])) ORDER BY created_at DESC, id DESC LIMIT $2"),
		idStrings(filter.Excluded()), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCandidate)
}

// ListCandidates returns candidates with IDs greater than after, in ID order.
func (s *Store) ListCandidates(ctx context.Context, after core.ID, limit int) ([]*core.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, s.selectSQL("WHERE id > $1 ORDER BY id LIMIT $2"), after.String(), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCandidate)
}

// CountCandidates returns the number of stored candidates.
func (s *Store) CountCandidates(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

func (s *Store) selectSQL(where string) string {
	return fmt.Sprintf(`SELECT id, title, company, description, tags, seniority, location,
		remote, active, created_at, embedding::text FROM %s %s`, s.table, where)
}

func scanCandidate(row pgx.CollectableRow) (*core.Candidate, error) {
	var (
		c         core.Candidate
		embedding *string
	)
	err := row.Scan(&c.Id, &c.Title, &c.Company, &c.Description, &c.Tags, &c.Seniority,
		&c.Location, &c.Remote, &c.Active, &c.CreatedAt, &embedding)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	if embedding != nil {
		var v pgvector.Vector
		if err := v.Scan(*embedding); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
		}
		c.Vector = v.Slice()
	}
	return &c, nil
}

func candidateArgs(c *core.Candidate) []any {
	var embedding any
	if len(c.Vector) > 0 {
		embedding = pgvector.NewVector(c.Vector)
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		c.Id.String(), c.Title, c.Company, c.Description, tags, c.Seniority,
		c.Location, c.Remote, c.Active, c.CreatedAt, embedding,
	}
}

func idStrings(ids []core.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
