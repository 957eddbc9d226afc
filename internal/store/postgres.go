package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ppiankov/tinthat/internal/model"
)

// PostgresStore queries a pgvector-enabled claims table.
// Expected columns: id, article_id, content, embedding vector(D),
// system_label, verified, source_type, created_at.
type PostgresStore struct {
	db    *sql.DB
	table string // unquoted, for regclass lookups
	ident string // quoted, for statements
}

// OpenPostgres connects with lib/pq and pings the server
func OpenPostgres(ctx context.Context, cfg model.DatabaseConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required for the postgres driver")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", model.ErrStoreUnavailable, err)
	}
	return NewPostgresStore(db, cfg.Table), nil
}

// NewPostgresStore wraps an open database handle
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "claims"
	}
	return &PostgresStore{db: db, table: table, ident: pq.QuoteIdentifier(table)}
}

// Nearest returns trusted claims closest to vec by cosine distance
func (s *PostgresStore) Nearest(ctx context.Context, vec []float32, k int, maxDistance float64) ([]model.Candidate, error) {
	if k <= 0 {
		k = 3
	}
	lit, err := encodeVectorLiteral(vec)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, embedding <=> $1::vector AS distance
FROM `+s.ident+`
WHERE system_label = $2 AND embedding <=> $1::vector < $3
ORDER BY embedding <=> $1::vector
LIMIT $4`, lit, string(model.TrustReal), maxDistance, k)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest: %w", model.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Text, &c.Distance); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", model.ErrStoreUnavailable, err)
		}
		if c.Distance >= maxDistance {
			continue
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", model.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Insert adds a claim and returns its ID
func (s *PostgresStore) Insert(ctx context.Context, claim model.KBClaim) (int64, error) {
	lit, err := encodeVectorLiteral(claim.Embedding)
	if err != nil {
		return 0, err
	}
	label := claim.TrustLabel
	if label == "" {
		label = model.TrustUndefined
	}
	source := claim.SourceType
	if source == "" {
		source = model.SourceAdmin
	}
	articleID := sql.NullString{String: claim.SourceArticleID, Valid: claim.SourceArticleID != ""}

	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO `+s.ident+` (article_id, content, embedding, system_label, verified, source_type, created_at)
VALUES ($1, $2, $3::vector, $4, $5, $6, NOW())
RETURNING id`, articleID, claim.Text, lit, string(label), label == model.TrustReal, string(source)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert: %w", model.ErrStoreUnavailable, err)
	}
	return id, nil
}

// SetTrustLabel changes a claim's label
func (s *PostgresStore) SetTrustLabel(ctx context.Context, id int64, label model.TrustLabel) error {
	if !label.Valid() {
		return fmt.Errorf("invalid trust label: %q", label)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE `+s.ident+` SET system_label = $1, verified = $2 WHERE id = $3`,
		string(label), label == model.TrustReal, id)
	if err != nil {
		return fmt.Errorf("%w: update: %w", model.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update: %w", model.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", model.ErrNotFound, id)
	}
	return nil
}

// Dimension reads the declared vector(D) size, falling back to a stored row
func (s *PostgresStore) Dimension(ctx context.Context) (int, error) {
	var typmod int
	err := s.db.QueryRowContext(ctx, `
SELECT atttypmod FROM pg_attribute
WHERE attrelid = $1::regclass AND attname = 'embedding'`, s.table).Scan(&typmod)
	if err != nil {
		return 0, fmt.Errorf("%w: dimension: %w", model.ErrStoreUnavailable, err)
	}
	if typmod > 0 {
		return typmod, nil
	}

	var dims int
	err = s.db.QueryRowContext(ctx, `SELECT vector_dims(embedding) FROM `+s.ident+` LIMIT 1`).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: dimension: %w", model.ErrStoreUnavailable, err)
	}
	return dims, nil
}

// Stats counts claims per trust label
func (s *PostgresStore) Stats(ctx context.Context) (map[model.TrustLabel]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT system_label, COUNT(*) FROM `+s.ident+` GROUP BY system_label`)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %w", model.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[model.TrustLabel]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("%w: stats: %w", model.ErrStoreUnavailable, err)
		}
		stats[model.TrustLabel(label)] = n
	}
	return stats, rows.Err()
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
