package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/suPer8Hu/estate-chat/internal/query"
)

const propertyColumns = `id, title, price_min, price_max, location, bedrooms_min, bedrooms_max,
	area_min, area_max, latitude, longitude, developer, rera_id, launch_date, possession_date,
	description, amenities, overview, created_at, updated_at`

// Schema creates the listing table with a generated tsvector column. It is
// safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS properties (
	id              BIGSERIAL PRIMARY KEY,
	title           VARCHAR(255) NOT NULL,
	price_min       BIGINT NOT NULL,
	price_max       BIGINT NOT NULL,
	location        VARCHAR(255) NOT NULL DEFAULT '',
	bedrooms_min    INT NOT NULL,
	bedrooms_max    INT NOT NULL,
	area_min        DOUBLE PRECISION NOT NULL DEFAULT 0,
	area_max        DOUBLE PRECISION NOT NULL DEFAULT 0,
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	developer       VARCHAR(255) NOT NULL DEFAULT '',
	rera_id         VARCHAR(64) NOT NULL DEFAULT '',
	launch_date     TIMESTAMPTZ,
	possession_date TIMESTAMPTZ,
	description     TEXT NOT NULL DEFAULT '',
	amenities       JSONB NOT NULL DEFAULT '[]',
	overview        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	search_vector   TSVECTOR GENERATED ALWAYS AS (
		to_tsvector('english',
			coalesce(title, '') || ' ' || coalesce(description, '') || ' ' || coalesce(location, ''))
	) STORED
);
CREATE INDEX IF NOT EXISTS idx_properties_search ON properties USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_properties_price_min ON properties (price_min);
`

// PostgresStore ranks term matches with ts_rank over search_vector.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(dsn string, maxConn, maxIdleConn int) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to property database: %w", err)
	}
	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

type rankedProperty struct {
	Property
	TextRank float64 `db:"text_rank"`
}

// buildFind returns the SELECT for c. Placeholders are numbered in the order
// args are appended.
func buildFind(c query.Criteria, limit, offset int) (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	argIndex := 1

	if c.Bedrooms != nil {
		where = append(where, fmt.Sprintf("bedrooms_min <= $%d AND bedrooms_max >= $%d", argIndex, argIndex))
		args = append(args, *c.Bedrooms)
		argIndex++
	}
	if c.PriceMax != nil {
		where = append(where, fmt.Sprintf("price_min <= $%d", argIndex))
		args = append(args, *c.PriceMax)
		argIndex++
	}

	rank := "0::real"
	order := "created_at DESC, id DESC"
	if len(c.Terms) > 0 {
		// terms are letters and digits only, so joining with | is a valid tsquery
		tsq := fmt.Sprintf("to_tsquery('english', $%d)", argIndex)
		args = append(args, strings.Join(c.Terms, " | "))
		argIndex++
		// a query of only english stopwords parses to an empty tsquery, which
		// would otherwise match nothing
		where = append(where, "(numnode("+tsq+") = 0 OR search_vector @@ "+tsq+")")
		rank = "ts_rank(search_vector, " + tsq + ")"
		order = "text_rank DESC, " + order
	}

	q := fmt.Sprintf(`SELECT %s, %s AS text_rank
		FROM properties
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		propertyColumns, rank, strings.Join(where, " AND "), order, argIndex, argIndex+1)
	args = append(args, limit, offset)
	return q, args
}

func (s *PostgresStore) Find(ctx context.Context, c query.Criteria, limit, offset int) ([]Property, error) {
	q, args := buildFind(c, limit, offset)

	var rows []rankedProperty
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	out := make([]Property, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Property)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uint64) (*Property, error) {
	var p Property
	err := s.db.GetContext(ctx, &p, "SELECT "+propertyColumns+" FROM properties WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) PatchOverview(ctx context.Context, id uint64, overview string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET overview = $1, updated_at = NOW() WHERE id = $2`, overview, id)
	if err != nil {
		return fmt.Errorf("failed to update overview: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
