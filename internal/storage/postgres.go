package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

const publishedTable = "published_articles"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps links in the published_articles table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and makes sure the table exists.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS published_articles (
		id SERIAL PRIMARY KEY,
		link TEXT UNIQUE NOT NULL,
		published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Load(ctx context.Context) ([]string, error) {
	query, args, err := selectLinksQuery()
	if err != nil {
		return nil, err
	}

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Save inserts every link not yet stored. Rows are never deleted, matching
// the append-only model of the ledger.
func (ps *PostgresStore) Save(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}
	query, args, err := insertLinksQuery(links)
	if err != nil {
		return err
	}
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save links: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Append(ctx context.Context, link string) error {
	return ps.Save(ctx, []string{link})
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func selectLinksQuery() (string, []interface{}, error) {
	return psql.Select("link").From(publishedTable).OrderBy("id").ToSql()
}

func insertLinksQuery(links []string) (string, []interface{}, error) {
	q := psql.Insert(publishedTable).Columns("link")
	for _, l := range links {
		q = q.Values(l)
	}
	return q.Suffix("ON CONFLICT (link) DO NOTHING").ToSql()
}
