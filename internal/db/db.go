package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"legal-rag/internal/config"
)

const insertBatchSize = 500

// ArticleEmbedding is one corpus row stored for pgvector search. ID is the
// article's position in the corpus.
type ArticleEmbedding struct {
	ID        int    `bun:"id"`
	Embedding Vector `bun:"embedding,notnull"`
}

// Hit is a pgvector search result; Distance is the plain L2 distance.
type Hit struct {
	ID       int     `bun:"id"`
	Distance float64 `bun:"distance"`
}

// Vector encodes a float32 slice in pgvector's text format.
type Vector []float32

func (v Vector) Value() (interface{}, error) {
	return v.String(), nil
}

func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(debug)))
	return db
}

// ConnectDB opens the database with the configured driver: "pgdriver"
// (default) or "pq".
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	var (
		sqldb *sql.DB
		err   error
	)
	switch strings.ToLower(cfg.Driver) {
	case "pq":
		sqldb, err = sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, err
		}
	default:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL)))
	}
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return sqldb, nil
}

// InitTable recreates table for vectors of the given dimension.
func InitTable(ctx context.Context, db *bun.DB, table string, dim int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := DropTable(ctx, db, table); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		"CREATE TABLE ? (id integer PRIMARY KEY, embedding vector(?) NOT NULL)",
		bun.Ident(table), dim)
	return err
}

func DropTable(ctx context.Context, db *bun.DB, table string) error {
	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(table))
	return err
}

// StoreEmbeddings inserts rows in batches inside one transaction.
func StoreEmbeddings(ctx context.Context, db *bun.DB, table string, rows []ArticleEmbedding) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for start := 0; start < len(rows); start += insertBatchSize {
			batch := rows[start:min(start+insertBatchSize, len(rows))]
			if _, err := InsertQuery(tx, table, batch).Exec(ctx); err != nil {
				return fmt.Errorf("insert rows %d-%d: %w", start, start+len(batch)-1, err)
			}
		}
		return nil
	})
}

// InsertQuery inserts rows into table.
func InsertQuery(db bun.IDB, table string, rows []ArticleEmbedding) *bun.InsertQuery {
	return db.NewInsert().
		Model(&rows).
		ModelTableExpr("?", bun.Ident(table))
}

// NearestQuery selects the limit rows closest to query by L2 distance, ties
// by id.
func NearestQuery(db bun.IDB, table string, query Vector, limit int) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("? AS d", bun.Ident(table)).
		ColumnExpr("d.id").
		ColumnExpr("d.embedding <-> ?::vector AS distance", query).
		OrderExpr("distance ASC, d.id ASC").
		Limit(limit)
}

// SearchNearest runs NearestQuery.
func SearchNearest(ctx context.Context, db *bun.DB, table string, query Vector, limit int) ([]Hit, error) {
	var hits []Hit
	err := NearestQuery(db, table, query, limit).Scan(ctx, &hits)
	return hits, err
}
