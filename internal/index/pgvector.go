package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
	"legal-rag/internal/db"
)

// PGVector serves searches from a Postgres table with the pgvector
// extension. The table is rebuilt from the corpus matrix at startup.
type PGVector struct {
	db    *bun.DB
	table string
	rows  int
	dim   int
}

func NewPGVector(ctx context.Context, dbConfig *config.DatabaseConfig, table string, m *corpus.Matrix) (*PGVector, error) {
	sqldb, err := db.ConnectDB(dbConfig)
	if err != nil {
		return nil, err
	}
	bdb := db.NewDB(sqldb, dbConfig.Debug)

	if err := db.InitTable(ctx, bdb, table, m.Dim); err != nil {
		bdb.Close()
		return nil, fmt.Errorf("init table %s: %w", table, err)
	}
	rows := make([]db.ArticleEmbedding, m.Rows)
	for i := range rows {
		rows[i] = db.ArticleEmbedding{ID: i, Embedding: db.Vector(m.Row(i))}
	}
	if err := db.StoreEmbeddings(ctx, bdb, table, rows); err != nil {
		bdb.Close()
		return nil, err
	}
	log.Info().Str("table", table).Int("rows", m.Rows).Msg("Built pgvector index")

	return &PGVector{db: bdb, table: table, rows: m.Rows, dim: m.Dim}, nil
}

func (p *PGVector) Len() int { return p.rows }
func (p *PGVector) Dim() int { return p.dim }

func (p *PGVector) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	k, err := checkQuery(p, query, k)
	if err != nil {
		return nil, err
	}
	hits, err := db.SearchNearest(ctx, p.db, p.table, db.Vector(query), k)
	if err != nil {
		return nil, err
	}
	return hitsToNeighbors(hits), nil
}

// hitsToNeighbors squares pgvector's L2 distances.
func hitsToNeighbors(hits []db.Hit) []Neighbor {
	out := make([]Neighbor, len(hits))
	for i, h := range hits {
		out[i] = Neighbor{Index: h.ID, Distance: float32(h.Distance * h.Distance)}
	}
	return out
}

func (p *PGVector) Close() error {
	return p.db.Close()
}
