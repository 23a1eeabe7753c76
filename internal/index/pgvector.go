package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Pgvector serves nearest-neighbor queries from a passages table with
// a pgvector embedding column. The <-> operator is plain L2 distance,
// matching the metric of the offline-built index.
type Pgvector struct {
	q Queryer
}

func NewPgvector(q Queryer) *Pgvector {
	return &Pgvector{q: q}
}

func Dial(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func (p *Pgvector) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := p.q.Query(ctx, `
SELECT chunk_id, embedding <-> $1::vector AS distance
FROM passages
WHERE embedding IS NOT NULL
ORDER BY embedding <-> $1::vector, chunk_id
LIMIT $2`, ToLiteral(vec), k)
	if err != nil {
		return nil, fmt.Errorf("query pgvector index: %w", err)
	}
	defer rows.Close()

	out := make([]Neighbor, 0, k)
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return out, nil
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
