package index

import (
	"context"
	"fmt"
	"sort"

	"spacebio/internal/util"
)

// Memory is a brute-force flat index over the embedding matrix written
// by the offline build, using squared L2 distance (the same metric the
// corpus index is built with). Row position is the neighbor id.
type Memory struct {
	dim     int
	vectors [][]float32
}

func NewMemory(vectors [][]float32) (*Memory, error) {
	m := &Memory{}
	for i, v := range vectors {
		if m.dim == 0 {
			m.dim = len(v)
		}
		if len(v) == 0 || len(v) != m.dim {
			return nil, fmt.Errorf("embedding row %d has dimension %d, want %d", i, len(v), m.dim)
		}
	}
	m.vectors = vectors
	return m, nil
}

// LoadMemory reads the embedding matrix JSON (array of float arrays,
// row-aligned with the passage metadata file).
func LoadMemory(path string) (*Memory, error) {
	var vectors [][]float32
	if err := util.ReadJSON(path, &vectors); err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	return NewMemory(vectors)
}

func (m *Memory) Size() int { return len(m.vectors) }

func (m *Memory) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vec) != m.dim && m.dim != 0 {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vec), m.dim)
	}
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	out := make([]Neighbor, len(m.vectors))
	for i, row := range m.vectors {
		out[i] = Neighbor{ID: int64(i), Distance: sqL2(row, vec)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if k > len(out) {
		k = len(out)
	}
	return out[:k], nil
}

func sqL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
