package index

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sbinet/npyio"

	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/domain"
)

// MemoryIndex is an exact nearest-neighbor index over the precomputed
// embedding matrix, searched by inner product. Embeddings are L2-normalized
// by the offline producer, so inner product equals cosine similarity.
// Built once at startup, read-only afterwards; the serving path does no I/O.
type MemoryIndex struct {
	vectors    []float32 // row-major, count x dim
	dim        int
	count      int
	partitions map[domain.ContentType][]int
}

// NewMemoryIndex builds an index from a flat row-major embedding matrix.
// The row count must equal the catalog size: embeddings and records share
// positional identity, and a mismatch means the artifacts come from
// different builds.
// Parameters:
//   - vectors: flat matrix, len = count*dim.
//   - dim: embedding dimension.
//   - store: catalog store providing the content type partitions.
// Returns:
//   - *MemoryIndex: initialized index.
//   - error: non-nil on dimension or count mismatch.
func NewMemoryIndex(vectors []float32, dim int, store *catalog.Store) (*MemoryIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dim)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("embedding matrix size %d is not a multiple of dimension %d", len(vectors), dim)
	}
	count := len(vectors) / dim
	if count != store.Size() {
		return nil, fmt.Errorf("embedding count %d does not match catalog size %d", count, store.Size())
	}

	partitions := make(map[domain.ContentType][]int, len(domain.ContentTypes))
	for _, ct := range domain.ContentTypes {
		partitions[ct] = store.AllOfType(ct)
	}

	return &MemoryIndex{
		vectors:    vectors,
		dim:        dim,
		count:      count,
		partitions: partitions,
	}, nil
}

// LoadMemoryIndex reads an embeddings.npy artifact (float32, N x dim) and
// builds a MemoryIndex over it.
// Parameters:
//   - r: reader over the npy artifact.
//   - store: catalog store for partition lists and the consistency check.
// Returns:
//   - *MemoryIndex: loaded index.
//   - error: non-nil if the artifact cannot be read or is inconsistent.
func LoadMemoryIndex(r io.Reader, store *catalog.Store) (*MemoryIndex, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape := rd.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, fmt.Errorf("expected 2-dimensional embedding matrix, got shape %v", shape)
	}

	var data []float32
	if err := rd.Read(&data); err != nil {
		return nil, fmt.Errorf("failed to read embedding matrix: %w", err)
	}

	return NewMemoryIndex(data, shape[1], store)
}

// Dimension returns the embedding dimension.
func (m *MemoryIndex) Dimension() int {
	return m.dim
}

// Size returns the number of indexed vectors.
func (m *MemoryIndex) Size() int {
	return m.count
}

// Vector returns the stored embedding row for a record identifier. The
// returned slice aliases the index storage; callers must not modify it.
func (m *MemoryIndex) Vector(id int) []float32 {
	return m.vectors[id*m.dim : (id+1)*m.dim]
}

// Search scans the requested partition and returns the top-k candidates by
// inner product, descending, ties broken by ascending identifier.
// Parameters:
//   - ctx: unused by the in-memory scan; kept for interface symmetry.
//   - vector: query embedding, must have the index dimension.
//   - ct: content type partition to search.
//   - k: maximum candidates to return; clamped to MaxK.
// Returns:
//   - []domain.Candidate: ranked candidates.
//   - error: non-nil on dimension mismatch.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, ct domain.ContentType, k int) ([]domain.Candidate, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(vector), m.dim)
	}
	if k <= 0 || k > MaxK {
		k = MaxK
	}

	ids := m.partitions[ct]
	candidates := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		row := m.vectors[id*m.dim : (id+1)*m.dim]
		var dot float64
		for i, v := range row {
			dot += float64(v) * float64(vector[i])
		}
		candidates = append(candidates, domain.Candidate{ID: id, Score: dot})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
