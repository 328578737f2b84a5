package index

import (
	"context"
	"errors"

	"github.com/epicsum/mediasvc/internal/domain"
)

// ErrUnavailable is returned when the vector index failed to load or is not
// configured. The resolver treats this as "no vector signal" and runs
// lexical-only for the process lifetime; it is never fatal.
var ErrUnavailable = errors.New("index: vector index unavailable")

// MaxK caps the number of candidates any search may return, bounding
// response size and latency.
const MaxK = 100

// Index maps a query embedding to an ordered list of candidate record
// identifiers with similarity scores, descending by score with ties broken
// by ascending identifier. Implementations are read-only after construction
// and safe for concurrent use.
type Index interface {
	// Search returns up to k candidates of the given content type.
	Search(ctx context.Context, vector []float32, ct domain.ContentType, k int) ([]domain.Candidate, error)

	// Dimension returns the embedding dimension the index was built with.
	Dimension() int
}
