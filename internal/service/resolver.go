package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/domain"
	"github.com/epicsum/mediasvc/internal/index"
	"github.com/epicsum/mediasvc/internal/lexical"
	"github.com/epicsum/mediasvc/internal/logger"
)

// maxCandidates caps the candidate list and therefore total_matches.
const maxCandidates = 100

// RankedBy identifies which ranking path produced the candidate list.
type RankedBy string

const (
	RankedByVector   RankedBy = "vector"
	RankedByLexical  RankedBy = "lexical"
	RankedByFallback RankedBy = "fallback"
)

// ResolverConfig holds configuration for the query resolver.
type ResolverConfig struct {
	// MinVectorCandidates is the minimum number of vector hits required to
	// use the vector path; fewer hits fall through to the lexical scorer.
	MinVectorCandidates int
}

// Resolver orchestrates query resolution: normalization, candidate retrieval
// (vector with lexical fallback), fallback-to-full-partition, and modular
// index selection. It is a pure function over immutable loaded state, so any
// number of resolutions may run concurrently.
type Resolver struct {
	store               *catalog.Store
	index               index.Index // nil when the vector index is unavailable
	scorer              *lexical.Scorer
	embedder            EmbeddingProvider // nil when embedding is disabled
	logger              *logger.Logger
	minVectorCandidates int
}

// NewResolver creates a query resolver.
// Parameters:
//   - store: loaded catalog store.
//   - idx: vector index, or nil to run lexical-only for the process lifetime.
//   - scorer: lexical scorer over the same store.
//   - embedder: query embedding provider, or nil to disable the vector path.
//   - log: logger instance.
//   - cfg: resolver configuration settings.
// Returns:
//   - *Resolver: initialized resolver.
func NewResolver(
	store *catalog.Store,
	idx index.Index,
	scorer *lexical.Scorer,
	embedder EmbeddingProvider,
	log *logger.Logger,
	cfg *ResolverConfig,
) *Resolver {
	minVector := 1
	if cfg != nil && cfg.MinVectorCandidates > 0 {
		minVector = cfg.MinVectorCandidates
	}
	return &Resolver{
		store:               store,
		index:               idx,
		scorer:              scorer,
		embedder:            embedder,
		logger:              log,
		minVectorCandidates: minVector,
	}
}

// Resolution is the result of one query resolution.
type Resolution struct {
	Record         domain.MediaRecord
	Query          string // normalized query
	RequestedIndex int
	ActualIndex    int
	TotalMatches   int
	RankedBy       RankedBy
}

// VectorSearchEnabled reports whether the vector ranking path is active.
func (r *Resolver) VectorSearchEnabled() bool {
	return r.index != nil && r.embedder != nil
}

// Stats returns catalog totals for the info and health endpoints.
func (r *Resolver) Stats() (total, images, videos int) {
	return r.store.Size(),
		r.store.CountByType(domain.ContentTypeImage),
		r.store.CountByType(domain.ContentTypeVideo)
}

// Resolve answers a free-text query with exactly one catalog record.
// The requested index may be negative or arbitrarily large; it is mapped
// into [0, totalMatches) by floored modulus. As long as the partition is
// non-empty (validated at load), Resolve never returns "not found".
// Parameters:
//   - ctx: context for cancellation; only the embedding call blocks on it.
//   - description: raw query text; "-" and "_" act as word separators.
//   - ct: requested content type.
//   - requestedIndex: caller-chosen result offset.
// Returns:
//   - *Resolution: selected record plus ranking metadata.
//   - error: non-nil only on internal inconsistency between index and catalog.
func (r *Resolver) Resolve(ctx context.Context, description string, ct domain.ContentType, requestedIndex int) (*Resolution, error) {
	if !ct.Valid() {
		return nil, fmt.Errorf("invalid content type: %q", ct)
	}

	queryNorm := lexical.Normalize(description)

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent:   "resolver",
		logger.FieldContentType: string(ct),
	})

	candidates, rankedBy := r.retrieve(ctx, queryNorm, ct)

	if len(candidates) == 0 {
		// Fallback policy: the entire unranked partition, in stable
		// catalog order. Guarantees a non-empty candidate set.
		ids := r.store.AllOfType(ct)
		candidates = make([]domain.Candidate, len(ids))
		for i, id := range ids {
			candidates[i] = domain.Candidate{ID: id}
		}
		rankedBy = RankedByFallback
		logger.CtxInfo(ctx, "No candidates matched, falling back to full partition: query=%q, partition_size=%d", queryNorm, len(candidates))
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	for len(candidates) > 0 {
		total := len(candidates)
		actual := flooredMod(requestedIndex, total)

		rec, err := r.store.Get(candidates[actual].ID)
		if err == nil {
			logger.CtxInfo(ctx, "Query resolved: query=%q, ranked_by=%s, requested_index=%d, actual_index=%d, total_matches=%d",
				queryNorm, rankedBy, requestedIndex, actual, total)
			return &Resolution{
				Record:         rec,
				Query:          queryNorm,
				RequestedIndex: requestedIndex,
				ActualIndex:    actual,
				TotalMatches:   total,
				RankedBy:       rankedBy,
			}, nil
		}

		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		// Stale identifier from a mismatched index artifact: log, drop the
		// candidate, and reselect over the remaining list.
		logger.CtxError(ctx, "Candidate id %d outside catalog range, skipping: error=%v", candidates[actual].ID, err)
		candidates = append(candidates[:actual], candidates[actual+1:]...)
	}

	return nil, fmt.Errorf("no resolvable candidates for content type %s", ct)
}

// retrieve runs the vector path when available and falls through to the
// lexical scorer, returning the ranked candidates and which path won.
func (r *Resolver) retrieve(ctx context.Context, queryNorm string, ct domain.ContentType) ([]domain.Candidate, RankedBy) {
	if r.VectorSearchEnabled() {
		vector, err := r.embedder.EmbedQuery(ctx, queryNorm)
		if err != nil {
			logger.CtxWarn(ctx, "Query embedding failed, using lexical ranking: query=%q, error=%v", queryNorm, err)
		} else {
			candidates, err := r.index.Search(ctx, vector, ct, maxCandidates)
			switch {
			case errors.Is(err, index.ErrUnavailable):
				logger.CtxWarn(ctx, "Vector index unavailable, using lexical ranking: query=%q", queryNorm)
			case err != nil:
				logger.CtxWarn(ctx, "Vector search failed, using lexical ranking: query=%q, error=%v", queryNorm, err)
			case len(candidates) >= r.minVectorCandidates:
				return candidates, RankedByVector
			default:
				logger.CtxDebug(ctx, "Vector search returned %d candidates (minimum %d), using lexical ranking",
					len(candidates), r.minVectorCandidates)
			}
		}
	}

	return r.scorer.RankPartition(queryNorm, ct), RankedByLexical
}

// flooredMod maps i into [0, n) for n > 0, normalizing negative values.
func flooredMod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}
