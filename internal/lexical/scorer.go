package lexical

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/domain"
)

const (
	// maxRanked caps the size of a ranked partition result.
	maxRanked = 100

	// wordOverlapWeight and sequenceWeight blend the two lexical signals.
	wordOverlapWeight = 0.7
	sequenceWeight    = 0.3

	// metaWordCredit is the credit for query words found only in the
	// category/sub-category fields of image records.
	metaWordCredit = 0.5
)

// Scorer ranks catalog records against a normalized query using text signals
// only. It is the secondary ranking path when the vector index is available
// and the sole path when it is not. Pure and deterministic; safe for
// concurrent use.
type Scorer struct {
	store *catalog.Store
}

// NewScorer creates a lexical scorer over the given catalog store.
// Parameters:
//   - store: immutable catalog store.
// Returns:
//   - *Scorer: initialized scorer.
func NewScorer(store *catalog.Store) *Scorer {
	return &Scorer{store: store}
}

// Score computes the fused lexical score for one record in [0,1].
// word overlap (0.7): fraction of query words present in the record's
// searchable fields, with category/sub-category matches at half credit for
// images. sequence similarity (0.3): SequenceMatcher ratio between the query
// and the record's primary text.
// Parameters:
//   - queryNorm: normalized query string.
//   - rec: record to score.
// Returns:
//   - float64: fused score in [0,1].
func (s *Scorer) Score(queryNorm string, rec domain.MediaRecord) float64 {
	overlap, seq := s.components(queryNorm, rec)
	return wordOverlapWeight*overlap + sequenceWeight*seq
}

// components returns the raw word-overlap and sequence-similarity signals.
// Word overlap decides whether a record matches at all; sequence similarity
// only orders the matches.
func (s *Scorer) components(queryNorm string, rec domain.MediaRecord) (overlap, seq float64) {
	queryWords := strings.Fields(queryNorm)
	if len(queryWords) == 0 {
		return 0, 0
	}

	primaryNorm := Normalize(rec.PrimaryText())
	primaryWords := wordSet(primaryNorm)

	var metaWords map[string]struct{}
	if rec.ContentType == domain.ContentTypeImage {
		metaWords = wordSet(Normalize(rec.Meta.Category + " " + rec.Meta.SubCategory))
	}

	var credit float64
	for _, w := range queryWords {
		if _, ok := primaryWords[w]; ok {
			credit += 1.0
			continue
		}
		if _, ok := metaWords[w]; ok {
			credit += metaWordCredit
		}
	}

	return credit / float64(len(queryWords)), sequenceRatio(queryNorm, primaryNorm)
}

// RankPartition scores every record of the given content type and returns the
// matching candidates, descending by score with ties broken by ascending
// identifier, truncated to the top 100. A record matches only when it shares
// vocabulary with the query, so a query with zero word overlap against every
// record yields an empty result (handled by the resolver's fallback policy).
// Parameters:
//   - queryNorm: normalized query string.
//   - ct: content type partition to rank.
// Returns:
//   - []domain.Candidate: ranked candidates, possibly empty.
func (s *Scorer) RankPartition(queryNorm string, ct domain.ContentType) []domain.Candidate {
	ids := s.store.AllOfType(ct)

	candidates := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		rec, err := s.store.Get(id)
		if err != nil {
			// Partition lists are built from the store itself; unreachable.
			continue
		}
		overlap, seq := s.components(queryNorm, rec)
		if overlap > 0 {
			score := wordOverlapWeight*overlap + sequenceWeight*seq
			candidates = append(candidates, domain.Candidate{ID: id, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > maxRanked {
		candidates = candidates[:maxRanked]
	}
	return candidates
}

// sequenceRatio returns the SequenceMatcher similarity ratio between two
// normalized strings at character granularity: 1.0 for identical strings,
// near 0.0 for disjoint character sets.
func sequenceRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

func wordSet(normalized string) map[string]struct{} {
	words := strings.Fields(normalized)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
