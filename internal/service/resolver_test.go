package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/domain"
	"github.com/epicsum/mediasvc/internal/index"
	"github.com/epicsum/mediasvc/internal/lexical"
	"github.com/epicsum/mediasvc/internal/logger"
)

// fakeEmbedder returns a fixed vector, or an error when err is set.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Dimensions() int {
	return len(f.vector)
}

func newLexicalResolver(t *testing.T, records []domain.MediaRecord) *Resolver {
	t.Helper()
	store, err := catalog.NewStore(records)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return NewResolver(store, nil, lexical.NewScorer(store), nil, logger.GetDefault(), nil)
}

// scenarioRecords builds 100 videos with shared vocabulary plus 3 images.
func scenarioRecords() []domain.MediaRecord {
	records := []domain.MediaRecord{
		{ContentType: domain.ContentTypeImage, Title: "Blue Jeans", Description: "Blue Jeans", Link: "https://cdn.example.com/1.jpg"},
		{ContentType: domain.ContentTypeImage, Title: "Red Shirt", Description: "Red Shirt", Link: "https://cdn.example.com/2.jpg"},
		{ContentType: domain.ContentTypeImage, Title: "Blue Jacket", Description: "Blue Jacket", Link: "https://cdn.example.com/3.jpg"},
	}
	for i := 0; i < 100; i++ {
		records = append(records, domain.MediaRecord{
			ContentType: domain.ContentTypeVideo,
			Title:       fmt.Sprintf("clip %d", i),
			Description: fmt.Sprintf("video clip number %d", i),
			Link:        fmt.Sprintf("https://cdn.example.com/videos/%d.mp4", i),
		})
	}
	return records
}

func TestResolveBlueJeansScenario(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	res, err := r.Resolve(context.Background(), "blue", domain.ContentTypeImage, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Record.Title != "Blue Jeans" {
		t.Errorf("expected Blue Jeans, got %q", res.Record.Title)
	}
	if res.TotalMatches != 2 {
		t.Errorf("expected 2 matches, got %d", res.TotalMatches)
	}
	if res.ActualIndex != 0 {
		t.Errorf("expected actual index 0, got %d", res.ActualIndex)
	}
	if res.RankedBy != RankedByLexical {
		t.Errorf("expected lexical ranking, got %s", res.RankedBy)
	}
}

func TestResolveModulus(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	// "clip" matches all 100 videos.
	res, err := r.Resolve(context.Background(), "clip", domain.ContentTypeVideo, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMatches != 100 {
		t.Fatalf("expected 100 matches, got %d", res.TotalMatches)
	}
	if res.ActualIndex != 50 {
		t.Errorf("expected actual index 50, got %d", res.ActualIndex)
	}
}

func TestResolveFallbackScenario(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	// Zero vocabulary overlap with every video record.
	res, err := r.Resolve(context.Background(), "zzzz-qqqq-xxxx", domain.ContentTypeVideo, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RankedBy != RankedByFallback {
		t.Errorf("expected fallback ranking, got %s", res.RankedBy)
	}
	if res.TotalMatches != 100 {
		t.Errorf("expected full partition of 100, got %d", res.TotalMatches)
	}
	if res.ActualIndex != 7 {
		t.Errorf("expected actual index 7, got %d", res.ActualIndex)
	}
	// Stable catalog order: index 7 is the 8th video.
	if res.Record.Title != "clip 7" {
		t.Errorf("expected clip 7, got %q", res.Record.Title)
	}
}

func TestResolveFallbackDeterminism(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	var first *Resolution
	for i := 0; i < 5; i++ {
		res, err := r.Resolve(context.Background(), "zzzz", domain.ContentTypeImage, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == nil {
			first = res
			continue
		}
		if res.Record.Link != first.Record.Link || res.TotalMatches != first.TotalMatches {
			t.Errorf("fallback not deterministic: %+v vs %+v", res, first)
		}
	}
}

func TestResolveTotality(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	indexes := []int{0, 1, -1, -100, 99, 100, 1 << 20, -(1 << 20)}
	queries := []string{"blue", "clip", "no overlap whatsoever zzz", ""}

	for _, ct := range domain.ContentTypes {
		for _, q := range queries {
			for _, idx := range indexes {
				res, err := r.Resolve(context.Background(), q, ct, idx)
				if err != nil {
					t.Fatalf("resolve(%q, %s, %d): unexpected error: %v", q, ct, idx, err)
				}
				if res.Record.Link == "" {
					t.Errorf("resolve(%q, %s, %d): empty record", q, ct, idx)
				}
				if res.ActualIndex < 0 || res.ActualIndex >= res.TotalMatches {
					t.Errorf("resolve(%q, %s, %d): actual index %d outside [0, %d)", q, ct, idx, res.ActualIndex, res.TotalMatches)
				}
			}
		}
	}
}

func TestResolveNegativeIndex(t *testing.T) {
	records := []domain.MediaRecord{
		{ContentType: domain.ContentTypeVideo, Title: "filler", Link: "https://cdn.example.com/0.mp4"},
	}
	for i := 0; i < 10; i++ {
		records = append(records, domain.MediaRecord{
			ContentType: domain.ContentTypeImage,
			Title:       fmt.Sprintf("poster %d", i),
			Link:        fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
		})
	}
	r := newLexicalResolver(t, records)

	res, err := r.Resolve(context.Background(), "poster", domain.ContentTypeImage, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMatches != 10 {
		t.Fatalf("expected 10 matches, got %d", res.TotalMatches)
	}
	if res.ActualIndex != 9 {
		t.Errorf("expected actual index 9, got %d", res.ActualIndex)
	}
}

func TestResolveInvalidContentType(t *testing.T) {
	r := newLexicalResolver(t, scenarioRecords())

	if _, err := r.Resolve(context.Background(), "blue", domain.ContentType("audio"), 0); err == nil {
		t.Error("expected error for invalid content type")
	}
}

func newVectorResolver(t *testing.T, minVector int, embedder EmbeddingProvider) *Resolver {
	t.Helper()
	records := []domain.MediaRecord{
		{ContentType: domain.ContentTypeImage, Title: "Blue Jeans", Link: "https://cdn.example.com/1.jpg"},
		{ContentType: domain.ContentTypeImage, Title: "Red Shirt", Link: "https://cdn.example.com/2.jpg"},
		{ContentType: domain.ContentTypeVideo, Title: "Sunset", Link: "https://cdn.example.com/1.mp4"},
	}
	store, err := catalog.NewStore(records)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	vectors := []float32{
		1, 0, // Blue Jeans
		0, 1, // Red Shirt
		1, 0, // Sunset
	}
	idx, err := index.NewMemoryIndex(vectors, 2, store)
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}

	return NewResolver(store, idx, lexical.NewScorer(store), embedder, logger.GetDefault(),
		&ResolverConfig{MinVectorCandidates: minVector})
}

func TestResolveVectorPath(t *testing.T) {
	r := newVectorResolver(t, 1, &fakeEmbedder{vector: []float32{0, 1}})

	res, err := r.Resolve(context.Background(), "anything", domain.ContentTypeImage, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RankedBy != RankedByVector {
		t.Fatalf("expected vector ranking, got %s", res.RankedBy)
	}
	if res.Record.Title != "Red Shirt" {
		t.Errorf("expected Red Shirt as nearest neighbor, got %q", res.Record.Title)
	}
	if res.TotalMatches != 2 {
		t.Errorf("expected 2 image candidates, got %d", res.TotalMatches)
	}
}

func TestResolveEmbeddingFailureFallsBackToLexical(t *testing.T) {
	r := newVectorResolver(t, 1, &fakeEmbedder{err: fmt.Errorf("provider down")})

	res, err := r.Resolve(context.Background(), "red shirt", domain.ContentTypeImage, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RankedBy != RankedByLexical {
		t.Fatalf("expected lexical ranking, got %s", res.RankedBy)
	}
	if res.Record.Title != "Red Shirt" {
		t.Errorf("expected Red Shirt, got %q", res.Record.Title)
	}
}

func TestResolveMinVectorCandidatesThreshold(t *testing.T) {
	// The image partition has only 2 vectors; demanding 3 forces the
	// lexical path even though the vector search succeeds.
	r := newVectorResolver(t, 3, &fakeEmbedder{vector: []float32{1, 0}})

	res, err := r.Resolve(context.Background(), "blue jeans", domain.ContentTypeImage, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RankedBy != RankedByLexical {
		t.Errorf("expected lexical ranking below threshold, got %s", res.RankedBy)
	}
}

func TestFlooredMod(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{i: 150, n: 100, want: 50},
		{i: -1, n: 10, want: 9},
		{i: 0, n: 5, want: 0},
		{i: 5, n: 5, want: 0},
		{i: -10, n: 10, want: 0},
		{i: -11, n: 10, want: 9},
	}

	for _, tt := range tests {
		if got := flooredMod(tt.i, tt.n); got != tt.want {
			t.Errorf("flooredMod(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestHolderReadiness(t *testing.T) {
	h := NewHolder()

	if h.Ready() {
		t.Error("new holder should not be ready")
	}
	if _, err := h.Get(); err != ErrNotReady {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	r := newLexicalResolver(t, scenarioRecords())
	h.Set(r)

	if !h.Ready() {
		t.Error("holder should be ready after Set")
	}
	got, err := h.Get()
	if err != nil || got != r {
		t.Errorf("expected stored resolver, got %v, %v", got, err)
	}
}
