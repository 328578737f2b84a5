package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/domain"
)

func testStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore([]domain.MediaRecord{
		{ContentType: domain.ContentTypeImage, Title: "Blue Jeans"},
		{ContentType: domain.ContentTypeImage, Title: "Red Shirt"},
		{ContentType: domain.ContentTypeVideo, Title: "Sunset"},
		{ContentType: domain.ContentTypeImage, Title: "Blue Jacket"},
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

// testVectors is a 4x2 matrix of unit vectors matching testStore ordering.
func testVectors() []float32 {
	return []float32{
		1, 0, // id 0, image
		0, 1, // id 1, image
		1, 0, // id 2, video
		1, 0, // id 3, image, ties with id 0
	}
}

func TestMemoryIndexSearch(t *testing.T) {
	idx, err := NewMemoryIndex(testVectors(), 2, testStore(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidates, err := idx.Search(context.Background(), []float32{1, 0}, domain.ContentTypeImage, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 image candidates, got %d", len(candidates))
	}

	// ids 0 and 3 both score 1.0; the tie must break by ascending id.
	if candidates[0].ID != 0 || candidates[1].ID != 3 || candidates[2].ID != 1 {
		t.Errorf("unexpected ordering: %v", candidates)
	}
	if candidates[0].Score != candidates[1].Score {
		t.Errorf("expected tied scores, got %f and %f", candidates[0].Score, candidates[1].Score)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Error("candidates not in descending score order")
		}
	}
}

func TestMemoryIndexSearchPartitioned(t *testing.T) {
	idx, err := NewMemoryIndex(testVectors(), 2, testStore(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidates, err := idx.Search(context.Background(), []float32{1, 0}, domain.ContentTypeVideo, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 2 {
		t.Errorf("expected only video id 2, got %v", candidates)
	}
}

func TestMemoryIndexSearchKClamp(t *testing.T) {
	idx, err := NewMemoryIndex(testVectors(), 2, testStore(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		k    int
		want int
	}{
		{name: "k smaller than partition", k: 2, want: 2},
		{name: "k zero uses max", k: 0, want: 3},
		{name: "k negative uses max", k: -5, want: 3},
		{name: "k above max uses max", k: MaxK + 1, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := idx.Search(context.Background(), []float32{1, 0}, domain.ContentTypeImage, tt.k)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(candidates) != tt.want {
				t.Errorf("expected %d candidates, got %d", tt.want, len(candidates))
			}
		})
	}
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	idx, err := NewMemoryIndex(testVectors(), 2, testStore(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := idx.Search(context.Background(), []float32{1, 0, 0}, domain.ContentTypeImage, 10); err == nil {
		t.Error("expected dimension mismatch error, got nil")
	}
}

func TestNewMemoryIndexConsistencyCheck(t *testing.T) {
	store := testStore(t)

	// 3 rows for a 4-record catalog: mismatched artifact versions.
	if _, err := NewMemoryIndex(make([]float32, 3*2), 2, store); err == nil {
		t.Error("expected count mismatch error, got nil")
	}

	// Matrix size not a multiple of the dimension.
	if _, err := NewMemoryIndex(make([]float32, 7), 2, store); err == nil {
		t.Error("expected dimension error, got nil")
	}
}

// writeNpy serializes a rows x cols float32 matrix in npy v1.0 format.
func writeNpy(t *testing.T, rows, cols int, data []float32) []byte {
	t.Helper()
	return writeNpyShape(t, fmt.Sprintf("(%d, %d)", rows, cols), data)
}

func writeNpyShape(t *testing.T, shape string, data []float32) []byte {
	t.Helper()

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': %s, }", shape)
	// Pad header so magic+len+header is 64-byte aligned, ending with newline.
	total := 6 + 2 + 2 + len(header) + 1
	pad := (64 - total%64) % 64
	for i := 0; i < pad; i++ {
		header += " "
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("failed to write header length: %v", err)
	}
	buf.WriteString(header)
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		t.Fatalf("failed to write matrix: %v", err)
	}
	return buf.Bytes()
}

func TestLoadMemoryIndex(t *testing.T) {
	store := testStore(t)
	artifact := writeNpy(t, 4, 2, testVectors())

	idx, err := LoadMemoryIndex(bytes.NewReader(artifact), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Dimension() != 2 {
		t.Errorf("expected dimension 2, got %d", idx.Dimension())
	}
	if idx.Size() != 4 {
		t.Errorf("expected 4 vectors, got %d", idx.Size())
	}

	candidates, err := idx.Search(context.Background(), []float32{0, 1}, domain.ContentTypeImage, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 1 {
		t.Errorf("expected top candidate id 1, got %v", candidates)
	}
}

func TestLoadMemoryIndexRejectsWrongShape(t *testing.T) {
	store := testStore(t)

	// 1-D artifact
	oneD := writeNpyShape(t, "(8,)", testVectors())
	if _, err := LoadMemoryIndex(bytes.NewReader(oneD), store); err == nil {
		t.Error("expected shape error for 1-D artifact")
	}

	// Wrong row count
	short := writeNpy(t, 3, 2, testVectors()[:6])
	if _, err := LoadMemoryIndex(bytes.NewReader(short), store); err == nil {
		t.Error("expected consistency error for short artifact")
	}
}
