package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/epicsum/mediasvc/internal/domain"
)

// Load reads a unified catalog artifact (a JSON array of media records) and
// builds an immutable Store from it. The artifact is produced offline by the
// catalog builder and is consumed as already complete and valid.
// Parameters:
//   - r: reader over the JSON artifact.
// Returns:
//   - *Store: loaded store.
//   - error: non-nil if decoding fails or a partition is empty.
func Load(r io.Reader) (*Store, error) {
	var records []domain.MediaRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return NewStore(records)
}
