package catalog

import (
	"errors"
	"fmt"

	"github.com/epicsum/mediasvc/internal/domain"
)

// ErrNotFound is returned when an identifier is outside the catalog range.
// Identifiers always originate from the vector index or the lexical scorer,
// so hitting this in the serving path indicates mismatched artifact versions.
var ErrNotFound = errors.New("catalog: record not found")

// ErrEmptyPartition is returned at load time when a content type has no
// records at all. This is a configuration defect and the service must not
// report itself ready.
var ErrEmptyPartition = errors.New("catalog: empty content type partition")

// Store is the immutable, ordered collection of media records.
// It is built once at startup and read-only for the process lifetime, so
// concurrent reads need no locking.
type Store struct {
	records    []domain.MediaRecord
	partitions map[domain.ContentType][]int
}

// NewStore builds a Store from an ordered record slice.
// Parameters:
//   - records: catalog records in artifact order; position is identity.
// Returns:
//   - *Store: initialized store with per-type partitions precomputed.
//   - error: ErrEmptyPartition if any content type has no records.
func NewStore(records []domain.MediaRecord) (*Store, error) {
	partitions := make(map[domain.ContentType][]int, len(domain.ContentTypes))
	for i, rec := range records {
		if !rec.ContentType.Valid() {
			return nil, fmt.Errorf("catalog: record %d has invalid content type %q", i, rec.ContentType)
		}
		partitions[rec.ContentType] = append(partitions[rec.ContentType], i)
	}

	for _, ct := range domain.ContentTypes {
		if len(partitions[ct]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPartition, ct)
		}
	}

	return &Store{
		records:    records,
		partitions: partitions,
	}, nil
}

// Get returns the record with the given identifier.
// Parameters:
//   - id: record identifier (position in the catalog).
// Returns:
//   - domain.MediaRecord: the record.
//   - error: ErrNotFound if id is out of range.
func (s *Store) Get(id int) (domain.MediaRecord, error) {
	if id < 0 || id >= len(s.records) {
		return domain.MediaRecord{}, fmt.Errorf("%w: id %d, size %d", ErrNotFound, id, len(s.records))
	}
	return s.records[id], nil
}

// AllOfType returns the identifiers of all records of the given content type,
// in stable catalog order. The returned slice is shared and must not be
// mutated by callers.
func (s *Store) AllOfType(ct domain.ContentType) []int {
	return s.partitions[ct]
}

// CountByType returns the number of records of the given content type.
func (s *Store) CountByType(ct domain.ContentType) int {
	return len(s.partitions[ct])
}

// Size returns the total number of records in the catalog.
func (s *Store) Size() int {
	return len(s.records)
}
