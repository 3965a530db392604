package settlement

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("settlement not found")

// Repository is the persistence contract the engine depends on. The engine
// only needs read/write-by-id semantics; the storage technology behind it is
// the caller's choice. Save must be atomic per settlement: either the whole
// aggregate persists or none of it does.
type Repository interface {
	Get(ctx context.Context, id string) (*Settlement, error)
	List(ctx context.Context) ([]*Settlement, error)
	Save(ctx context.Context, s *Settlement) error

	// ArchiveDisaster records a resolved disaster and detaches it from the
	// settlement on the next Save.
	ArchiveDisaster(ctx context.Context, settlementId string, ev *DisasterEvent) error
}
