package construction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/economy"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
)

// Queue manages a settlement's construction entries: admission, activation
// timestamps, progress, and completion into standing structures.
type Queue struct {
	structures storage.Storer[*catalog.StructureSpec]
	tiles      storage.Storer[*catalog.TileSpec]

	// slots is how many entries build concurrently; the rest wait FIFO.
	slots      int
	timeFactor float64
}

func NewQueue(structures storage.Storer[*catalog.StructureSpec], tiles storage.Storer[*catalog.TileSpec], slots int, timeFactor float64) *Queue {
	if slots < 1 {
		slots = 1
	}
	if timeFactor <= 0 {
		timeFactor = 1
	}
	return &Queue{
		structures: structures,
		tiles:      tiles,
		slots:      slots,
		timeFactor: timeFactor,
	}
}

// Progress is one active entry's completion percentage.
type Progress struct {
	Entry   settlement.ConstructionQueueEntry
	Percent float64
}

// Result reports what one construction pass did.
type Result struct {
	// Completed holds structures instantiated this pass. Started holds
	// entries that began building. Updates holds progress for entries
	// still under way.
	Completed []*settlement.StructureInstance
	Started   []settlement.ConstructionQueueEntry
	Updates   []Progress

	// Changed reports that queue membership or ordering moved.
	Changed bool
}

// Enqueue admits a build order: it checks the type, extractor slots, and
// build cost, charges storage, and appends the entry. Entries landing in
// an open build slot start immediately.
func (q *Queue) Enqueue(ctx context.Context, s *settlement.Settlement, structureType string, now time.Time) (*settlement.ConstructionQueueEntry, error) {
	spec := q.structures.Get(storage.Identifier(structureType))
	if spec == nil {
		return nil, fmt.Errorf("unknown structure type %q", structureType)
	}

	if spec.IsExtractor() {
		if err := q.checkSlots(ctx, s); err != nil {
			return nil, err
		}
	}

	for r, cost := range spec.BuildCost {
		if s.Storage[r].Amount < cost {
			return nil, fmt.Errorf("insufficient %s: need %v, have %v", r, cost, s.Storage[r].Amount)
		}
	}

	charge := settlement.ResourceDelta{}
	for r, cost := range spec.BuildCost {
		charge[r] = -cost
	}
	s.Storage, _ = economy.ApplyDelta(s.Storage, charge)

	entry := &settlement.ConstructionQueueEntry{
		Type:     structureType,
		Position: len(s.Queue),
	}
	if entry.Position < q.slots {
		entry.StartedAt = now
		entry.CompletesAt = now.Add(q.buildTime(spec))
	}
	s.Queue = append(s.Queue, entry)

	return entry, nil
}

// Cancel removes the entry at the given position. Builds that never
// started refund their cost in full; abandoning one under way forfeits it.
func (q *Queue) Cancel(s *settlement.Settlement, position int) error {
	if position < 0 || position >= len(s.Queue) {
		return fmt.Errorf("no queue entry at position %d", position)
	}

	entry := s.Queue[position]
	if entry.StartedAt.IsZero() {
		if spec := q.structures.Get(storage.Identifier(entry.Type)); spec != nil {
			refund := settlement.ResourceDelta{}
			for r, cost := range spec.BuildCost {
				refund[r] = cost
			}
			s.Storage, _ = economy.ApplyDelta(s.Storage, refund)
		}
	}

	s.Queue = append(s.Queue[:position], s.Queue[position+1:]...)
	for i, e := range s.Queue {
		e.Position = i
	}

	return nil
}

// Advance runs one construction phase: finish due builds, promote waiting
// entries into open slots, and report progress on the rest.
func (q *Queue) Advance(ctx context.Context, s *settlement.Settlement, now time.Time) Result {
	var res Result

	// Finish whatever is due. Removal shifts the next entry into the
	// same index, so only advance on a miss.
	i := 0
	for i < len(s.Queue) && i < q.slots {
		e := s.Queue[i]
		if !e.StartedAt.IsZero() && !now.Before(e.CompletesAt) {
			res.Completed = append(res.Completed, q.instantiate(ctx, s, e))
			s.Queue = append(s.Queue[:i], s.Queue[i+1:]...)
			res.Changed = true
			continue
		}
		i++
	}

	for idx, e := range s.Queue {
		e.Position = idx
	}

	// Promote waiting entries into open slots.
	started := map[*settlement.ConstructionQueueEntry]bool{}
	for idx, e := range s.Queue {
		if idx >= q.slots {
			break
		}
		if !e.StartedAt.IsZero() {
			continue
		}

		spec := q.structures.Get(storage.Identifier(e.Type))
		if spec == nil {
			// The entry stays queued until the catalog knows its type
			// again.
			slog.WarnContext(ctx, "queued structure type missing from catalog", "settlement", s.Id, "type", e.Type)
			continue
		}

		e.StartedAt = now
		e.CompletesAt = now.Add(q.buildTime(spec))
		started[e] = true
		res.Started = append(res.Started, *e)
		res.Changed = true
	}

	for idx, e := range s.Queue {
		if idx >= q.slots {
			break
		}
		if e.StartedAt.IsZero() || started[e] {
			continue
		}
		res.Updates = append(res.Updates, Progress{Entry: *e, Percent: ProgressAt(e, now)})
	}

	return res
}

func (q *Queue) buildTime(spec *catalog.StructureSpec) time.Duration {
	return time.Duration(float64(spec.BuildTime()) * q.timeFactor)
}

// checkSlots rejects extractor orders that would overbook the tile. A
// missing tile can't be checked, so the order is allowed through.
func (q *Queue) checkSlots(ctx context.Context, s *settlement.Settlement) error {
	tile := q.tiles.Get(storage.Identifier(s.Tile))
	if tile == nil {
		slog.WarnContext(ctx, "tile not found, skipping slot check", "settlement", s.Id, "tile", s.Tile)
		return nil
	}

	used := 0
	for _, st := range s.Structures {
		if st.Health <= 0 {
			continue
		}
		if spec := q.structures.Get(storage.Identifier(st.Type)); spec != nil && spec.IsExtractor() {
			used++
		}
	}
	for _, e := range s.Queue {
		if spec := q.structures.Get(storage.Identifier(e.Type)); spec != nil && spec.IsExtractor() {
			used++
		}
	}

	if used >= tile.Slots {
		return fmt.Errorf("no free extractor slots: tile %s has %d", s.Tile, tile.Slots)
	}

	return nil
}

// instantiate turns a finished entry into a standing structure. Extractors
// take the lowest free tile slot; storage buildings raise the stock
// capacities their spec lists.
func (q *Queue) instantiate(ctx context.Context, s *settlement.Settlement, e *settlement.ConstructionQueueEntry) *settlement.StructureInstance {
	inst := &settlement.StructureInstance{
		Id:     uuid.New().String(),
		Type:   e.Type,
		Level:  1,
		Health: 100,
	}

	if spec := q.structures.Get(storage.Identifier(e.Type)); spec != nil {
		if spec.IsExtractor() {
			inst.Slot = q.freeSlot(ctx, s)
		}
		if len(spec.StorageCapacity) > 0 && s.Storage == nil {
			s.Storage = settlement.Storage{}
		}
		for r, c := range spec.StorageCapacity {
			st := s.Storage[r]
			st.Capacity += c
			s.Storage[r] = st
		}
	}

	s.Structures = append(s.Structures, inst)
	return inst
}

func (q *Queue) freeSlot(ctx context.Context, s *settlement.Settlement) int {
	tile := q.tiles.Get(storage.Identifier(s.Tile))
	if tile == nil {
		return -1
	}

	used := map[int]bool{}
	for _, st := range s.Structures {
		if st.Health <= 0 || st.Slot < 0 {
			continue
		}
		if spec := q.structures.Get(storage.Identifier(st.Type)); spec != nil && spec.IsExtractor() {
			used[st.Slot] = true
		}
	}

	for slot := 0; slot < tile.Slots; slot++ {
		if !used[slot] {
			return slot
		}
	}

	slog.WarnContext(ctx, "no free slot for finished extractor", "settlement", s.Id, "tile", s.Tile)
	return -1
}

// ProgressAt returns an entry's completion percentage at now, clamped to
// [0,100]. Entries that haven't started are at zero.
func ProgressAt(e *settlement.ConstructionQueueEntry, now time.Time) float64 {
	if e.StartedAt.IsZero() {
		return 0
	}

	total := e.CompletesAt.Sub(e.StartedAt)
	if total <= 0 {
		return 100
	}

	pct := float64(now.Sub(e.StartedAt)) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
