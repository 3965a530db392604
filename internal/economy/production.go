package economy

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-settle/internal/storage"
)

// ProductionCalculator turns a settlement's extractor structures into a
// resource delta for one production phase.
type ProductionCalculator struct {
	structures storage.Storer[*catalog.StructureSpec]
	tiles      storage.Storer[*catalog.TileSpec]
	biomes     storage.Storer[*catalog.BiomeSpec]
}

func NewProductionCalculator(structures storage.Storer[*catalog.StructureSpec], tiles storage.Storer[*catalog.TileSpec], biomes storage.Storer[*catalog.BiomeSpec]) *ProductionCalculator {
	return &ProductionCalculator{
		structures: structures,
		tiles:      tiles,
		biomes:     biomes,
	}
}

// Calculate returns what s produces this phase. Missing catalog lookups
// contribute zero and are logged; they never fail the phase, so one
// malformed extractor can't zero out a whole settlement.
func (c *ProductionCalculator) Calculate(ctx context.Context, s *settlement.Settlement) settlement.ResourceDelta {
	delta := settlement.ResourceDelta{}

	tile := c.tiles.Get(storage.Identifier(s.Tile))
	if tile == nil {
		slog.WarnContext(ctx, "tile not found, producing nothing", "settlement", s.Id, "tile", s.Tile)
		return delta
	}

	biome := c.biomes.Get(storage.Identifier(tile.Biome))
	if biome == nil {
		slog.WarnContext(ctx, "biome not found, producing nothing", "settlement", s.Id, "biome", tile.Biome)
		return delta
	}

	for _, st := range s.Structures {
		if st.Health <= 0 {
			continue
		}

		spec := c.structures.Get(storage.Identifier(st.Type))
		if spec == nil {
			slog.WarnContext(ctx, "unknown structure type, skipping", "settlement", s.Id, "type", st.Type)
			continue
		}
		if !spec.IsExtractor() {
			continue
		}

		level := spec.LevelFactor(st.Level)
		for r, base := range spec.BaseProduction {
			quality := float64(tile.QualityFor(r)) / 100
			delta[r] += base * quality * level * biome.EfficiencyFor(r)
		}
	}

	return delta
}
