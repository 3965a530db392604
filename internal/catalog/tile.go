package catalog

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/settlement"
)

// TileSpec is the world-generation collaborator's contribution for one
// tile: its biome, per-resource quality scores, and extractor slots.
type TileSpec struct {
	Biome   string                      `json:"biome"`
	Quality map[settlement.Resource]int `json:"quality,omitempty"`
	Slots   int                         `json:"slots"`
}

func (t *TileSpec) Validate() error {
	el := errors.NewErrorList()

	if t.Biome == "" {
		el.Add(fmt.Errorf("biome must be set"))
	}
	if t.Slots < 0 {
		el.Add(fmt.Errorf("slots must not be negative"))
	}

	for r, q := range t.Quality {
		if !r.IsValid() {
			el.Add(fmt.Errorf("quality: unknown resource %q", r))
		}
		if q < 0 || q > 100 {
			el.Add(fmt.Errorf("quality: %s score %d out of range [0,100]", r, q))
		}
	}

	return el.Err()
}

// QualityFor returns the tile's quality score for a resource. Resources
// the tile doesn't carry score zero.
func (t *TileSpec) QualityFor(r settlement.Resource) int {
	return t.Quality[r]
}
