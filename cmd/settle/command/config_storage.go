package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/catalog"
	"github.com/pixil98/go-settle/internal/storage"
)

// StorageConfig locates the static catalog assets the simulation reads.
type StorageConfig struct {
	Structures AssetConfig[*catalog.StructureSpec] `json:"structures"`
	Biomes     AssetConfig[*catalog.BiomeSpec]     `json:"biomes"`
	Tiles      AssetConfig[*catalog.TileSpec]      `json:"tiles"`
	Disasters  AssetConfig[*catalog.DisasterSpec]  `json:"disasters"`
}

// Catalogs bundles the loaded read-only stores the calculators share.
type Catalogs struct {
	Structures *storage.FileStore[*catalog.StructureSpec]
	Biomes     *storage.FileStore[*catalog.BiomeSpec]
	Tiles      *storage.FileStore[*catalog.TileSpec]
	Disasters  *storage.FileStore[*catalog.DisasterSpec]
}

func (c *StorageConfig) BuildCatalogs() (*Catalogs, error) {
	structures, err := c.Structures.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating structure store: %w", err)
	}
	biomes, err := c.Biomes.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating biome store: %w", err)
	}
	tiles, err := c.Tiles.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating tile store: %w", err)
	}
	disasters, err := c.Disasters.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating disaster store: %w", err)
	}

	return &Catalogs{
		Structures: structures,
		Biomes:     biomes,
		Tiles:      tiles,
		Disasters:  disasters,
	}, nil
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Structures.Validate("structures"))
	el.Add(c.Biomes.Validate("biomes"))
	el.Add(c.Tiles.Validate("tiles"))
	el.Add(c.Disasters.Validate("disasters"))
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
