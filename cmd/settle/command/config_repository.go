package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-settle/internal/settlement"
)

// RepositoryConfig locates the settlement database. The file is created on
// first start; its directory must already exist.
type RepositoryConfig struct {
	Path string `json:"path"`
}

func (c *RepositoryConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("path is required"))
	} else if _, err := os.Stat(filepath.Dir(c.Path)); err != nil {
		el.Add(fmt.Errorf("invalid path %q: %w", c.Path, err))
	}

	return el.Err()
}

func (c *RepositoryConfig) BuildRepository() (*settlement.SqliteRepository, error) {
	return settlement.OpenSqlite(c.Path)
}
