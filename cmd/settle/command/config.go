package command

import (
	"github.com/pixil98/go-errors"
)

type Config struct {
	Storage    StorageConfig    `json:"storage"`
	Repository RepositoryConfig `json:"repository"`
	Nats       NatsConfig       `json:"nats"`
	Engine     EngineConfig     `json:"engine"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Storage.Validate())
	el.Add(c.Repository.Validate())
	el.Add(c.Nats.Validate())
	el.Add(c.Engine.Validate())

	return el.Err()
}
