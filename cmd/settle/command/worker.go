package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-settle/internal/driver"
	"github.com/pixil98/go-settle/internal/events"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Load the static catalogs
	catalogs, err := cfg.Storage.BuildCatalogs()
	if err != nil {
		return nil, fmt.Errorf("loading catalogs: %w", err)
	}

	// Open the settlement repository
	repo, err := cfg.Repository.BuildRepository()
	if err != nil {
		return nil, fmt.Errorf("opening settlement repository: %w", err)
	}

	// Create the embedded nats server
	natsServer, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Assemble the engine
	eng, err := cfg.Engine.BuildEngine(repo, events.NewNatsPublisher(natsServer), catalogs)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	// Set up the tick driver
	driverOpts := []driver.TickDriverOpt{driver.WithRunOnce(natsServer, eng)}
	if cfg.Engine.TickLength != "" {
		d, err := time.ParseDuration(cfg.Engine.TickLength)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_length: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	tickDriver := driver.NewTickDriver([]driver.Manager{eng}, driverOpts...)

	// Create a worker list
	return service.WorkerList{
		"nats":   natsServer,
		"driver": tickDriver,
	}, nil
}
