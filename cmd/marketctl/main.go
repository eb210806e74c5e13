package main

import (
	"context"
	"errors"
	"os"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/internal/platform/config"
	"bazaar/internal/platform/db"
	"bazaar/internal/platform/logging"
)

// marketctl is the operator CLI for a postgres-backed listing engine.
func main() {
	root := newRootCmd(openPostgresSession)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openPostgresSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return nil, errors.New("marketctl requires STORE_BACKEND=postgres")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName).With("process", "marketctl")

	pg, err := db.Connect(cfg.PostgresDSN, db.Pool{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, err
	}
	module, repo := listingengine.NewPostgresModule(pg.DB, entities.AccountID(cfg.AdminAccount), nil, logger)
	return &session{
		engine:       module.Engine,
		provisioning: module.Provisioning,
		migrate:      repo.Migrate,
		close:        pg.Close,
	}, nil
}
