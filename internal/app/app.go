// Package app wires configuration into the collaborators the binaries share.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/mediasync/internal/backup"
	"github.com/andresuchdata/mediasync/internal/cache"
	"github.com/andresuchdata/mediasync/internal/cdn"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/internal/repository"
	"github.com/andresuchdata/mediasync/internal/repository/postgres"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// Deps holds the optional collaborators built from Config. Nil fields are
// features the environment did not configure.
type Deps struct {
	Store       storage.ObjectStorage
	Invalidator cdn.Invalidator
	Locker      backup.Locker
	Runs        repository.RunRepository

	closers []func() error
}

// Options selects which collaborators Build should create.
type Options struct {
	Storage bool
	CDN     bool
	Lock    bool
	Runs    bool
}

// Build creates the collaborators asked for in opts. Anything created before
// a failure is closed again.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Deps, error) {
	deps := &Deps{}
	log := logger.Component("app")

	if opts.Storage {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		deps.Store = store
	}

	if opts.CDN && cfg.CDN.DistributionID != "" {
		inv, err := cdn.NewCloudFront(cdn.CloudFrontConfig{
			DistributionID: cfg.CDN.DistributionID,
			Region:         cfg.Storage.Region,
			AccessKey:      cfg.Storage.AccessKey,
			SecretKey:      cfg.Storage.SecretKey,
			SessionToken:   cfg.Storage.SessionToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cloudfront: %w", err)
		}
		deps.Invalidator = inv
	}

	if opts.Lock && cfg.Lock.Enabled {
		lock, err := cache.NewRunLock(ctx, cfg.Lock)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to initialize run lock: %w", err)
		}
		deps.Locker = lock
		deps.closers = append(deps.closers, lock.Close)
	}

	if opts.Runs && cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, db.Close)

		runs := postgres.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		deps.Runs = runs
		log.Debug().Msg("run history enabled")
	}

	return deps, nil
}

// Close releases every connection Build opened.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// BackupService builds a backup.Service with every configured collaborator attached.
func (d *Deps) BackupService(cfg *config.Config) *backup.Service {
	svc := backup.NewService(d.Store, cfg.Backup, cfg.Storage.Region).WithLocker(d.Locker)
	if d.Invalidator != nil {
		svc.WithInvalidator(d.Invalidator)
	}
	if d.Runs != nil {
		svc.WithRunRecorder(d.Runs)
	}
	return svc
}
