package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/skillet-ai/skillet/pkg/db"
	"github.com/skillet-ai/skillet/pkg/engine"
	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/runlog"
	"github.com/skillet-ai/skillet/pkg/skills"
	"github.com/skillet-ai/skillet/pkg/tools"
	"github.com/skillet-ai/skillet/pkg/tools/builtin"
)

// loadCatalog builds the skill catalog from configured directories plus
// the defaults (./.skillet/skills, then ~/.skillet/skills).
func loadCatalog() (*skills.Catalog, error) {
	opts := []skills.CatalogOption{}
	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		opts = append(opts, skills.WithDirs(dirs...))
	}
	opts = append(opts, skills.WithDefaultDirs())
	return skills.NewCatalog(opts...)
}

// buildRegistry creates the tool registry with all builtin tools, honoring
// the tools.allow configuration.
func buildRegistry() (*tools.InMemoryRegistry, error) {
	var opts []tools.RegistryOption
	if patterns := viper.GetStringSlice("tools.allow"); len(patterns) > 0 {
		opts = append(opts, tools.WithAllowList(patterns...))
	}
	registry, err := tools.NewRegistry(opts...)
	if err != nil {
		return nil, err
	}
	if err := builtin.RegisterAll(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

// openRunLog opens the SQLite run log unless disabled. A nil store with a
// nil error means the run log is off.
func openRunLog(ctx context.Context) (*runlog.Store, error) {
	if viper.GetBool("runlog.disabled") {
		return nil, nil
	}
	dbPath := viper.GetString("runlog.path")
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return runlog.Open(ctx, dbPath)
}

// buildEngine assembles the full stack: catalog, registry, run log, engine.
// The returned cleanup closes the run log.
func buildEngine(ctx context.Context) (*engine.Engine, *skills.Catalog, *runlog.Store, func(), error) {
	catalog, err := loadCatalog()
	if err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, "failed to load skill catalog")
	}
	registry, err := buildRegistry()
	if err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, "failed to build tool registry")
	}

	store, err := openRunLog(ctx)
	if err != nil {
		// The run log is best-effort; a broken database should not block
		// skill execution.
		logger.G(ctx).WithError(err).Warn("failed to open run log, continuing without it")
		store = nil
	}

	opts := []engine.Option{}
	if timeout := viper.GetDuration("step_timeout"); timeout > 0 {
		opts = append(opts, engine.WithDefaultTimeout(timeout))
	} else {
		opts = append(opts, engine.WithDefaultTimeout(60*time.Second))
	}
	if store != nil {
		opts = append(opts, engine.WithRecorder(store))
	}

	eng := engine.New(catalog, registry, opts...)
	cleanup := func() {
		if store != nil {
			store.Close()
		}
	}
	return eng, catalog, store, cleanup, nil
}
