package cli

import (
	"ovid/internal/fetch"
	"ovid/internal/manager"
	"ovid/internal/pipeline"
	"ovid/internal/registry"
)

func (a *app) pipelines() *pipeline.Dispatcher {
	var acc pipeline.Accelerator = pipeline.NvidiaSMI{}
	if a.cfg.RequireAccelerator != nil && !*a.cfg.RequireAccelerator {
		acc = pipeline.NoAcceleratorCheck
	}
	runner := &pipeline.WorkerRunner{
		Command: a.cfg.WorkerCommand,
		Logger:  a.log.With().Str("component", "worker").Logger(),
	}
	return pipeline.NewDispatcher(&pipeline.AnimateDiff{Accelerator: acc, Runner: runner})
}

func (a *app) manager() *manager.Manager {
	log := a.log.With().Str("component", "manager").Logger()
	return manager.New(manager.Config{
		Settings:      a.settings,
		Pipelines:     a.pipelines(),
		DefaultModel:  a.cfg.DefaultModel,
		MaxQueueDepth: a.cfg.MaxQueueDepth,
		MaxWait:       a.cfg.MaxWait(),
		Logger:        log,
		Publisher:     manager.LogPublisher{Logger: log},
	})
}

func (a *app) catalog() (registry.Catalog, error) {
	return registry.LoadCatalog(a.settings.RegistryPath, a.log)
}

func (a *app) fetcher(cat registry.Catalog) *fetch.Fetcher {
	return fetch.New(fetch.Config{
		ModelsDir:      a.settings.ModelsDir,
		Catalog:        cat,
		Client:         a.deps.HTTPClient,
		MaxAttempts:    a.cfg.PullMaxAttempts,
		AttemptTimeout: a.cfg.PullTimeout(),
		Logger:         a.log.With().Str("component", "fetch").Logger(),
	})
}
