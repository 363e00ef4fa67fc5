package view

import (
	"context"
)

// Request names the view to render and the data made available to it.
type Request struct {
	// View is relative to the resources directory, with or without the
	// engine extension.
	View string
	Data map[string]any
}

// Config is fixed at construction and shared by every RenderService built
// from it.
type Config struct {
	ResourcesDir string `json:"resources_dir" yaml:"resources_dir"`
}

// RenderService renders a single request with one template engine.
type RenderService interface {
	Render(ctx context.Context, req Request) (string, error)
}

// ViewService renders with the default engine and exposes engine-specific
// render services.
type ViewService interface {
	RenderService
	EJS() RenderService
}

// EngineFactory builds a RenderService bound to cfg. Factories are called on
// every lookup, so they should be cheap.
type EngineFactory func(cfg Config) RenderService
