package view

import (
	"context"

	"github.com/goliatone/go-views/pkg/render/template/ejs"
	"github.com/goliatone/go-views/pkg/render/template/gotemplate"
)

// Built-in engine names.
const (
	EngineEJS   = "ejs"
	EnginePongo = "pongo2"
)

// Option customises a Service at construction time.
type Option func(*Service)

// WithEngine registers an additional engine, replacing a built-in one with the
// same name. EJS() and Render keep using the EJS engine regardless. An empty
// name or nil factory leaves the registry untouched.
func WithEngine(name string, factory EngineFactory) Option {
	return func(s *Service) {
		_ = s.registry.Replace(name, factory)
	}
}

// WithEJSOptions configures every EJS engine the service creates.
func WithEJSOptions(options ...ejs.Option) Option {
	return func(s *Service) {
		s.ejsOptions = append(s.ejsOptions, options...)
	}
}

// WithPongoOptions configures every pongo2 engine the service creates, e.g.
// gotemplate.WithFilter or extra globals.
func WithPongoOptions(options ...gotemplate.Option) Option {
	return func(s *Service) {
		s.pongoOptions = append(s.pongoOptions, options...)
	}
}

// Service is the default ViewService. It is stateless apart from its
// configuration; every engine accessor returns a fresh RenderService.
type Service struct {
	config       Config
	registry     *Registry
	ejsOptions   []ejs.Option
	pongoOptions []gotemplate.Option
}

var _ ViewService = (*Service)(nil)

// NewService builds a Service rooted at cfg.ResourcesDir.
func NewService(cfg Config, options ...Option) *Service {
	s := &Service{
		config:   cfg,
		registry: NewRegistry(),
	}
	s.registry.MustRegister(EngineEJS, func(cfg Config) RenderService {
		return NewEJSRenderService(cfg, s.ejsOptions...)
	})
	s.registry.MustRegister(EnginePongo, func(cfg Config) RenderService {
		return NewPongoRenderService(cfg, s.pongoOptions...)
	})

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Render renders req with the EJS engine.
func (s *Service) Render(ctx context.Context, req Request) (string, error) {
	return s.EJS().Render(ctx, req)
}

// EJS returns a new EJS render service.
func (s *Service) EJS() RenderService {
	return NewEJSRenderService(s.config, s.ejsOptions...)
}

// Pongo returns a new pongo2 render service.
func (s *Service) Pongo() RenderService {
	return NewPongoRenderService(s.config, s.pongoOptions...)
}

// Engine returns a new render service for a registered engine name. Unknown
// names yield an error wrapping ErrEngineNotFound.
func (s *Service) Engine(name string) (RenderService, error) {
	factory, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return factory(s.config), nil
}

// Engines lists registered engine names in sorted order.
func (s *Service) Engines() []string {
	return s.registry.List()
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.config
}
