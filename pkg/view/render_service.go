package view

import (
	"context"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/sprig/v3"

	"github.com/goliatone/go-views/pkg/render/template"
	"github.com/goliatone/go-views/pkg/render/template/ejs"
	"github.com/goliatone/go-views/pkg/render/template/gotemplate"
)

// FileRenderService maps a view name to a file under the resources directory
// and renders it with a template.FileRenderer.
type FileRenderService struct {
	config    Config
	extension string
	engine    template.FileRenderer
}

var _ RenderService = (*FileRenderService)(nil)

// NewFileRenderService binds engine to cfg. Views lacking extension get it
// appended before resolution.
func NewFileRenderService(cfg Config, extension string, engine template.FileRenderer) *FileRenderService {
	return &FileRenderService{
		config:    cfg,
		extension: extension,
		engine:    engine,
	}
}

// NewEJSRenderService renders .ejs views.
func NewEJSRenderService(cfg Config, options ...ejs.Option) *FileRenderService {
	return NewFileRenderService(cfg, ejs.Extension, ejs.New(options...))
}

// NewPongoRenderService renders Django-syntax .tpl views. Sprig's text
// helpers are available under the "sprig" global, e.g. {{ sprig.upper(name) }}.
func NewPongoRenderService(cfg Config, options ...gotemplate.Option) *FileRenderService {
	return NewFileRenderService(cfg, gotemplate.DefaultExtension, &pongoEngine{dir: cfg.ResourcesDir, options: options})
}

// Extension returns the extension appended to bare view names.
func (s *FileRenderService) Extension() string {
	return s.extension
}

// Resolve returns the file path a view name maps to.
func (s *FileRenderService) Resolve(view string) string {
	if !strings.HasSuffix(view, s.extension) {
		view += s.extension
	}
	return filepath.Join(s.config.ResourcesDir, view)
}

// Render resolves req.View and renders it. Errors from the engine, including
// missing files, are returned as-is.
func (s *FileRenderService) Render(ctx context.Context, req Request) (string, error) {
	data := make(map[string]any, len(req.Data))
	maps.Copy(data, req.Data)
	return s.engine.RenderFile(ctx, s.Resolve(req.View), data)
}

// pongoEngine defers building the pongo2 set until the first render, since
// construction stats the resources directory and can fail.
type pongoEngine struct {
	dir     string
	options []gotemplate.Option

	once   sync.Once
	engine *gotemplate.Engine
	err    error
}

func (p *pongoEngine) RenderFile(ctx context.Context, path string, data map[string]any) (string, error) {
	p.once.Do(func() {
		dir := p.dir
		if dir == "" {
			dir = "."
		}
		options := append([]gotemplate.Option{
			gotemplate.WithBaseDir(dir),
			gotemplate.WithGlobalData(map[string]any{
				"sprig": map[string]any(sprig.TxtFuncMap()),
			}),
		}, p.options...)
		p.engine, p.err = gotemplate.New(options...)
	})
	if p.err != nil {
		return "", p.err
	}
	return p.engine.RenderFile(ctx, path, data)
}
