package gotemplate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-views/pkg/render/template"
)

// DefaultExtension is the extension of pongo2 view files.
const DefaultExtension = ".tpl"

// FilterFunc is a pongo2 filter expressed over plain Go values.
type FilterFunc func(input any, param any) (any, error)

// pongo2 keeps filters in one process-wide map that it reads while parsing
// templates. Writes take registryMu exclusively, parsing takes it shared.
var (
	registryMu     sync.RWMutex
	defaultFilters sync.Once
)

// Option configures the pongo2 adapter before construction.
type Option func(*config)

type config struct {
	baseDir    string
	globalData map[string]any
	filters    map[string]FilterFunc
}

// WithBaseDir sets the directory the template set loads from. Includes and
// extends inside templates resolve against it.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithGlobalData seeds values visible to every template. Render data with the
// same key wins.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			if key = strings.TrimSpace(key); key != "" {
				cfg.globalData[key] = value
			}
		}
	}
}

// WithFilter registers a filter when the engine is built. Filters are
// process-wide in pongo2: the first registration of a name wins and later
// ones are ignored.
func WithFilter(name string, fn FilterFunc) Option {
	return func(cfg *config) {
		name = strings.TrimSpace(name)
		if name == "" || fn == nil {
			return
		}
		if cfg.filters == nil {
			cfg.filters = make(map[string]FilterFunc)
		}
		cfg.filters[name] = fn
	}
}

// Engine renders Django-syntax templates through a pongo2 template set.
// Compiled templates are cached for the lifetime of the Engine.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

var _ template.FileRenderer = (*Engine)(nil)

// New builds an Engine. The base directory must exist.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.baseDir == "" {
		return nil, errors.New("gotemplate: base dir is required")
	}
	loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: create local loader: %w", err)
	}

	defaultFilters.Do(func() {
		registerFilter("trim", filterTrim)
		registerFilter("lowerfirst", filterLowerFirst)
	})
	for name, fn := range cfg.filters {
		registerFilter(name, adaptFilter(fn))
	}

	set := pongo2.NewSet("views", loader)
	set.Globals = pongo2.Context(cfg.globalData)
	if set.Globals == nil {
		set.Globals = pongo2.Context{}
	}

	return &Engine{
		set:       set,
		templates: make(map[string]*pongo2.Template),
	}, nil
}

// RenderFile renders the template at path. Relative paths resolve against
// the working directory, not the base dir, so callers can pass paths they
// already joined themselves.
func (e *Engine) RenderFile(ctx context.Context, path string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("gotemplate: resolve %q: %w", path, err)
	}
	// pongo2 errors do not unwrap, so check existence first.
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("gotemplate: load template %q: %w", path, err)
	}

	tmpl, err := e.template(abs)
	if err != nil {
		return "", err
	}

	ctxData := make(pongo2.Context, len(data))
	for key, value := range data {
		ctxData[key] = value
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctxData, &buf); err != nil {
		return "", fmt.Errorf("gotemplate: execute template %q: %w", path, err)
	}
	return buf.String(), nil
}

func (e *Engine) template(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.templates[path]; ok {
		return tmpl, nil
	}

	registryMu.RLock()
	tmpl, err := e.set.FromFile(path)
	registryMu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load template %q: %w", path, err)
	}

	e.templates[path] = tmpl
	return tmpl, nil
}

func registerFilter(name string, fn pongo2.FilterFunction) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if pongo2.FilterExists(name) {
		return
	}
	_ = pongo2.RegisterFilter(name, fn)
}

func adaptFilter(fn FilterFunc) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsNil() {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterLowerFirst lowercases the first non-blank rune.
func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.IsNil() {
		return pongo2.AsValue(""), nil
	}
	s := in.String()
	trimmed := strings.TrimLeft(s, " \t\r\n")
	r, size := utf8.DecodeRuneInString(trimmed)
	if size == 0 {
		return pongo2.AsValue(s), nil
	}
	lead := len(s) - len(trimmed)
	return pongo2.AsValue(s[:lead] + strings.ToLower(string(r)) + trimmed[size:]), nil
}
