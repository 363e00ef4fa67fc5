package ejs

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/valyala/fasttemplate"

	"github.com/goliatone/go-views/pkg/render/template"
)

// Extension is appended to view and include names that lack it.
const Extension = ".ejs"

const (
	startTag     = "<%"
	endTag       = "%>"
	literalTag   = "<%%"
	literalClose = "%%>"

	maxIncludeDepth = 32
)

// Option configures an Engine.
type Option func(*Engine)

// WithSanitizer runs raw (<%- %>) output through policy before it is written.
// Escaped output and included templates are not affected.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(e *Engine) {
		e.sanitizer = policy
	}
}

// WithUGCSanitizer is WithSanitizer(bluemonday.UGCPolicy()).
func WithUGCSanitizer() Option {
	return WithSanitizer(bluemonday.UGCPolicy())
}

// Engine renders EJS templates from disk. It holds no per-render state and is
// safe for concurrent use.
type Engine struct {
	sanitizer *bluemonday.Policy
}

var _ template.FileRenderer = (*Engine)(nil)

// New returns an Engine configured with options.
func New(options ...Option) *Engine {
	e := &Engine{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// RenderFile reads the template at path and renders it with data as locals.
// Read failures wrap the underlying os error.
func (e *Engine) RenderFile(ctx context.Context, path string, data map[string]any) (string, error) {
	if e == nil {
		return "", errors.New("ejs: engine is nil")
	}
	r := &run{ctx: ctx, engine: e, locals: data}
	return r.renderFile(path, 0)
}

// RenderString renders src directly. Includes resolve against the working
// directory.
func (e *Engine) RenderString(ctx context.Context, src string, data map[string]any) (string, error) {
	if e == nil {
		return "", errors.New("ejs: engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r := &run{ctx: ctx, engine: e, locals: data}
	return r.render(src, "", 0)
}

// run carries the state of a single render call, includes included.
type run struct {
	ctx    context.Context
	engine *Engine
	locals map[string]any
}

func (r *run) renderFile(path string, depth int) (string, error) {
	if err := r.ctx.Err(); err != nil {
		return "", err
	}
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}

	src, err := os.ReadFile(path) //nolint:gosec // path is resolved by the caller
	if err != nil {
		return "", fmt.Errorf("ejs: read template %q: %w", path, err)
	}
	return r.render(string(src), path, depth)
}

func (r *run) render(src, path string, depth int) (string, error) {
	if err := checkTags(src); err != nil {
		return "", &TemplateError{Path: path, Err: err}
	}

	src = trimNewlines(src)

	var out strings.Builder
	for i, segment := range strings.Split(src, literalTag) {
		if i > 0 {
			out.WriteString(startTag)
		}
		// "%%>" becomes the internal tag "<%%%>", which writes a literal "%>".
		segment = strings.ReplaceAll(segment, literalClose, startTag+literalClose)
		_, err := fasttemplate.ExecuteFunc(segment, startTag, endTag, &out, func(w io.Writer, tag string) (int, error) {
			return r.execTag(w, tag, path, depth)
		})
		if err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

func (r *run) execTag(w io.Writer, tag, path string, depth int) (int, error) {
	if tag == "" {
		return 0, &TemplateError{Path: path, Tag: tag, Err: ErrUnsupportedTag}
	}

	body := trimControl(tag[1:])
	switch tag[0] {
	case '%':
		return io.WriteString(w, endTag)
	case '#':
		return 0, nil
	case '=':
		value, err := evaluate(body, r.locals)
		if err != nil {
			return 0, &TemplateError{Path: path, Tag: tag, Err: err}
		}
		return io.WriteString(w, html.EscapeString(stringify(value)))
	case '-':
		name, isInclude, err := parseInclude(body)
		if err != nil {
			return 0, &TemplateError{Path: path, Tag: tag, Err: err}
		}
		if isInclude {
			out, err := r.renderFile(includePath(path, name), depth+1)
			if err != nil {
				return 0, err
			}
			return io.WriteString(w, out)
		}

		value, err := evaluate(body, r.locals)
		if err != nil {
			return 0, &TemplateError{Path: path, Tag: tag, Err: err}
		}
		raw := stringify(value)
		if r.engine.sanitizer != nil {
			raw = r.engine.sanitizer.Sanitize(raw)
		}
		return io.WriteString(w, raw)
	default:
		return 0, &TemplateError{Path: path, Tag: tag, Err: ErrUnsupportedTag}
	}
}

// includePath resolves name relative to the directory of the including file.
// Names without any extension get Extension.
func includePath(from, name string) string {
	if filepath.Ext(name) == "" {
		name += Extension
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(from), name)
}

// trimNewlines removes the line break that follows a "-%>" close tag.
func trimNewlines(src string) string {
	if !strings.Contains(src, "-"+endTag) {
		return src
	}
	src = strings.ReplaceAll(src, "-"+endTag+"\r\n", "-"+endTag)
	return strings.ReplaceAll(src, "-"+endTag+"\n", "-"+endTag)
}

// trimControl drops surrounding whitespace and the -%> / _%> trim markers.
func trimControl(body string) string {
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "-")
	body = strings.TrimSuffix(body, "_")
	return strings.TrimSpace(body)
}

// checkTags reports the first opening tag without a matching close.
func checkTags(src string) error {
	offset := 0
	for i, segment := range strings.Split(src, literalTag) {
		if i > 0 {
			offset += len(literalTag)
		}
		rest := segment
		pos := 0
		for {
			open := strings.Index(rest, startTag)
			if open < 0 {
				break
			}
			closing := strings.Index(rest[open+len(startTag):], endTag)
			if closing < 0 {
				line := strings.Count(src[:offset+pos+open], "\n") + 1
				return fmt.Errorf("%w at line %d", ErrUnterminatedTag, line)
			}
			advance := open + len(startTag) + closing + len(endTag)
			rest = rest[advance:]
			pos += advance
		}
		offset += len(segment)
	}
	return nil
}
