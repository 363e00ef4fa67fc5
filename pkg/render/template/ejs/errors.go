package ejs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnterminatedTag is returned when an opening <% has no closing %>.
	ErrUnterminatedTag = errors.New("ejs: unterminated tag")
	// ErrUnsupportedTag is returned for scriptlet tags (<% %>, <%_ %>), which
	// would require evaluating JavaScript.
	ErrUnsupportedTag = errors.New("ejs: unsupported tag")
	// ErrSyntax is returned for expressions outside the supported subset.
	ErrSyntax = errors.New("ejs: invalid expression")
	// ErrIncludeDepth is returned when includes nest deeper than 32 levels.
	ErrIncludeDepth = errors.New("ejs: include depth exceeded")
)

// TemplateError locates a template failure. It unwraps to one of the
// sentinel errors above.
type TemplateError struct {
	Path string
	Tag  string
	Err  error
}

func (e *TemplateError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if tag := strings.TrimSpace(e.Tag); tag != "" {
		fmt.Fprintf(&b, " (tag %q)", tag)
	}
	return b.String()
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
