// Package template defines the engine-agnostic file rendering contract that
// view services delegate to. Concrete engines live in subpackages (ejs,
// gotemplate) and satisfy FileRenderer.
package template
