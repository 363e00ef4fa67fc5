// Package views is the convenience entry point for rendering templates from a
// resources directory. See pkg/view for the service and engine contracts.
package views

import (
	"github.com/goliatone/go-views/pkg/view"
)

// New builds a view service rooted at resourcesDir.
func New(resourcesDir string, options ...view.Option) *view.Service {
	return view.NewService(view.Config{ResourcesDir: resourcesDir}, options...)
}

// NewFromConfig builds a view service from cfg.
func NewFromConfig(cfg view.Config, options ...view.Option) *view.Service {
	return view.NewService(cfg, options...)
}
