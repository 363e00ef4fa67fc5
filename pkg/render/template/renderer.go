package template

import (
	"context"
)

// FileRenderer renders the template stored at path using data as the render
// context. Implementations return engine errors as-is (wrapped with %w at most)
// so callers can inspect them with errors.Is / errors.As.
type FileRenderer interface {
	RenderFile(ctx context.Context, path string, data map[string]any) (string, error)
}

// FileRendererFunc adapts a plain function to the FileRenderer contract.
type FileRendererFunc func(ctx context.Context, path string, data map[string]any) (string, error)

// RenderFile calls f(ctx, path, data).
func (f FileRendererFunc) RenderFile(ctx context.Context, path string, data map[string]any) (string, error) {
	return f(ctx, path, data)
}
