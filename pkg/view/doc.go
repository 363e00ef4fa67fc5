// Package view renders named templates stored under a resources directory.
//
// Service is the entry point: Render delegates to the EJS engine, and EJS,
// Pongo and Engine hand out engine-specific RenderServices. A RenderService
// normalises the view name (appending its engine's extension), joins it onto
// Config.ResourcesDir and passes a shallow copy of the request data to the
// engine. Engine errors are returned unchanged.
//
// View names are trusted input: they are joined onto the resources directory
// without any path-traversal checks, so "../" segments can escape it. Callers
// exposing view names to untrusted input must validate them first.
package view
