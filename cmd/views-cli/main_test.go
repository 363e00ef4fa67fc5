package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-views/pkg/testsupport"
)

func newResources(t *testing.T) string {
	t.Helper()
	return testsupport.WriteTree(t, map[string]string{
		"views/hello.ejs": `<h1><%= title || "Untitled" %></h1><p><%= user.name %></p>`,
		"views/hello.tpl": `<h1>{{ title }}</h1>`,
		"views.yaml":      "resources_dir: unused\nlog_level: error\n",
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"views-cli"}, args...))
	return out.String(), err
}

func TestRenderCommand_InlineData(t *testing.T) {
	root := newResources(t)

	out, err := run(t,
		"--config", filepath.Join(root, "views.yaml"),
		"render",
		"--resources", root,
		"--data", `{"title":"Hi","user":{"name":"Ada"}}`,
		"views/hello",
	)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1><p>Ada</p>", out)
}

func TestRenderCommand_DataFileAndInlineOverride(t *testing.T) {
	root := newResources(t)
	dataFile := filepath.Join(root, "data.yaml")
	require.NoError(t, os.WriteFile(dataFile, []byte("title: From file\nuser:\n  name: Grace\n"), 0o644))

	out, err := run(t,
		"--config", filepath.Join(root, "views.yaml"),
		"render",
		"--resources", root,
		"--data-file", dataFile,
		"--data", `{"title":"Inline"}`,
		"views/hello.ejs",
	)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Inline</h1><p>Grace</p>", out)
}

func TestRenderCommand_PongoEngineAndOutputFile(t *testing.T) {
	root := newResources(t)
	target := filepath.Join(t.TempDir(), "out.html")

	out, err := run(t,
		"--config", filepath.Join(root, "views.yaml"),
		"render",
		"--resources", root,
		"--engine", "pongo2",
		"--data", `{"title":"Pongo"}`,
		"--output", target,
		"views/hello",
	)
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Pongo</h1>", string(written))
}

func TestRenderCommand_Errors(t *testing.T) {
	root := newResources(t)
	cfg := filepath.Join(root, "views.yaml")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing view argument", args: []string{"render", "--resources", root}, want: "view name is required"},
		{name: "missing view file", args: []string{"render", "--resources", root, "views/nope"}, want: "no such file"},
		{name: "bad json", args: []string{"render", "--resources", root, "--data", "{", "views/hello"}, want: "parse --data"},
		{name: "unknown engine", args: []string{"render", "--resources", root, "--engine", "mustache", "views/hello"}, want: "mustache"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", cfg}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEnginesCommand(t *testing.T) {
	root := newResources(t)

	out, err := run(t, "--config", filepath.Join(root, "views.yaml"), "engines")
	require.NoError(t, err)
	assert.Equal(t, []string{"ejs", "pongo2"}, strings.Fields(out))
}

func TestSetup_MissingExplicitConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "engines")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestLoadData_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"json"}`), 0o644))

	data, err := loadData("", path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "json"}, data)
}
