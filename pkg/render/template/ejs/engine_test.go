package ejs_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-views/pkg/render/template/ejs"
	"github.com/goliatone/go-views/pkg/testsupport"
)

func renderFile(t *testing.T, files map[string]string, name string, data map[string]any, options ...ejs.Option) (string, error) {
	t.Helper()
	root := testsupport.WriteTree(t, files)
	return ejs.New(options...).RenderFile(testsupport.Context(), filepath.Join(root, name), data)
}

func TestEngine_EscapedOutput(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `<p><%= message %></p>`,
	}, "page.ejs", map[string]any{"message": `<b>"Tom" & 'Jerry'</b>`})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := `<p>&lt;b&gt;&#34;Tom&#34; &amp; &#39;Jerry&#39;&lt;/b&gt;</p>`
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("escaped output mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_RawOutput(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `<div><%- body %></div>`,
	}, "page.ejs", map[string]any{"body": `<em>hi</em>`})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != `<div><em>hi</em></div>` {
		t.Fatalf("unexpected raw output %q", got)
	}
}

func TestEngine_RawOutputSanitized(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `<div><%- body %></div>`,
	}, "page.ejs", map[string]any{"body": `<em>hi</em><script>alert(1)</script>`}, ejs.WithUGCSanitizer())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Fatalf("expected script to be stripped, got %q", got)
	}
	if !strings.Contains(got, "<em>hi</em>") {
		t.Fatalf("expected safe markup to survive, got %q", got)
	}
}

func TestEngine_MissingKeysRenderEmpty(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `Request ID: <%= requestId %>|<%- user.name %>|<%= locals.title %>`,
	}, "page.ejs", map[string]any{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Request ID: ||" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_NilDataRendersEmpty(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `[<%= anything %>]`,
	}, "page.ejs", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[]" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_DottedPathsAndStructs(t *testing.T) {
	type author struct {
		Name string
	}

	got, err := renderFile(t, map[string]string{
		"page.ejs": `<%= post.title %> by <%= post.author.Name %> (<%= counts.views %>)`,
	}, "page.ejs", map[string]any{
		"post": map[string]any{
			"title":  "Hello",
			"author": &author{Name: "Ada"},
		},
		"counts": map[string]int{"views": 42},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello by Ada (42)" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{name: "first operand", data: map[string]any{"title": "Docs"}, want: "Docs"},
		{name: "empty falls through", data: map[string]any{"title": "", "name": "Guide"}, want: "Guide"},
		{name: "literal default", data: map[string]any{}, want: "Home || Away"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := renderFile(t, map[string]string{
				"page.ejs": `<%= title || name || "Home || Away" %>`,
			}, "page.ejs", tc.data)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEngine_CommentsAndLiteralTags(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `a<%# ignored %>b <%%= raw %> <%= n -%>`,
	}, "page.ejs", map[string]any{"n": 3})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "ab <%= raw %> 3" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_ValuesAreNotRescanned(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs": `<%- snippet %>`,
	}, "page.ejs", map[string]any{"snippet": "<%= secret %>", "secret": "leaked"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<%= secret %>" {
		t.Fatalf("expected inserted value verbatim, got %q", got)
	}
}

func TestEngine_Include(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"views/welcome.ejs":  `<%- include('../layouts/header') %><h1><%= title %></h1><%- include("../layouts/footer.ejs") %>`,
		"layouts/header.ejs": `<!DOCTYPE html><html><head><title><%= title %></title></head><body>`,
		"layouts/footer.ejs": `</body></html>`,
	}, "views/welcome.ejs", map[string]any{"title": "Hi & bye"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := `<!DOCTYPE html><html><head><title>Hi &amp; bye</title></head><body><h1>Hi &amp; bye</h1></body></html>`
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("include output mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_IncludeDepth(t *testing.T) {
	_, err := renderFile(t, map[string]string{
		"loop.ejs": `x<%- include('loop') %>`,
	}, "loop.ejs", nil)
	if !errors.Is(err, ejs.ErrIncludeDepth) {
		t.Fatalf("expected ErrIncludeDepth, got %v", err)
	}
}

func TestEngine_MissingFile(t *testing.T) {
	_, err := renderFile(t, map[string]string{}, "missing.ejs", nil)
	if err == nil {
		t.Fatal("expected error for missing template")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestEngine_MissingInclude(t *testing.T) {
	_, err := renderFile(t, map[string]string{
		"page.ejs": `<%- include('nope') %>`,
	}, "page.ejs", nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestEngine_TemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{name: "scriptlet", src: `<% if (user) { %>x<% } %>`, want: ejs.ErrUnsupportedTag},
		{name: "whitespace slurping scriptlet", src: `<%_ x _%>`, want: ejs.ErrUnsupportedTag},
		{name: "unterminated", src: "line1\n<%= title", want: ejs.ErrUnterminatedTag},
		{name: "call expression", src: `<%= title.toUpperCase() %>`, want: ejs.ErrSyntax},
		{name: "empty expression", src: `<%= %>`, want: ejs.ErrSyntax},
		{name: "unterminated string", src: `<%= "abc %>`, want: ejs.ErrSyntax},
		{name: "include with locals", src: `<%- include('a', {x: 1}) %>`, want: ejs.ErrSyntax},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := renderFile(t, map[string]string{"page.ejs": tc.src}, "page.ejs", map[string]any{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}

			var tplErr *ejs.TemplateError
			if !errors.As(err, &tplErr) {
				t.Fatalf("expected *ejs.TemplateError, got %T", err)
			}
			if !strings.HasSuffix(tplErr.Path, "page.ejs") {
				t.Fatalf("expected error to carry the template path, got %q", tplErr.Path)
			}
		})
	}
}

func TestEngine_UnterminatedTagReportsLine(t *testing.T) {
	_, err := ejs.New().RenderString(testsupport.Context(), "a\nb\n<%= c", nil)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 in error, got %v", err)
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := testsupport.WriteTree(t, map[string]string{"page.ejs": "x"})
	_, err := ejs.New().RenderFile(ctx, filepath.Join(root, "page.ejs"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_RenderString(t *testing.T) {
	got, err := ejs.New().RenderString(testsupport.Context(), `Hello, <%= name || 'stranger' %>!`, map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "Hello, Ada!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_NumericLiterals(t *testing.T) {
	got, err := ejs.New().RenderString(testsupport.Context(), `[<%= 0 || "x" %>][<%= 1.50 %>][<%= count %>]`, map[string]any{"count": 1e6})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[x][1.5][1000000]" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_IncludeKeepsExplicitExtension(t *testing.T) {
	got, err := renderFile(t, map[string]string{
		"page.ejs":        `<%- include('partials/p.html') %>|<%- include('partials/q') %>`,
		"partials/p.html": `<b><%= name %></b>`,
		"partials/q.ejs":  `q`,
	}, "page.ejs", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<b>Ada</b>|q" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_TrimMarkersAndLiteralClose(t *testing.T) {
	got, err := ejs.New().RenderString(testsupport.Context(), "a<%= x -%>\nb<%= x -%>\r\nc\n<%%= y %%>", map[string]any{"x": "X"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "aXbXc\n<%= y %>" {
		t.Fatalf("unexpected output %q", got)
	}
}
