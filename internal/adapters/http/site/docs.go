package site

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const docsIndex = "index"

// Page is one rendered docs page.
type Page struct {
	Slug  string
	Title string
	Body  template.HTML
}

// DocsHandler serves markdown docs rendered to HTML once at construction.
type DocsHandler struct {
	pages map[string][]byte
	order []Page
}

var layout = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Page.Title}} · fairlens docs</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 0; display: flex; color: #1d2330; }
    nav { width: 220px; padding: 24px; background: #f6f7f9; min-height: 100vh; box-sizing: border-box; }
    nav a { display: block; padding: 4px 0; color: #2563eb; text-decoration: none; }
    nav a.active { font-weight: 600; color: #1d2330; }
    article { max-width: 760px; padding: 24px 40px; line-height: 1.6; }
    table { border-collapse: collapse; }
    th, td { border: 1px solid #e5e7eb; padding: 4px 10px; text-align: left; }
    code { background: #f3f4f6; padding: 1px 4px; border-radius: 3px; }
  </style>
</head>
<body>
  <nav>
    <a href="/">&larr; Wizard</a>
    {{range .Nav}}<a href="/docs/{{if ne .Slug "index"}}{{.Slug}}{{end}}"{{if eq .Slug $.Page.Slug}} class="active"{{end}}>{{.Title}}</a>
    {{end}}
  </nav>
  <article>{{.Page.Body}}</article>
</body>
</html>`))

// NewDocsHandler renders every embedded markdown page.
func NewDocsHandler() (*DocsHandler, error) {
	files, err := fs.Glob(docsFS, "docs/*.md")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	sort.Strings(files)

	h := &DocsHandler{pages: make(map[string][]byte, len(files))}
	for _, f := range files {
		src, err := docsFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrGenerate, f, err)
		}
		slug := strings.TrimSuffix(path.Base(f), ".md")
		h.order = append(h.order, Page{Slug: slug, Title: title(src, slug), Body: template.HTML(Render(src))}) //nolint:gosec // embedded, trusted markdown
	}
	// Index first, the rest alphabetically.
	sort.SliceStable(h.order, func(i, j int) bool { return h.order[i].Slug == docsIndex && h.order[j].Slug != docsIndex })

	for _, p := range h.order {
		var buf bytes.Buffer
		if err := layout.Execute(&buf, struct {
			Page Page
			Nav  []Page
		}{p, h.order}); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrGenerate, p.Slug, err)
		}
		h.pages[p.Slug] = buf.Bytes()
	}
	if _, ok := h.pages[docsIndex]; !ok {
		return nil, fmt.Errorf("%w: missing %s.md", ErrGenerate, docsIndex)
	}
	return h, nil
}

// Render converts markdown to HTML.
func Render(src []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML(src, p, r)
}

// Pages lists the rendered pages in navigation order.
func (h *DocsHandler) Pages() []Page {
	out := make([]Page, len(h.order))
	copy(out, h.order)
	return out
}

// ServeHTTP serves /docs/ and /docs/{slug}; a trailing .html is accepted.
func (h *DocsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	slug := strings.TrimSuffix(strings.Trim(strings.TrimPrefix(r.URL.Path, "/docs"), "/"), ".html")
	if slug == "" {
		slug = docsIndex
	}
	page, ok := h.pages[slug]
	if !ok {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// title is the first level-one heading, or the slug.
func title(src []byte, slug string) string {
	for _, line := range strings.Split(string(src), "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return slug
}
