// Package index maintains the file-backed HTML index views and the keyed
// JSON catalog for the output tree.
//
// A view is held as an in-memory ordered row list keyed by row identity:
// rehydrated from the stored file at open time, serialized wholesale on
// flush. This keeps inserts idempotent without splicing text.
package index

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Position selects where a new row lands relative to the existing body.
type Position int

const (
	Append Position = iota
	Prepend
)

// Cell is one table cell: plain text, or a link when Href is set.
type Cell struct {
	Text     string
	Href     string
	External bool
}

// Text returns a plain text cell.
func Text(s string) Cell { return Cell{Text: s} }

// Link returns a same-window link cell.
func Link(text, href string) Cell { return Cell{Text: text, Href: href} }

// ExternalLink returns a new-window link cell.
func ExternalLink(text, href string) Cell { return Cell{Text: text, Href: href, External: true} }

// Row is one table row keyed by its identity marker.
type Row struct {
	ID    string
	Cells []Cell
}

// View is one index table backed by a single HTML file.
type View struct {
	Path     string
	Title    string
	Subtitle string
	Headers  []string

	rows []Row
	byID map[string]struct{}
}

// OpenView loads the view at path, rehydrating rows from an existing file.
// An absent file yields an empty view carrying the provided metadata; the
// file itself is created on the first flush.
func OpenView(path, title, subtitle string, headers []string) (*View, error) {
	v := &View{
		Path:     path,
		Title:    title,
		Subtitle: subtitle,
		Headers:  headers,
		byID:     map[string]struct{}{},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read view %s: %w", path, err)
	}
	if err := v.parse(string(raw)); err != nil {
		return nil, fmt.Errorf("parse view %s: %w", path, err)
	}
	return v, nil
}

func (v *View) parse(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		v.Title = t
	}
	if s := strings.TrimSpace(doc.Find("div.small").First().Text()); s != "" {
		v.Subtitle = s
	}

	var headers []string
	doc.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})
	if len(headers) > 0 {
		v.Headers = headers
	}

	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		id, ok := tr.Attr("data-rowid")
		if !ok {
			return
		}
		row := Row{ID: id}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if a := td.Find("a").First(); a.Length() > 0 {
				href, _ := a.Attr("href")
				target, _ := a.Attr("target")
				row.Cells = append(row.Cells, Cell{
					Text:     strings.TrimSpace(a.Text()),
					Href:     href,
					External: target == "_blank",
				})
				return
			}
			row.Cells = append(row.Cells, Text(strings.TrimSpace(td.Text())))
		})
		if _, dup := v.byID[row.ID]; dup {
			return
		}
		v.rows = append(v.rows, row)
		v.byID[row.ID] = struct{}{}
	})
	return nil
}

// Has reports whether a row with the given identity is present.
func (v *View) Has(id string) bool {
	_, ok := v.byID[id]
	return ok
}

// Insert adds the row at the requested position if its identity is absent.
// It reports whether the row was actually added.
func (v *View) Insert(row Row, pos Position) bool {
	if v.Has(row.ID) {
		return false
	}
	if pos == Prepend {
		v.rows = append([]Row{row}, v.rows...)
	} else {
		v.rows = append(v.rows, row)
	}
	v.byID[row.ID] = struct{}{}
	return true
}

// Rows returns the rows in body order.
func (v *View) Rows() []Row {
	out := make([]Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// Flush serializes the whole view and writes it, creating parent
// directories as needed. A view never touched since open is still written
// so that EnsureView materializes empty tables.
func (v *View) Flush() error {
	if err := os.MkdirAll(filepath.Dir(v.Path), 0o755); err != nil {
		return fmt.Errorf("create view dir: %w", err)
	}
	var buf strings.Builder
	if err := viewTemplate.Execute(&buf, v); err != nil {
		return fmt.Errorf("render view: %w", err)
	}
	if err := os.WriteFile(v.Path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write view: %w", err)
	}
	return nil
}

var viewTemplate = template.Must(template.New("view").Parse(`<!doctype html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Noto Sans JP', Roboto, 'Hiragino Sans', 'Yu Gothic', 'Meiryo', sans-serif; line-height: 1.6; padding:1.2rem; }
h1 { font-size: 1.5rem; margin: .2rem 0 1rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: .4rem .5rem; text-align: left; }
th { background: #f3f4f6; }
.small { color:#666; font-size:.92rem; }
a { color: #0366d6; text-decoration: none; }
a:hover { text-decoration: underline; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="small">{{.Subtitle}}</div>
<div class="table-wrap">
<table>
<thead>
<tr>
{{- range .Headers}}
  <th>{{.}}</th>
{{- end}}
</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr data-rowid="{{.ID}}">
{{- range .Cells}}
{{- if .Href}}
  <td><a href="{{.Href}}"{{if .External}} target="_blank"{{else}} target="_self"{{end}} rel="noopener">{{.Text}}</a></td>
{{- else}}
  <td>{{.Text}}</td>
{{- end}}
{{- end}}
</tr>
{{- end}}
</tbody>
</table>
</div>
</body>
</html>
`))
