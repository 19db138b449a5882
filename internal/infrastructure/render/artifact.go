// Package render writes the self-contained per-record HTML document.
package render

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"RxivScanner/internal/domain"
	"RxivScanner/internal/ports"
)

// ArtifactWriter renders one document per record under the output root.
type ArtifactWriter struct {
	baseDir string
	tpl     *template.Template
}

var _ ports.ArtifactWriter = (*ArtifactWriter)(nil)

// NewArtifactWriter targets baseDir as the output root.
func NewArtifactWriter(baseDir string) *ArtifactWriter {
	return &ArtifactWriter{
		baseDir: baseDir,
		tpl:     template.Must(template.New("artifact").Parse(artifactTemplate)),
	}
}

// ArtifactRelPath is the deterministic location of a record's document
// relative to the output root.
func ArtifactRelPath(date, catSlug string, key domain.DoiKey) string {
	return filepath.Join("date", date, catSlug, key.DoiDate, key.DoiNo+".html")
}

type artifactData struct {
	PageTitle          string
	TitleTranslated    string
	TitleOriginal      string
	Date               string
	Category           string
	Server             string
	Doi1101URL         string
	DoiRawURL          string
	DoiRaw             string
	JatsURL            string
	AbstractTranslated string
	AbstractOriginal   string
	Authors            string
	License            string
	CorrAuthor         string
	CorrInstitution    string
	Version            string
	Type               string
}

// Write renders the document and creates any missing parent directories.
// It returns the document path relative to the output root.
func (w *ArtifactWriter) Write(rec domain.Record, tr domain.Translation, key domain.DoiKey) (string, error) {
	catSlug := domain.SlugifyCategory(rec.Category)
	rel := ArtifactRelPath(rec.Date, catSlug, key)
	abs := filepath.Join(w.baseDir, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	data := artifactData{
		PageTitle:          fmt.Sprintf("%s | %s | %s", rec.Category, rec.Date, key.DoiNo),
		TitleTranslated:    tr.Title,
		TitleOriginal:      rec.Title,
		Date:               rec.Date,
		Category:           rec.Category,
		Server:             rec.Server,
		Doi1101URL:         domain.Doi1101URL(key),
		DoiRawURL:          "https://doi.org/" + rec.DOI,
		DoiRaw:             rec.DOI,
		JatsURL:            rec.JatsXMLURL,
		AbstractTranslated: tr.Abstract,
		AbstractOriginal:   rec.Abstract,
		Authors:            rec.Authors,
		License:            rec.License,
		CorrAuthor:         rec.CorrespondingAuthor,
		CorrInstitution:    rec.CorrespondingInstitution,
		Version:            rec.Version,
		Type:               rec.Type,
	}

	var buf strings.Builder
	if err := w.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render artifact: %w", err)
	}
	if err := os.WriteFile(abs, []byte(buf.String()), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return rel, nil
}

const artifactTemplate = `<!doctype html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.PageTitle}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Noto Sans JP', Roboto, 'Hiragino Sans', 'Yu Gothic', 'Meiryo', sans-serif; line-height: 1.65; padding: 1.2rem; }
h1 { font-size: 1.6rem; margin: 0 0 .6rem; }
h2 { font-size: 1.2rem; margin: 1.2rem 0 .4rem; }
p  { margin: .5rem 0; }
.small { color: #666; font-size: .9rem; }
a { color: #0366d6; text-decoration: none; }
a:hover { text-decoration: underline; }
.meta { margin:.5rem 0 1rem; color:#333; }
.footer { margin-top:2rem; font-size:.9rem; color:#666; }
</style>
</head>
<body>
<article>
  <h1>{{.TitleTranslated}}</h1>
  <div class="meta small">
    <div><strong>原題:</strong> {{.TitleOriginal}}</div>
    <div><strong>日付:</strong> {{.Date}}　/　<strong>カテゴリ:</strong> {{.Category}}　/　<strong>サーバ:</strong> {{.Server}}</div>
    <div><strong>DOI:</strong> <a href="{{.Doi1101URL}}" target="_blank" rel="noopener">{{.Doi1101URL}}</a></div>
    <div><strong>DOI (raw):</strong> <a href="{{.DoiRawURL}}" target="_blank" rel="noopener">{{.DoiRaw}}</a></div>
    {{if .JatsURL}}<div><strong>JATS XML:</strong> <a href="{{.JatsURL}}" target="_blank" rel="noopener">{{.JatsURL}}</a></div>{{end}}
  </div>

  <h2>抄録（日本語）</h2>
  <p>{{.AbstractTranslated}}</p>

  <h2>Abstract (Original)</h2>
  <p>{{.AbstractOriginal}}</p>

  <h2>Authors</h2>
  <p>{{.Authors}}</p>

  <h2>License</h2>
  <p>{{.License}}</p>

  <h2>Corresponding</h2>
  <p><strong>author_corresponding:</strong> {{.CorrAuthor}}</p>
  <p><strong>author_corresponding_institution:</strong> {{.CorrInstitution}}</p>

  <h2>Version / Type</h2>
  <p><strong>Version:</strong> {{.Version}}</p>
  <p><strong>Type:</strong> {{.Type}}</p>
</article>

<div class="footer">Generated by rxivscanner</div>
</body>
</html>
`
