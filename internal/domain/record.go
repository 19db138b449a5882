package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Record is a single preprint item as delivered by the metadata API.
// It lives only for the duration of processing one page.
type Record struct {
	DOI                      string `json:"doi"`
	Date                     string `json:"date"`
	Category                 string `json:"category"`
	Title                    string `json:"title"`
	Abstract                 string `json:"abstract"`
	License                  string `json:"license"`
	Authors                  string `json:"authors"`
	Server                   string `json:"server"`
	CorrespondingAuthor      string `json:"author_corresponding"`
	CorrespondingInstitution string `json:"author_corresponding_institution"`
	Version                  string `json:"version"`
	Type                     string `json:"type"`
	JatsXMLURL               string `json:"jatsxml"`
}

// DoiKey holds the date-shaped and numeric halves of a DOI suffix.
type DoiKey struct {
	DoiDate string
	DoiNo   string
}

// DoiKeySentinel is substituted when a DOI cannot be parsed; the record
// keeps flowing through the pipeline under this placeholder identity.
const DoiKeySentinel = "unknown"

// ErrMalformedDoi reports a DOI that does not follow the
// prefix/YYYY.MM.DD.NNNNNN shape.
var ErrMalformedDoi = errors.New("malformed doi")

// ExtractDoiParts splits the DOI suffix on "." into the date triple and the
// trailing number. A DOI without "/" or with fewer than four dot segments
// returns ErrMalformedDoi together with the sentinel key.
func ExtractDoiParts(doi string) (DoiKey, error) {
	doi = strings.TrimSpace(doi)
	slash := strings.Index(doi, "/")
	if slash < 0 {
		return DoiKey{DoiDate: DoiKeySentinel, DoiNo: DoiKeySentinel}, fmt.Errorf("%w: %s", ErrMalformedDoi, doi)
	}
	parts := strings.Split(doi[slash+1:], ".")
	if len(parts) < 4 {
		return DoiKey{DoiDate: DoiKeySentinel, DoiNo: DoiKeySentinel}, fmt.Errorf("%w: suffix %s", ErrMalformedDoi, doi[slash+1:])
	}
	return DoiKey{
		DoiDate: strings.Join(parts[:3], "."),
		DoiNo:   parts[3],
	}, nil
}

// Doi1101URL renders the canonical doi.org link for a parsed key.
func Doi1101URL(key DoiKey) string {
	return fmt.Sprintf("https://doi.org/10.1101/%s.%s", key.DoiDate, key.DoiNo)
}

// RowID builds the composite identity shared by every index view and the
// catalog: no two records in one output tree may share it.
func RowID(date, category string, key DoiKey) string {
	return fmt.Sprintf("%s__%s__%s__%s", date, category, key.DoiDate, key.DoiNo)
}

// DisplayCategory returns the category as it appears in row identities,
// views, and the catalog, substituting "uncategorized" for a blank value.
func DisplayCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return "uncategorized"
	}
	return category
}

var nonSlugChars = regexp.MustCompile(`[^\w.-]`)

// SlugifyCategory turns a display category into a path-safe directory name.
func SlugifyCategory(category string) string {
	s := strings.TrimSpace(category)
	if s == "" {
		s = "uncategorized"
	}
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, `\`, "_")
	s = nonSlugChars.ReplaceAllString(s, "_")
	if s == "" {
		return "uncategorized"
	}
	return s
}

// CatalogItem is the denormalized projection of one processed record,
// keyed by the composite row identity.
type CatalogItem struct {
	Key             string `json:"key"`
	Date            string `json:"date"`
	Category        string `json:"category"`
	CatSlug         string `json:"cat_slug"`
	DoiDate         string `json:"doidate"`
	DoiNo           string `json:"doino"`
	TitleTranslated string `json:"title_ja"`
	TitleOriginal   string `json:"title_en"`
	License         string `json:"license"`
	Server          string `json:"server"`
	DoiRaw          string `json:"doi_raw"`
	DoiURL          string `json:"doi_url"`
	HTMLRel         string `json:"html_rel"`
	Timestamp       string `json:"ts"`
}

// Translation carries the translator output for one record.
type Translation struct {
	Title           string
	Abstract        string
	UsedTranslation bool
}

// Completion is delivered to the per-record callback after a record has been
// rendered and indexed.
type Completion struct {
	TitleTranslated          string
	CorrespondingAuthor      string
	CorrespondingInstitution string
	Authors                  string
	License                  string
	UsedTranslation          bool
}
