package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RxivScanner/internal/domain"
)

// CatalogFilename is fixed at the output root.
const CatalogFilename = "catalog.json"

// Catalog is the keyed document store of denormalized per-record metadata.
// Unlike the index views it replaces on key match instead of skipping.
type Catalog struct {
	Version int                  `json:"version"`
	Items   []domain.CatalogItem `json:"items"`
}

// CatalogPath locates the catalog document for an output root.
func CatalogPath(baseDir string) string {
	return filepath.Join(baseDir, CatalogFilename)
}

// LoadCatalog reads the catalog, initializing an empty one when the file is
// absent or unparsable.
func LoadCatalog(baseDir string) *Catalog {
	raw, err := os.ReadFile(CatalogPath(baseDir))
	if err != nil {
		return &Catalog{Version: 1}
	}
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return &Catalog{Version: 1}
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return &c
}

// Save rewrites the whole catalog document.
func (c *Catalog) Save(baseDir string) error {
	path := CatalogPath(baseDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// FindByDoino returns every item whose doino matches.
func (c *Catalog) FindByDoino(doino string) []domain.CatalogItem {
	var hits []domain.CatalogItem
	for _, it := range c.Items {
		if it.DoiNo == doino {
			hits = append(hits, it)
		}
	}
	return hits
}

// UpsertCatalogItem loads the catalog, replaces the item with a matching
// key in place or appends it, then rewrites the document. This is a full
// read-modify-write per record.
func (s *Store) UpsertCatalogItem(item domain.CatalogItem) error {
	c := LoadCatalog(s.baseDir)
	replaced := false
	for i := range c.Items {
		if c.Items[i].Key == item.Key {
			c.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.Items = append(c.Items, item)
	}
	return c.Save(s.baseDir)
}

// Catalog exposes the current catalog contents for lookups.
func (s *Store) Catalog() *Catalog {
	return LoadCatalog(s.baseDir)
}

// BuildCatalogItem assembles the denormalized projection for one processed
// record.
func BuildCatalogItem(info RowInfo, titleOriginal, server, doiRaw string) domain.CatalogItem {
	return domain.CatalogItem{
		Key:             domain.RowID(info.Date, info.Category, info.Key),
		Date:            info.Date,
		Category:        info.Category,
		CatSlug:         info.CatSlug,
		DoiDate:         info.Key.DoiDate,
		DoiNo:           info.Key.DoiNo,
		TitleTranslated: info.TitleTranslated,
		TitleOriginal:   titleOriginal,
		License:         info.License,
		Server:          server,
		DoiRaw:          doiRaw,
		DoiURL:          domain.Doi1101URL(info.Key),
		HTMLRel:         filepath.Join("date", info.Date, info.CatSlug, info.Key.DoiDate, info.Key.DoiNo+".html"),
		Timestamp:       time.Now().Format("2006-01-02_15-04-05"),
	}
}
