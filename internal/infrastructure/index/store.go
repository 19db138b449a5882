package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"RxivScanner/internal/domain"
)

// Store maintains the eight index views and the catalog under one output
// root. All writes are idempotent on row identity except the catalog,
// which replaces on key match.
type Store struct {
	baseDir string
	logger  *slog.Logger
}

// NewStore targets baseDir as the output root.
func NewStore(baseDir string, logger *slog.Logger) *Store {
	return &Store{baseDir: baseDir, logger: logger}
}

// RowInfo carries the identity and display fields every per-record view
// needs.
type RowInfo struct {
	Date            string
	Category        string
	CatSlug         string
	Key             domain.DoiKey
	TitleTranslated string
	License         string
}

func (r RowInfo) id() string {
	return domain.RowID(r.Date, r.Category, r.Key)
}

// EnsureView materializes an empty view at path if none exists yet.
func (s *Store) EnsureView(path, title, subtitle string, headers []string) error {
	v, err := OpenView(path, title, subtitle, headers)
	if err != nil {
		return err
	}
	if fileExists(path) {
		return nil
	}
	return v.Flush()
}

// InsertRow splices a row into the view at path, creating the view on
// demand. Inserting an identity already present is a no-op.
func (s *Store) InsertRow(path, title, subtitle string, headers []string, row Row, pos Position) error {
	v, err := OpenView(path, title, subtitle, headers)
	if err != nil {
		return err
	}
	if !v.Insert(row, pos) {
		if s.logger != nil {
			s.logger.Debug("row already present, skipping", "path", path, "rowid", row.ID)
		}
		if fileExists(path) {
			return nil
		}
	}
	return v.Flush()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// recordCells is the shared five-column shape of views 1-3.
func recordCells(info RowInfo, localHref string) []Cell {
	doiHref := domain.Doi1101URL(info.Key)
	return []Cell{
		Text(info.Key.DoiNo),
		Text(info.Key.DoiDate),
		Link("open", localHref),
		ExternalLink(doiHref, doiHref),
		Text(info.Category),
	}
}

// UpdateDateIndex appends the record to the per-date view.
func (s *Store) UpdateDateIndex(info RowInfo) error {
	path := filepath.Join(s.baseDir, "date", info.Date, "date.html")
	local := fmt.Sprintf("./%s/%s/%s.html", info.CatSlug, info.Key.DoiDate, info.Key.DoiNo)
	return s.InsertRow(path,
		fmt.Sprintf("Index for %s", info.Date),
		fmt.Sprintf("日付 %s の一覧", info.Date),
		[]string{"doino", "doidate", "local", "doi", "category"},
		Row{ID: info.id(), Cells: recordCells(info, local)},
		Append)
}

// UpdateDateCategoryIndex appends the record to the per-date-per-category
// view.
func (s *Store) UpdateDateCategoryIndex(info RowInfo) error {
	path := filepath.Join(s.baseDir, "date", info.Date, info.CatSlug, "category.html")
	local := fmt.Sprintf("./%s/%s.html", info.Key.DoiDate, info.Key.DoiNo)
	return s.InsertRow(path,
		fmt.Sprintf("Category '%s' on %s", info.Category, info.Date),
		fmt.Sprintf("%s のカテゴリ %s 集約", info.Date, info.Category),
		[]string{"doino", "doidate", "local", "doi", "category"},
		Row{ID: info.id(), Cells: recordCells(info, local)},
		Append)
}

// UpdateGlobalCategoryIndex appends the record to the all-dates view of its
// category.
func (s *Store) UpdateGlobalCategoryIndex(info RowInfo) error {
	path := filepath.Join(s.baseDir, "category", info.CatSlug, "category.html")
	local := fmt.Sprintf("../../date/%s/%s/%s/%s.html", info.Date, info.CatSlug, info.Key.DoiDate, info.Key.DoiNo)
	return s.InsertRow(path,
		fmt.Sprintf("Category '%s' (All Dates)", info.Category),
		fmt.Sprintf("カテゴリ %s の全日付集約", info.Category),
		[]string{"doino", "doidate", "local", "doi", "category"},
		Row{ID: info.id(), Cells: recordCells(info, local)},
		Append)
}

// UpdateDailyReport appends the record to the day's report in processing
// order.
func (s *Store) UpdateDailyReport(info RowInfo) error {
	path := filepath.Join(s.baseDir, "date", info.Date, "daily_report.html")
	local := fmt.Sprintf("./%s/%s/%s.html", info.CatSlug, info.Key.DoiDate, info.Key.DoiNo)
	doiHref := domain.Doi1101URL(info.Key)
	return s.InsertRow(path,
		fmt.Sprintf("Daily Report for %s", info.Date),
		fmt.Sprintf("%s の処理結果", info.Date),
		[]string{"title_ja", "local", "doi", "category", "license"},
		Row{ID: info.id(), Cells: []Cell{
			Text(info.TitleTranslated),
			Link("open", local),
			ExternalLink("doi", doiHref),
			Text(info.Category),
			Text(info.License),
		}},
		Append)
}

// UpdateCategoryReport prepends the record to its category's report so the
// newest entry is on top.
func (s *Store) UpdateCategoryReport(info RowInfo) error {
	path := filepath.Join(s.baseDir, "category", info.CatSlug, "category_report.html")
	local := fmt.Sprintf("../../date/%s/%s/%s/%s.html", info.Date, info.CatSlug, info.Key.DoiDate, info.Key.DoiNo)
	doiHref := domain.Doi1101URL(info.Key)
	return s.InsertRow(path,
		fmt.Sprintf("Category Report: %s", info.Category),
		"新規登録順（上が最新）",
		[]string{"date", "title_ja", "local", "doi", "license"},
		Row{ID: info.id(), Cells: []Cell{
			Text(info.Date),
			Text(info.TitleTranslated),
			Link("open", local),
			ExternalLink("doi", doiHref),
			Text(info.License),
		}},
		Prepend)
}

// UpdateRecordViews projects one processed record into views 1-3 and both
// reports.
func (s *Store) UpdateRecordViews(info RowInfo) error {
	for _, fn := range []func(RowInfo) error{
		s.UpdateDateIndex,
		s.UpdateDateCategoryIndex,
		s.UpdateGlobalCategoryIndex,
		s.UpdateDailyReport,
		s.UpdateCategoryReport,
	} {
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// WriteDaySummaries updates the all-dates, month and year views for one
// date. It runs for every visited date, failed or empty days included, so
// downstream views never show a gap.
func (s *Store) WriteDaySummaries(date string, processed int) error {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return fmt.Errorf("date %q is not YYYY-MM-DD", date)
	}
	year, month := parts[0], parts[1]

	allPath := filepath.Join(s.baseDir, "date", "all_date.html")
	if err := s.InsertRow(allPath,
		"All Dates Index",
		"全日付の索引（date, index, collected）",
		[]string{"date", "index", "collected"},
		Row{ID: date, Cells: []Cell{
			Text(date),
			Link(fmt.Sprintf("./%s/date.html", date), fmt.Sprintf("./%s/date.html", date)),
			Text(strconv.Itoa(processed)),
		}},
		Append); err != nil {
		return err
	}

	monthPath := filepath.Join(s.baseDir, "log", year, month, "all_month.html")
	if err := s.InsertRow(monthPath,
		fmt.Sprintf("All Dates in %s-%s", year, month),
		"当月の索引（date, index, collected）",
		[]string{"date", "index", "collected"},
		Row{ID: date, Cells: []Cell{
			Text(date),
			Link(fmt.Sprintf("../../../date/%s/date.html", date), fmt.Sprintf("../../../date/%s/date.html", date)),
			Text(strconv.Itoa(processed)),
		}},
		Append); err != nil {
		return err
	}

	ym := year + "-" + month
	yearPath := filepath.Join(s.baseDir, "log", "year", "all_year.html")
	return s.InsertRow(yearPath,
		"All Months Index",
		"年次索引（YYYY-MM, monthly index link）",
		[]string{"YYYY-MM", "index"},
		Row{ID: ym, Cells: []Cell{
			Text(ym),
			Link(fmt.Sprintf("../%s/%s/all_month.html", year, month), fmt.Sprintf("../%s/%s/all_month.html", year, month)),
		}},
		Append)
}
