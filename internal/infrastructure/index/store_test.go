package index

import (
	"os"
	"path/filepath"
	"testing"

	"RxivScanner/internal/domain"
)

func testInfo(doino string) RowInfo {
	return RowInfo{
		Date:            "2025-10-17",
		Category:        "cell biology",
		CatSlug:         "cell_biology",
		Key:             domain.DoiKey{DoiDate: "2025.10.17", DoiNo: doino},
		TitleTranslated: "翻訳題名 " + doino,
		License:         "cc_by",
	}
}

func TestUpdateRecordViewsCreatesAllFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)
	if err := s.UpdateRecordViews(testInfo("000001")); err != nil {
		t.Fatalf("UpdateRecordViews error: %v", err)
	}

	for _, rel := range []string{
		"date/2025-10-17/date.html",
		"date/2025-10-17/cell_biology/category.html",
		"category/cell_biology/category.html",
		"date/2025-10-17/daily_report.html",
		"category/cell_biology/category_report.html",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Fatalf("expected view %s: %v", rel, err)
		}
	}
}

func TestUpdateRecordViewsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)
	info := testInfo("000002")

	if err := s.UpdateRecordViews(info); err != nil {
		t.Fatalf("first update: %v", err)
	}
	first, _ := os.ReadFile(filepath.Join(dir, "date/2025-10-17/date.html"))

	if err := s.UpdateRecordViews(info); err != nil {
		t.Fatalf("second update: %v", err)
	}
	second, _ := os.ReadFile(filepath.Join(dir, "date/2025-10-17/date.html"))

	if string(first) != string(second) {
		t.Fatalf("re-inserting the same record changed the view")
	}
}

func TestReportOrdering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)
	r1, r2 := testInfo("000001"), testInfo("000002")

	for _, info := range []RowInfo{r1, r2} {
		if err := s.UpdateDailyReport(info); err != nil {
			t.Fatalf("daily report: %v", err)
		}
		if err := s.UpdateCategoryReport(info); err != nil {
			t.Fatalf("category report: %v", err)
		}
	}

	daily, err := OpenView(filepath.Join(dir, "date/2025-10-17/daily_report.html"), "", "", nil)
	if err != nil {
		t.Fatalf("open daily report: %v", err)
	}
	rows := daily.Rows()
	if len(rows) != 2 || rows[0].ID != r1.id() || rows[1].ID != r2.id() {
		t.Fatalf("daily report must keep processing order, got %v %v", rows[0].ID, rows[1].ID)
	}

	catRep, err := OpenView(filepath.Join(dir, "category/cell_biology/category_report.html"), "", "", nil)
	if err != nil {
		t.Fatalf("open category report: %v", err)
	}
	rows = catRep.Rows()
	if len(rows) != 2 || rows[0].ID != r2.id() || rows[1].ID != r1.id() {
		t.Fatalf("category report must be newest first, got %v %v", rows[0].ID, rows[1].ID)
	}
}

func TestWriteDaySummaries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)

	if err := s.WriteDaySummaries("2025-10-17", 12); err != nil {
		t.Fatalf("WriteDaySummaries error: %v", err)
	}
	if err := s.WriteDaySummaries("2025-10-16", 0); err != nil {
		t.Fatalf("WriteDaySummaries error: %v", err)
	}
	// Same month: the year view must still hold a single 2025-10 row.
	if err := s.WriteDaySummaries("2025-10-16", 5); err != nil {
		t.Fatalf("repeat WriteDaySummaries error: %v", err)
	}

	all, err := OpenView(filepath.Join(dir, "date", "all_date.html"), "", "", nil)
	if err != nil {
		t.Fatalf("open all_date: %v", err)
	}
	rows := all.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 date rows, got %d", len(rows))
	}
	if rows[0].Cells[2].Text != "12" {
		t.Fatalf("collected count not recorded: %+v", rows[0].Cells)
	}
	// Re-running a date must not overwrite its original count.
	if rows[1].Cells[2].Text != "0" {
		t.Fatalf("expected first-write-wins count 0, got %s", rows[1].Cells[2].Text)
	}

	month, err := OpenView(filepath.Join(dir, "log", "2025", "10", "all_month.html"), "", "", nil)
	if err != nil {
		t.Fatalf("open all_month: %v", err)
	}
	if len(month.Rows()) != 2 {
		t.Fatalf("expected 2 month rows, got %d", len(month.Rows()))
	}

	year, err := OpenView(filepath.Join(dir, "log", "year", "all_year.html"), "", "", nil)
	if err != nil {
		t.Fatalf("open all_year: %v", err)
	}
	if len(year.Rows()) != 1 || year.Rows()[0].ID != "2025-10" {
		t.Fatalf("expected single 2025-10 row, got %+v", year.Rows())
	}
}

func TestWriteDaySummariesBadDate(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	if err := s.WriteDaySummaries("20251017", 1); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestEnsureViewNoOpWhenPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)
	path := filepath.Join(dir, "date", "all_date.html")

	if err := s.EnsureView(path, "Original Title", "sub", []string{"a"}); err != nil {
		t.Fatalf("EnsureView error: %v", err)
	}
	before, _ := os.ReadFile(path)

	if err := s.EnsureView(path, "Different Title", "other", []string{"b"}); err != nil {
		t.Fatalf("EnsureView error: %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("EnsureView must not rewrite an existing view")
	}
}
