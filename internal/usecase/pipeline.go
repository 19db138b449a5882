package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"RxivScanner/internal/control"
	"RxivScanner/internal/domain"
	"RxivScanner/internal/filter"
	"RxivScanner/internal/infrastructure/index"
	"RxivScanner/internal/ports"
	"RxivScanner/pkg/logbuf"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02_15-04"
	lockFilename    = ".rxivscanner.lock"
)

// ErrTreeLocked reports that another batch already owns the output tree.
var ErrTreeLocked = errors.New("output tree is locked by another run")

// IndexStore is the slice of the view/catalog store the pipeline drives.
type IndexStore interface {
	UpdateRecordViews(info index.RowInfo) error
	UpsertCatalogItem(item domain.CatalogItem) error
	WriteDaySummaries(date string, processed int) error
}

// Params describes one batch: where to start, how far back to go, and which
// records survive filtering.
type Params struct {
	StartDate string
	Period    string
	Server    string
	License   filter.LicenseRule
	Keywords  filter.KeywordRule
}

// PeriodDays resolves a period preset to its day count.
func PeriodDays(period string) int {
	switch period {
	case "Week":
		return 7
	case "Month":
		return 30
	case "Year":
		return 365
	default:
		return 1
	}
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.RecordSource
	Translator ports.Translator
	Writer     ports.ArtifactWriter
	Index      IndexStore
	Audit      ports.AuditStore
	Notifier   ports.Notifier
	State      *control.State
	BaseDir    string
	Logger     *slog.Logger

	// OnCompletion is invoked after each successfully processed record.
	OnCompletion func(domain.Completion)
	// LogSink receives every buffered log line as it is produced.
	LogSink func(line string)
}

// Pipeline implements the incremental ingestion workflow for one batch at a
// time. It is not safe for concurrent Run calls against the same output tree;
// the tree lock enforces that across processes as well.
type Pipeline struct {
	source     ports.RecordSource
	translator ports.Translator
	writer     ports.ArtifactWriter
	index      IndexStore
	audit      ports.AuditStore
	notifier   ports.Notifier
	state      *control.State
	baseDir    string
	logger     *slog.Logger

	onCompletion func(domain.Completion)
	logSink      func(string)
	lines        *logbuf.Buffer
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	state := deps.State
	if state == nil {
		state = control.NewState()
	}
	return &Pipeline{
		source:       deps.Source,
		translator:   deps.Translator,
		writer:       deps.Writer,
		index:        deps.Index,
		audit:        deps.Audit,
		notifier:     deps.Notifier,
		state:        state,
		baseDir:      deps.BaseDir,
		logger:       deps.Logger,
		onCompletion: deps.OnCompletion,
		logSink:      deps.LogSink,
		lines:        logbuf.New(),
	}
}

// State exposes the batch control flags to the caller raising signals.
func (p *Pipeline) State() *control.State { return p.state }

// Run executes one batch over the reverse-chronological date list derived
// from params. Only an unparsable start date or a lock conflict is fatal;
// everything else degrades to logged skips.
func (p *Pipeline) Run(ctx context.Context, params Params) error {
	if p.source == nil || p.writer == nil || p.index == nil {
		return nil
	}

	start, err := time.Parse(dateLayout, params.StartDate)
	if err != nil {
		return fmt.Errorf("parse start date %q: %w", params.StartDate, err)
	}

	lock := flock.New(filepath.Join(p.baseDir, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output tree: %w", err)
	}
	if !locked {
		return ErrTreeLocked
	}
	defer lock.Unlock()

	p.lines.Reset()
	p.state.SetPhase(control.PhaseRunning)
	defer p.state.SetPhase(control.PhaseDone)

	startedAt := time.Now()
	p.writeSettingsSnapshot(params, startedAt)
	defer p.writeLogArtifact(startedAt)

	dates := dateList(start, PeriodDays(params.Period))
	p.note("batch started", "batch", p.state.BatchID, "start", params.StartDate, "days", len(dates), "server", params.Server)

	var digest []string
	for i, date := range dates {
		p.state.SetDay(i+1, len(dates))

		if p.state.StopNow() {
			p.note("stop requested, aborting batch", "date", date)
			return nil
		}

		processed, terminated := p.processDate(ctx, date, params)
		digest = append(digest, fmt.Sprintf("%s: %d", date, processed))
		if terminated {
			p.note("batch terminated early", "date", date, "processed", processed)
			return nil
		}
		if p.state.StopAfterUnit() {
			p.note("stopping after current date", "date", date, "processed", processed)
			return nil
		}
	}

	p.note("batch finished", "days", len(dates))
	p.publishDigest(ctx, digest)
	return nil
}

// processDate runs one calendar date end to end and reports how many records
// were fully processed plus whether the whole batch must terminate.
func (p *Pipeline) processDate(ctx context.Context, date string, params Params) (int, bool) {
	records, total, err := p.source.FetchDate(ctx, params.Server, date, p.state.StopNow)
	if err != nil {
		p.warn("fetch failed, treating date as empty", "date", date, "error", err)
		records = nil
	}
	if p.state.StopNow() {
		p.note("stop requested after fetch", "date", date)
		return 0, true
	}
	p.note("fetched date", "date", date, "records", len(records), "reported_total", total)

	kept := records[:0:0]
	for _, rec := range records {
		if filter.Matches(rec, params.License, params.Keywords) {
			kept = append(kept, rec)
		}
	}
	p.note("filtered date", "date", date, "kept", len(kept), "dropped", len(records)-len(kept))

	p.logReprocessed(ctx, date, kept)

	p.state.ResetProgress(len(kept))
	if len(kept) == 0 {
		p.writeDaySummaries(date, 0)
		return 0, false
	}

	done := 0
	for _, rec := range kept {
		if err := p.processRecord(ctx, date, rec, params.Server); err != nil {
			p.warn("record failed, skipping", "date", date, "doi", rec.DOI, "error", err)
		} else {
			done = p.state.RecordDone()
		}

		if p.state.StopNow() || p.state.StopAfterItem() {
			p.note("stopping after current record", "date", date, "processed", done)
			p.writeDaySummaries(date, done)
			return done, true
		}
		if p.state.PauseRequested() {
			p.note("paused", "date", date, "processed", done)
			if stopped := p.state.AwaitResume(); stopped {
				p.note("stopped while paused", "date", date, "processed", done)
				p.writeDaySummaries(date, done)
				return done, true
			}
			p.note("resumed", "date", date)
		}
	}

	p.writeDaySummaries(date, done)
	return done, false
}

// processRecord translates, renders, and indexes one record. A malformed DOI
// is not fatal: the record proceeds under the sentinel key.
func (p *Pipeline) processRecord(ctx context.Context, date string, rec domain.Record, server string) error {
	// The record's own date names the artifact path and every view row;
	// the queried date only fills in when the API omits it.
	if rec.Date == "" {
		rec.Date = date
	}
	rec.Category = domain.DisplayCategory(rec.Category)

	key, err := domain.ExtractDoiParts(rec.DOI)
	if err != nil {
		p.warn("malformed doi, using sentinel key", "doi", rec.DOI, "error", err)
	}

	tr := domain.Translation{Title: rec.Title, Abstract: rec.Abstract}
	if p.translator != nil {
		tr = p.translator.Translate(ctx, rec.Title, rec.Abstract)
	}

	if _, err := p.writer.Write(rec, tr, key); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	info := index.RowInfo{
		Date:            rec.Date,
		Category:        rec.Category,
		CatSlug:         domain.SlugifyCategory(rec.Category),
		Key:             key,
		TitleTranslated: tr.Title,
		License:         rec.License,
	}
	if err := p.index.UpdateRecordViews(info); err != nil {
		return fmt.Errorf("update views: %w", err)
	}

	item := index.BuildCatalogItem(info, rec.Title, server, rec.DOI)
	if err := p.index.UpsertCatalogItem(item); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}

	if p.audit != nil {
		if err := p.audit.SaveProcessed(ctx, item, tr.UsedTranslation); err != nil {
			p.warn("audit save failed", "key", item.Key, "error", err)
		}
	}

	if p.onCompletion != nil {
		p.onCompletion(domain.Completion{
			TitleTranslated:          tr.Title,
			CorrespondingAuthor:      rec.CorrespondingAuthor,
			CorrespondingInstitution: rec.CorrespondingInstitution,
			Authors:                  rec.Authors,
			License:                  rec.License,
			UsedTranslation:          tr.UsedTranslation,
		})
	}

	return nil
}

// logReprocessed consults the audit store so re-runs over the same dates are
// visible in the batch log. The index views dedup regardless.
func (p *Pipeline) logReprocessed(ctx context.Context, date string, kept []domain.Record) {
	if p.audit == nil || len(kept) == 0 {
		return
	}
	keys := make([]string, 0, len(kept))
	for _, rec := range kept {
		key, _ := domain.ExtractDoiParts(rec.DOI)
		recDate := rec.Date
		if recDate == "" {
			recDate = date
		}
		keys = append(keys, domain.RowID(recDate, domain.DisplayCategory(rec.Category), key))
	}
	seen, err := p.audit.AlreadyProcessed(ctx, keys)
	if err != nil {
		p.warn("audit lookup failed", "date", date, "error", err)
		return
	}
	n := 0
	for _, ok := range seen {
		if ok {
			n++
		}
	}
	if n > 0 {
		p.note("re-processing records already recorded", "date", date, "count", n)
	}
}

func (p *Pipeline) writeDaySummaries(date string, processed int) {
	if err := p.index.WriteDaySummaries(date, processed); err != nil {
		p.warn("day summaries failed", "date", date, "error", err)
	}
}

// writeSettingsSnapshot records the effective batch settings at the output
// root and as a timestamped copy under log/setting/.
func (p *Pipeline) writeSettingsSnapshot(params Params, startedAt time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "batch_id: %s\n", p.state.BatchID)
	fmt.Fprintf(&b, "started_at: %s\n", startedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "start_date: %s\n", params.StartDate)
	fmt.Fprintf(&b, "period: %s\n", params.Period)
	fmt.Fprintf(&b, "server: %s\n", params.Server)
	fmt.Fprintf(&b, "license_preset: %s\n", params.License.Preset)
	fmt.Fprintf(&b, "require_cc: %t\n", params.License.RequireCC)
	fmt.Fprintf(&b, "exclude_by: %t\n", params.License.ExcludeBy)
	fmt.Fprintf(&b, "exclude_nc: %t\n", params.License.ExcludeNC)
	fmt.Fprintf(&b, "exclude_nd: %t\n", params.License.ExcludeND)
	fmt.Fprintf(&b, "exclude_sa: %t\n", params.License.ExcludeSA)
	fmt.Fprintf(&b, "keywords: %s\n", strings.Join(params.Keywords.Keywords, ", "))
	fmt.Fprintf(&b, "keyword_mode: %s\n", params.Keywords.Mode)
	text := b.String()

	for _, path := range []string{
		filepath.Join(p.baseDir, "setting", "setting.txt"),
		filepath.Join(p.baseDir, "log", "setting", startedAt.Format(timestampLayout)+".log"),
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			p.warn("settings snapshot dir failed", "path", path, "error", err)
			continue
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			p.warn("settings snapshot failed", "path", path, "error", err)
		}
	}
}

// writeLogArtifact flushes the buffered batch log. Interrupted batches land
// under log/pause/, clean ones under log/fetch/.
func (p *Pipeline) writeLogArtifact(startedAt time.Time) {
	kind := "fetch"
	if p.state.Interrupted() {
		kind = "pause"
	}
	path := filepath.Join(p.baseDir, "log", kind, startedAt.Format(timestampLayout)+".log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.warn("log artifact dir failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, []byte(p.lines.String()), 0o644); err != nil {
		p.warn("log artifact failed", "path", path, "error", err)
	}
}

func (p *Pipeline) publishDigest(ctx context.Context, counts []string) {
	if p.notifier == nil || len(counts) == 0 {
		return
	}
	msg := "Batch finished:\n" + strings.Join(counts, "\n")
	if err := p.notifier.PublishDigest(ctx, msg); err != nil {
		p.warn("digest publish failed", "error", err)
	}
}

// dateList expands a start date into days reverse-chronological date strings.
func dateList(start time.Time, days int) []string {
	if days < 1 {
		days = 1
	}
	out := make([]string, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, -i).Format(dateLayout))
	}
	return out
}

// note records an info-level line both via slog and in the batch log buffer.
func (p *Pipeline) note(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
	p.buffer(msg, args)
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
	p.buffer(msg, args)
}

func (p *Pipeline) buffer(msg string, args []any) {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	line := b.String()
	p.lines.Append(line)
	if p.logSink != nil {
		p.logSink(line)
	}
}
