// Package api implements the cursor-paginated client for the preprint
// metadata API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"RxivScanner/internal/domain"
	"RxivScanner/internal/ports"
)

// PageSize is fixed by the upstream API contract.
const PageSize = 100

const requestTimeout = 60 * time.Second

var cursorExpr = regexp.MustCompile(`/(\d+)$`)

// PageFetcher walks a date's record collection page by page.
type PageFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.RecordSource = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client against the API base URL.
// A nil client gets a default with the fixed request timeout.
func NewPageFetcher(baseURL string, client *http.Client, logger *slog.Logger) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &PageFetcher{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  logger,
	}
}

// envelope is the API response wrapper.
type envelope struct {
	Messages []struct {
		Total any `json:"total"`
	} `json:"messages"`
	Collection []domain.Record `json:"collection"`
}

// FetchDate returns all records for one date. A transport or HTTP-status
// error yields an empty collection with total 0: the caller treats it as
// "no records today", never as a batch failure.
func (f *PageFetcher) FetchDate(ctx context.Context, server, date string, stopRequested func() bool) ([]domain.Record, int, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/0", f.baseURL, server, date, date)
	return f.FetchAllPages(ctx, url, stopRequested)
}

// FetchAllPages paginates from the cursor embedded in queryURL (implicit 0)
// until the server-reported total is reached or a short page ends the
// stream. A stop signal between pages returns what was collected so far.
func (f *PageFetcher) FetchAllPages(ctx context.Context, queryURL string, stopRequested func() bool) ([]domain.Record, int, error) {
	cursor, head, tail := ParseCursor(queryURL)

	f.debug("fetching page", "cursor", cursor, "url", head+strconv.Itoa(cursor)+tail)
	first, total, err := f.fetchPage(ctx, head+strconv.Itoa(cursor)+tail)
	if err != nil {
		f.warn("page fetch failed, treating date as empty", "cursor", cursor, "error", err)
		return nil, 0, nil
	}

	if total < 0 {
		total = len(first)
		f.debug("total missing, falling back to page size", "total", total)
	}

	records := append([]domain.Record(nil), first...)
	for cur := (cursor/PageSize + 1) * PageSize; cur < total; cur += PageSize {
		if stopRequested != nil && stopRequested() {
			f.debug("stop requested, aborting pagination", "cursor", cur)
			break
		}
		f.debug("fetching page", "cursor", cur)
		page, _, err := f.fetchPage(ctx, head+strconv.Itoa(cur)+tail)
		if err != nil {
			f.warn("page fetch failed, treating date as empty", "cursor", cur, "error", err)
			return nil, 0, nil
		}
		records = append(records, page...)
		if len(page) < PageSize {
			break
		}
	}

	if total == 0 {
		total = len(records)
	}
	return records, total, nil
}

func (f *PageFetcher) fetchPage(ctx context.Context, url string) ([]domain.Record, int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, -1, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "rxivscanner/1.0 (+https://example.local)")
	req.Header.Set("Connection", "close")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, -1, fmt.Errorf("api returned %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, -1, fmt.Errorf("decode page: %w", err)
	}

	total := -1
	if len(env.Messages) > 0 {
		if t, ok := coerceTotal(env.Messages[0].Total); ok {
			total = t
		}
	}
	return env.Collection, total, nil
}

// coerceTotal accepts the numeric or string spellings the API uses.
func coerceTotal(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ParseCursor splits a query URL into its numeric trailing cursor and the
// surrounding head/tail. A URL without a trailing number gets an implicit
// cursor 0 appended.
func ParseCursor(url string) (int, string, string) {
	if m := cursorExpr.FindStringSubmatchIndex(url); m != nil {
		cursor, _ := strconv.Atoi(url[m[2]:m[3]])
		return cursor, url[:m[2]], url[m[3]:]
	}
	if url == "" || url[len(url)-1] != '/' {
		url += "/"
	}
	url += "0"
	return 0, url[:len(url)-1], ""
}

func (f *PageFetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *PageFetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
