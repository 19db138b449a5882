package ports

import (
	"context"
	"time"

	"RxivScanner/internal/domain"
)

// RecordSource fetches the complete record collection for one calendar date.
// StopRequested is polled between pages; a fetch aborted mid-pagination
// returns whatever was already collected.
type RecordSource interface {
	FetchDate(ctx context.Context, server, date string, stopRequested func() bool) ([]domain.Record, int, error)
}

// Translator produces a target-language title/abstract pair. On failure it
// returns the inputs unchanged with UsedTranslation=false; it never errors
// the batch.
type Translator interface {
	Translate(ctx context.Context, title, abstract string) domain.Translation
}

// ArtifactWriter renders the per-record document and reports its path
// relative to the output root.
type ArtifactWriter interface {
	Write(rec domain.Record, tr domain.Translation, key domain.DoiKey) (rel string, err error)
}

// AuditStore persists processed records for deduplication and audit.
type AuditStore interface {
	AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, item domain.CatalogItem, usedTranslation bool) error
}

// Notifier delivers a finished-batch digest to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
