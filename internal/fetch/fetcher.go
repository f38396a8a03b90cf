package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/itemone/internal/cache"
	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/store"
	"github.com/rs/zerolog"
)

// StatusDone marks a row whose document is on disk. Every other row gets "".
const StatusDone = "done"

// Result classifies what happened to one row
type Result string

const (
	ResultDownloaded Result = "downloaded"
	ResultSkipped    Result = "skipped"    // already on disk
	ResultInvalid    Result = "invalid"    // link is not an http(s) URL
	ResultDisallowed Result = "disallowed" // robots.txt forbids it
	ResultFailed     Result = "failed"
)

// ErrDisallowed is returned when robots.txt forbids fetching a document
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Observer is notified once per row
type Observer interface {
	ObserveDownload(result Result, bytes int64)
}

// Getter retrieves a remote document
type Getter interface {
	GetWithRetry(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher downloads the document of every row that is not yet in the store.
// Rows are handled one at a time, in order.
type Fetcher struct {
	getter   Getter
	store    *store.Store
	limiter  *Limiter
	robots   *RobotsChecker
	failed   cache.Cache
	observer Observer
	log      zerolog.Logger
}

// NewFetcher creates a fetcher from configuration
func NewFetcher(cfg model.FetchConfig, st *store.Store, log zerolog.Logger) *Fetcher {
	mem := cache.NewMemoryCache(24*time.Hour, 10*time.Minute)

	f := &Fetcher{
		getter:  NewClient(cfg),
		store:   st,
		limiter: NewLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.PauseEvery, cfg.Pause),
		failed:  mem,
		log:     log,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(mem, cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// SetObserver registers an observer for finished rows
func (f *Fetcher) SetObserver(o Observer) {
	f.observer = o
}

// Run fetches every descriptor and returns the download status of each row,
// aligned with the input. It stops early only when ctx is cancelled; the
// statuses of unprocessed rows are left empty.
func (f *Fetcher) Run(ctx context.Context, descriptors []model.Descriptor) ([]string, error) {
	statuses := make([]string, len(descriptors))

	for i, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return statuses, err
		}

		result, n, err := f.fetchOne(ctx, d)
		if result == ResultDownloaded || result == ResultSkipped {
			statuses[i] = StatusDone
		}

		event := f.log.Debug()
		if err != nil {
			event = f.log.Warn().Err(err)
		}
		event.Str("symbol", d.Symbol).Str("final_link", d.FinalLink).Str("result", string(result)).Int64("bytes", n).Msg("fetch")

		if f.observer != nil {
			f.observer.ObserveDownload(result, n)
		}
	}

	return statuses, nil
}

// fetchOne handles a single row
func (f *Fetcher) fetchOne(ctx context.Context, d model.Descriptor) (Result, int64, error) {
	link := strings.TrimSpace(d.FinalLink)
	if !strings.HasPrefix(link, "http") {
		return ResultInvalid, 0, nil
	}
	if _, err := f.store.Path(d); err != nil {
		return ResultInvalid, 0, err
	}

	if f.store.Exists(d) {
		return ResultSkipped, 0, nil
	}

	failedKey := cache.Key("failed", link)
	if _, seen := f.failed.Get(failedKey); seen {
		return ResultFailed, 0, fmt.Errorf("already failed this run")
	}

	if f.robots != nil {
		allowed, delay := f.robots.CanFetch(ctx, link)
		if !allowed {
			return ResultDisallowed, 0, ErrDisallowed
		}
		f.limiter.SetHostDelay(hostOf(link), delay)
	}

	if err := f.limiter.Wait(ctx, link); err != nil {
		return ResultFailed, 0, fmt.Errorf("rate limit: %w", err)
	}

	data, err := f.getter.GetWithRetry(ctx, link)
	if err != nil {
		_ = f.failed.Set(failedKey, nil, 0)
		return ResultFailed, 0, err
	}

	n, err := f.store.Save(d, bytes.NewReader(data))
	if err != nil {
		return ResultFailed, n, fmt.Errorf("save: %w", err)
	}

	return ResultDownloaded, n, nil
}
