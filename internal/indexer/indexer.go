// Package indexer builds the application records from .desktop manifests
// and keeps their on-disk cache fresh.
package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/cachestore"
	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/indexer/desktop"
	"github.com/0xADE/ade-launchd/internal/indexer/overlay"
	"github.com/0xADE/ade-launchd/internal/logging"
)

// Indexer scans manifests and manages detached cache write-backs.
type Indexer struct {
	opts Options
	log  *logging.Logger

	mu       sync.Mutex
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWg     sync.WaitGroup
}

// New creates an indexer. Zero Workers means one per CPU.
func New(opts Options) *Indexer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	idx := &Indexer{
		opts: opts,
		log:  opts.Logger.OrNoop().Component("indexer"),
	}
	idx.bgCtx, idx.bgCancel = context.WithCancel(context.Background())
	return idx
}

// Files lists the manifests currently on disk.
func (idx *Indexer) Files() []string {
	idx.mu.Lock()
	dirs := idx.opts.Dirs
	idx.mu.Unlock()
	return desktop.ListFiles(dirs, idx.opts.LocalDir)
}

// SetDirs replaces the application directories used by later scans.
func (idx *Indexer) SetDirs(dirs []string) {
	idx.mu.Lock()
	idx.opts.Dirs = slices.Clone(dirs)
	idx.mu.Unlock()
}

// Scan parses files in parallel and returns the resulting records,
// de-duplicated by key. Unreadable or skipped manifests are left out. An
// error is returned only when the alias or ignore file cannot be loaded or
// ctx is done.
func (idx *Indexer) Scan(ctx context.Context, files []string, p Params) ([]*candidate.Record, error) {
	ignore, err := overlay.LoadIgnore(idx.opts.IgnoreFile)
	if err != nil {
		return nil, err
	}
	aliases, err := overlay.LoadAliases(idx.opts.AliasFile)
	if err != nil {
		return nil, err
	}

	results := make([]*candidate.Record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.Workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := desktop.Parse(file, ignore)
			if err != nil {
				if !errors.Is(err, desktop.ErrSkipped) {
					idx.log.Debug("skipping manifest", "path", file, "error", err)
				}
				return nil
			}
			overlay.Apply(rec, aliases[rec.Name], p.UseKeywords)
			idx.resolveIcons(rec)
			rec.Priority = p.priorityOf(rec.Exec)
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dedupe(results), nil
}

func (idx *Indexer) resolveIcons(rec *candidate.Record) {
	if idx.opts.Icons == nil {
		return
	}
	if rec.Icon != "" {
		rec.Icon = idx.opts.Icons.Resolve(rec.Icon)
	}
	for i := range rec.Actions {
		if rec.Actions[i].Icon != "" {
			rec.Actions[i].Icon = idx.opts.Icons.Resolve(rec.Actions[i].Icon)
		}
	}
}

// Refresh updates a cached record set against the manifests on disk. A
// cached record is kept only while its manifest exists and is older than
// lastWrite; everything else on disk is parsed again.
func (idx *Indexer) Refresh(ctx context.Context, cached []*candidate.Record, lastWrite time.Time, p Params) ([]*candidate.Record, error) {
	files := idx.Files()
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f] = true
	}

	kept := make(map[string]bool, len(cached))
	retained := make([]*candidate.Record, 0, len(cached))
	for _, rec := range cached {
		if !onDisk[rec.Origin] {
			continue
		}
		mt, ok := cachestore.ModTime(rec.Origin)
		if !ok || lastWrite.IsZero() || !mt.Before(lastWrite) {
			continue
		}
		kept[rec.Origin] = true
		retained = append(retained, rec)
	}

	toScan := files[:0]
	for _, f := range files {
		if !kept[f] {
			toScan = append(toScan, f)
		}
	}

	fresh, err := idx.Scan(ctx, toScan, p)
	if err != nil {
		return nil, err
	}
	return dedupe(append(retained, fresh...)), nil
}

// Stale reports whether the cache must be rebuilt from scratch: it is
// missing, or the alias, ignore or config file was modified after it.
// Trigger files that do not exist are not considered.
func (idx *Indexer) Stale() bool {
	if _, ok := cachestore.ModTime(idx.opts.CacheFile); !ok {
		return true
	}
	for _, trigger := range []string{idx.opts.AliasFile, idx.opts.IgnoreFile, idx.opts.ConfigFile} {
		if trigger == "" {
			continue
		}
		if _, ok := cachestore.ModTime(trigger); !ok {
			continue
		}
		if cachestore.FileHasChanged(trigger, idx.opts.CacheFile) {
			return true
		}
	}
	return false
}

// Load returns the application records.
//
// A fresh cache is returned right away with priorities recomputed from p,
// and an incremental refresh is written back in the background. A stale,
// missing or empty cache causes a full scan before returning; its result
// is written back in the background as well.
func (idx *Indexer) Load(ctx context.Context, p Params) ([]*candidate.Record, error) {
	if !idx.Stale() {
		recs, err := cachestore.Read[[]*candidate.Record](idx.opts.CacheFile)
		switch {
		case err != nil:
			idx.log.Warn("failed to read cache", "path", idx.opts.CacheFile, "error", err)
		case len(recs) > 0:
			idx.opts.Metrics.CacheLoad("fresh")
			idx.log.Debug("loading cached apps", "count", len(recs))

			Reprioritize(recs, p)
			lastWrite, _ := cachestore.ModTime(idx.opts.CacheFile)
			cached := slices.Clone(recs)
			idx.detach(func(bgCtx context.Context) {
				start := time.Now()
				refreshed, err := idx.Refresh(bgCtx, cached, lastWrite, p)
				if err != nil {
					idx.log.Warn("background refresh failed", "error", err)
					return
				}
				idx.opts.Metrics.ObserveIndex("refresh", time.Since(start), len(refreshed))
				idx.writeBack(refreshed)
			})
			return recs, nil
		}
		idx.opts.Metrics.CacheLoad("missing")
	} else {
		idx.opts.Metrics.CacheLoad("stale")
	}

	idx.log.Debug("updating cached apps")
	start := time.Now()
	recs, err := idx.Scan(ctx, idx.Files(), p)
	if err != nil {
		return nil, err
	}
	idx.opts.Metrics.ObserveIndex("full", time.Since(start), len(recs))

	scanned := slices.Clone(recs)
	idx.detach(func(context.Context) { idx.writeBack(scanned) })
	return recs, nil
}

func (idx *Indexer) writeBack(recs []*candidate.Record) {
	dir := filepath.Dir(idx.opts.CacheFile)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		idx.log.Error("failed to write cache", "error", apperr.DirCreate(dir, err))
		return
	}
	if err := cachestore.Write(idx.opts.CacheFile, recs); err != nil {
		idx.log.Error("failed to write cache", "error", err)
	}
}

// detach runs fn in the background. Nobody waits for its result; Wait and
// Stop exist for shutdown and tests.
func (idx *Indexer) detach(fn func(ctx context.Context)) {
	idx.mu.Lock()
	ctx := idx.bgCtx
	idx.bgWg.Add(1)
	idx.mu.Unlock()

	go func() {
		defer idx.bgWg.Done()
		fn(ctx)
	}()
}

// Wait blocks until every background task has finished.
func (idx *Indexer) Wait() {
	idx.bgWg.Wait()
}

// Stop cancels running background refreshes and waits for them.
func (idx *Indexer) Stop() {
	idx.mu.Lock()
	idx.bgCancel()
	idx.bgCtx, idx.bgCancel = context.WithCancel(context.Background())
	idx.mu.Unlock()
	idx.bgWg.Wait()
}
