// Package search answers queries against the current candidate snapshot.
// Every query runs as a cancelable background computation; a newer query
// supersedes the one in flight, whose result is never published.
package search

import (
	"context"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/logging"
	"github.com/0xADE/ade-launchd/internal/metrics"
)

// Source provides the snapshot to search. *candidate.Store satisfies it.
type Source interface {
	Snapshot() *candidate.Snapshot
}

// Result is a published ordering. Indices point into Snapshot.
type Result struct {
	Indices  []int
	Query    string
	Mode     string
	Snapshot *candidate.Snapshot
	// FirstChanged is set when the top candidate differs from the previous
	// result, so secondary inputs for it need to be prepared.
	FirstChanged bool
}

// Len returns the number of results.
func (r Result) Len() int { return len(r.Indices) }

// At returns the candidate at result position pos.
func (r Result) At(pos int) *candidate.Candidate {
	return r.Snapshot.At(r.Indices[pos])
}

func (r Result) first() *candidate.Candidate {
	if len(r.Indices) == 0 || r.Snapshot == nil {
		return nil
	}
	return r.At(0)
}

type Options struct {
	Workers int
	Spawner Spawner
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

type flight struct {
	query string
	mode  string
	snap  *candidate.Snapshot
	done  chan struct{}
}

// Pipeline is the query state of one session.
type Pipeline struct {
	src  Source
	opts Options
	log  *logging.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	inflight  *flight
	query     string
	mode      string
	current   Result
	applied   bool
	selected  int
	observers []func(Result)

	pubMu     sync.Mutex
	delivered uint64
}

func New(src Source, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Spawner == nil {
		opts.Spawner = GoSpawner{}
	}
	return &Pipeline{
		src:  src,
		opts: opts,
		log:  opts.Logger.OrNoop().Component("search"),
		mode: AllMode,
	}
}

// OnResult registers fn to receive every published result.
func (p *Pipeline) OnResult(fn func(Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Submit starts a search for query. It returns immediately.
//
// A query equal to the last applied one, on the same snapshot and mode,
// does not recompute; it still cancels a different computation in flight
// so that the applied result stays the visible one.
func (p *Pipeline) Submit(query string) {
	q := strings.ToLower(query)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = q
	snap := p.src.Snapshot()
	if f := p.inflight; f != nil && f.query == q && f.mode == p.mode && f.snap == snap {
		return
	}
	if p.applied && p.current.Query == q && p.current.Mode == p.mode && p.current.Snapshot == snap {
		p.supersedeLocked()
		return
	}
	p.startLocked(q, p.mode, snap)
}

// SetMode switches the session into mode and recomputes the last query.
// An empty mode is the universal one.
func (p *Pipeline) SetMode(mode string) {
	if mode == "" {
		mode = AllMode
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if mode == p.mode {
		return
	}
	p.mode = mode
	p.startLocked(p.query, mode, p.src.Snapshot())
}

// Mode returns the active mode.
func (p *Pipeline) Mode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Refresh recomputes the last query against the latest snapshot, e.g.
// after a reindex.
func (p *Pipeline) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked(p.query, p.mode, p.src.Snapshot())
}

// Current returns the last published result.
func (p *Pipeline) Current() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.applied
}

// Selected returns the cursor position; publishing resets it to 0.
func (p *Pipeline) Selected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Select moves the cursor. It reports false when pos is out of range.
func (p *Pipeline) Select(pos int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 || pos >= p.current.Len() {
		return false
	}
	p.selected = pos
	return true
}

// Settle blocks until no computation is in flight or ctx is done.
func (p *Pipeline) Settle(ctx context.Context) error {
	for {
		p.mu.Lock()
		f := p.inflight
		p.mu.Unlock()
		if f == nil {
			return nil
		}
		select {
		case <-f.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels the computation in flight.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supersedeLocked()
}

func (p *Pipeline) supersedeLocked() {
	if p.inflight == nil {
		return
	}
	p.cancel()
	close(p.inflight.done)
	p.inflight = nil
	p.cancel = nil
	p.gen++
	p.opts.Metrics.SearchSuperseded()
}

func (p *Pipeline) startLocked(query, mode string, snap *candidate.Snapshot) {
	p.supersedeLocked()

	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.inflight = &flight{query: query, mode: mode, snap: snap, done: make(chan struct{})}

	start := time.Now()
	p.opts.Spawner.Go(func() {
		p.run(ctx, gen, query, mode, snap, start)
	})
}

func (p *Pipeline) run(ctx context.Context, gen uint64, query, mode string, snap *candidate.Snapshot, start time.Time) {
	if ctx.Err() != nil {
		return
	}
	indices, err := Filter(ctx, snap, query, mode, p.opts.Workers)
	if err != nil {
		return
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	prev := p.current.first()
	res := Result{Indices: indices, Query: query, Mode: mode, Snapshot: snap}
	res.FirstChanged = !p.applied || res.first() != prev

	p.current = res
	p.applied = true
	p.selected = 0
	p.cancel()
	p.cancel = nil
	close(p.inflight.done)
	p.inflight = nil
	observers := slices.Clone(p.observers)
	p.mu.Unlock()

	p.opts.Metrics.SearchPublished(time.Since(start))
	p.log.Debug("search published", "query", query, "mode", mode, "results", len(indices))

	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	if gen <= p.delivered {
		return
	}
	p.delivered = gen
	for _, fn := range observers {
		fn(res)
	}
}
