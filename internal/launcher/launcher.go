// Package launcher turns launcher definitions into the candidate snapshot
// the search pipeline works on.
package launcher

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/indexer"
	"github.com/0xADE/ade-launchd/internal/indexer/executable"
	"github.com/0xADE/ade-launchd/internal/indexer/overlay"
	"github.com/0xADE/ade-launchd/internal/logging"
	"github.com/0xADE/ade-launchd/internal/metrics"
	"github.com/0xADE/ade-launchd/internal/priority"
	"github.com/0xADE/ade-launchd/internal/usage"
)

type Options struct {
	LaunchersFile string
	Indexer       *indexer.Indexer
	Counter       *usage.Counter
	// PathDirs are scanned by executables launchers.
	PathDirs []string
	Icons    indexer.IconResolver
	// Overrides provide the visibility decision of calculation launchers,
	// keyed by launcher name. A calculation launcher without one is skipped.
	Overrides map[string]candidate.ShowFunc
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// Engine builds snapshots and records launches.
type Engine struct {
	opts Options
	log  *logging.Logger

	// serializes read-modify-write of the counts file
	countMu sync.Mutex
}

func New(opts Options) *Engine {
	return &Engine{opts: opts, log: opts.Logger.OrNoop().Component("launcher")}
}

// Load reads the launcher definitions and produces a new snapshot. A
// launcher that fails to load is logged and left out; only a cancelled
// context or an unreadable launchers file fails the whole load.
func (e *Engine) Load(ctx context.Context) (*candidate.Snapshot, error) {
	start := time.Now()
	defs, err := LoadDefinitions(e.opts.LaunchersFile)
	if err != nil {
		return nil, err
	}

	counts := usage.Table{}
	if e.opts.Counter != nil {
		e.countMu.Lock()
		counts, err = e.opts.Counter.Counts()
		e.countMu.Unlock()
		if err != nil {
			e.log.Warn("failed to read usage counts", "error", err)
			counts = usage.Table{}
		}
	}
	decimals := counts.Decimals()

	slices.SortStableFunc(defs, func(a, b Definition) int { return cmp.Compare(a.Priority, b.Priority) })

	var (
		items []candidate.Candidate
		modes []candidate.Mode
	)
	for _, def := range defs {
		l, err := e.launcher(def)
		if err != nil {
			e.log.Warn("skipping launcher", "name", def.Name, "type", def.Type, "error", err)
			continue
		}
		if l.Alias != "" && l.Name != "" {
			modes = append(modes, candidate.Mode{Alias: l.Alias, Name: l.Name})
		}

		built, err := e.build(ctx, def, l, counts, decimals)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.Warn("failed to load launcher", "name", def.Name, "error", err)
			continue
		}
		items = append(items, built...)
	}

	if len(counts) == 0 && e.opts.Counter != nil {
		e.seed(items)
	}

	e.opts.Metrics.ObserveIndex("snapshot", time.Since(start), len(items))
	e.log.Info("snapshot built", "candidates", len(items), "modes", len(modes))
	return candidate.NewSnapshot(items, modes), nil
}

func (e *Engine) launcher(def Definition) (*candidate.Launcher, error) {
	kind, ok := candidate.ParseKind(def.Type)
	if !ok {
		return nil, apperr.UnsupportedSource(def.Type)
	}
	home, err := def.home()
	if err != nil {
		return nil, apperr.FileParse(e.opts.LaunchersFile, err)
	}
	return &candidate.Launcher{
		Name:        def.Name,
		DisplayName: def.DisplayName,
		Alias:       def.Alias,
		Kind:        kind,
		Priority:    def.Priority,
		Home:        home,
		UseKeywords: def.useKeywords(),
		Icon:        e.resolve(def.Args.Icon),
		Method:      def.method(),
		Exit:        def.exit(),
		Engine:      EngineTemplate(def.Args.SearchEngine),
	}, nil
}

func (e *Engine) build(ctx context.Context, def Definition, l *candidate.Launcher, counts usage.Table, decimals int32) ([]candidate.Candidate, error) {
	wrap := func(recs []*candidate.Record) []candidate.Candidate {
		out := make([]candidate.Candidate, len(recs))
		for i, r := range recs {
			out[i] = candidate.Candidate{Launcher: l, Record: r}
		}
		return out
	}

	switch l.Kind {
	case candidate.App:
		if e.opts.Indexer == nil {
			return nil, nil
		}
		recs, err := e.opts.Indexer.Load(ctx, indexer.Params{
			BasePriority: l.Priority,
			UseKeywords:  l.UseKeywords,
			Counts:       counts,
			Decimals:     decimals,
		})
		if err != nil {
			return nil, err
		}
		return wrap(recs), nil

	case candidate.Command:
		names := make([]string, 0, len(def.Args.Commands))
		for name := range def.Args.Commands {
			names = append(names, name)
		}
		slices.Sort(names)
		recs := make([]*candidate.Record, 0, len(names))
		for _, name := range names {
			cmd := def.Args.Commands[name]
			recs = append(recs, &candidate.Record{
				Name:         name,
				Exec:         cmd.Exec,
				Icon:         e.resolve(cmd.Icon),
				SearchString: overlay.ConstructSearch(name, cmd.SearchString, l.UseKeywords),
				Priority:     priority.Compute(l.Priority, counts.Get(cmd.Exec), decimals),
				Terminal:     cmd.Terminal,
			})
		}
		return wrap(recs), nil

	case candidate.Executables:
		recs := executable.Records(e.opts.PathDirs)
		for _, r := range recs {
			r.Priority = priority.Compute(l.Priority, counts.Get(r.Exec), decimals)
		}
		return wrap(recs), nil

	case candidate.Web:
		return []candidate.Candidate{{Launcher: l}}, nil

	case candidate.Calc:
		show := e.opts.Overrides[def.Name]
		if show == nil {
			return nil, apperr.UnsupportedSource(def.Type)
		}
		return []candidate.Candidate{{Launcher: l, Show: show}}, nil
	}
	return nil, apperr.UnsupportedSource(def.Type)
}

func (e *Engine) resolve(icon string) string {
	if e.opts.Icons == nil || icon == "" {
		return icon
	}
	return e.opts.Icons.Resolve(icon)
}

func (e *Engine) seed(items []candidate.Candidate) {
	var keys []string
	for i := range items {
		switch items[i].Launcher.Kind {
		case candidate.App, candidate.Command:
			if exec := items[i].Exec(); exec != "" {
				keys = append(keys, exec)
			}
		}
	}
	e.countMu.Lock()
	defer e.countMu.Unlock()
	if err := e.opts.Counter.Seed(keys); err != nil {
		e.log.Warn("failed to seed usage counts", "error", err)
	}
}

// RecordLaunch bumps the usage count of exec. Failures are logged only; a
// launch never fails because of its statistics.
func (e *Engine) RecordLaunch(exec string) {
	if e.opts.Counter == nil || exec == "" {
		return
	}
	e.countMu.Lock()
	defer e.countMu.Unlock()
	if err := e.opts.Counter.Increment(exec); err != nil {
		e.log.Warn("failed to record launch", "exec", exec, "error", err)
	}
}
