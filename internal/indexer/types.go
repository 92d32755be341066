package indexer

import (
	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/logging"
	"github.com/0xADE/ade-launchd/internal/metrics"
	"github.com/0xADE/ade-launchd/internal/priority"
	"github.com/0xADE/ade-launchd/internal/usage"
)

// IconResolver maps an icon name from a manifest to a file path. An empty
// result means the icon could not be found.
type IconResolver interface {
	Resolve(name string) string
}

// Options wires an Indexer to its files and collaborators.
type Options struct {
	Dirs     []string // application directories, see desktop.Dirs
	LocalDir string   // the directory whose entries override all others

	AliasFile  string
	IgnoreFile string
	ConfigFile string
	CacheFile  string

	Workers int
	Logger  *logging.Logger
	Icons   IconResolver
	Metrics *metrics.Metrics
}

// Params are the per-launcher inputs of an indexing pass.
type Params struct {
	BasePriority float32
	UseKeywords  bool
	Counts       usage.Table
	Decimals     int32
}

func (p Params) priorityOf(exec string) float32 {
	return priority.Compute(p.BasePriority, p.Counts.Get(exec), p.Decimals)
}

// Reprioritize recomputes the priority of every record from p.
func Reprioritize(recs []*candidate.Record, p Params) {
	for _, r := range recs {
		r.Priority = p.priorityOf(r.Exec)
	}
}

// dedupe keeps the first record of every key.
func dedupe(recs []*candidate.Record) []*candidate.Record {
	seen := make(map[candidate.Key]bool, len(recs))
	out := make([]*candidate.Record, 0, len(recs))
	for _, r := range recs {
		if r == nil || seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}
