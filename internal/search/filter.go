package search

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/fuzzy"
)

// AllMode is the universal mode in which every launcher is visible.
const AllMode = "all"

// universalCutoff is the launcher priority below which candidates of the
// universal mode also show inside specific modes.
const universalCutoff float32 = 1.0

const (
	minChunk    = 256
	cancelCheck = 64
)

// Visible applies the inclusion rules to one candidate. query must be
// lowercase; an empty query is the home view.
func Visible(c *candidate.Candidate, query, mode string) bool {
	if mode != AllMode && c.Mode() != mode {
		if c.Mode() != "" || c.Launcher.Priority >= universalCutoff {
			return false
		}
	}

	home := c.Home()
	if home == candidate.Persist {
		return true
	}

	if show, ok := c.BasedShow(query); ok {
		return show
	}

	isHome := query == ""
	if !isHome && home == candidate.OnlyHome {
		return false
	}
	if isHome && home == candidate.Search {
		return false
	}

	return fuzzy.Match(c.Search(), query)
}

type hit struct {
	index    int
	priority float32
}

// comparePriority orders ascending and treats NaN as equal to anything.
func comparePriority(a, b float32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Filter returns the indices of the visible candidates of snap, ordered by
// ascending priority. Candidates are evaluated in parallel chunks; ties
// keep snapshot order.
func Filter(ctx context.Context, snap *candidate.Snapshot, query, mode string, workers int) ([]int, error) {
	n := snap.Len()
	if n == 0 {
		return []int{}, ctx.Err()
	}
	workers = max(workers, 1)
	size := max(minChunk, (n+workers-1)/workers)
	chunks := (n + size - 1) / size

	parts := make([][]hit, chunks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range chunks {
		g.Go(func() error {
			lo, hi := c*size, min((c+1)*size, n)
			var out []hit
			for i := lo; i < hi; i++ {
				if (i-lo)%cancelCheck == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				cand := snap.At(i)
				if Visible(cand, query, mode) {
					out = append(out, hit{index: i, priority: cand.Priority()})
				}
			}
			parts[c] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := slices.Concat(parts...)
	slices.SortStableFunc(hits, func(a, b hit) int {
		if r := comparePriority(a.priority, b.priority); r != 0 {
			return r
		}
		return cmp.Compare(a.index, b.index)
	})

	indices := make([]int, len(hits))
	for i, h := range hits {
		indices[i] = h.index
	}
	return indices, nil
}
