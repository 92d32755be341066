package search

import (
	"context"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/fuzzy"
	"github.com/0xADE/ade-launchd/internal/priority"
	"github.com/0xADE/ade-launchd/internal/usage"
)

func app(l *candidate.Launcher, name string, prio float32) candidate.Candidate {
	return candidate.Candidate{Launcher: l, Record: &candidate.Record{
		Name: name, Exec: name, SearchString: fmt.Sprintf("%s;", name), Priority: prio,
	}}
}

func names(snap *candidate.Snapshot, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = snap.At(j).DisplayName()
	}
	return out
}

var _ = Describe("Filter", func() {
	var (
		ctx  context.Context
		apps *candidate.Launcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		apps = &candidate.Launcher{Name: "Apps", Kind: candidate.App, Priority: 1}
	})

	It("never lets a non-matching candidate through, whatever its priority", func() {
		counts := usage.Table{"firefox": 0}
		for range 100 {
			counts["htop"]++
		}
		usage.Compress(counts)
		d := counts.Decimals()

		snap := candidate.NewSnapshot([]candidate.Candidate{
			app(apps, "firefox", priority.Compute(1, counts.Get("firefox"), d)),
			app(apps, "htop", priority.Compute(0, counts.Get("htop"), d)),
		}, nil)

		idx, err := Filter(ctx, snap, "firefox", AllMode, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(snap, idx)).To(Equal([]string{"firefox"}))
	})

	It("sorts by ascending priority", func() {
		snap := candidate.NewSnapshot([]candidate.Candidate{
			app(apps, "code", 1.99),
			app(apps, "code-oss", 1.5),
			app(apps, "vscode", 0.2),
		}, nil)
		idx, err := Filter(ctx, snap, "code", AllMode, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(snap, idx)).To(Equal([]string{"vscode", "code-oss", "code"}))
	})

	It("does not panic on NaN priorities", func() {
		nan := float32(math.NaN())
		snap := candidate.NewSnapshot([]candidate.Candidate{
			app(apps, "a1", nan),
			app(apps, "a2", 0.5),
			app(apps, "a3", nan),
			app(apps, "a4", 0.1),
		}, nil)
		var idx []int
		Expect(func() {
			var err error
			idx, err = Filter(ctx, snap, "a", AllMode, 1)
			Expect(err).NotTo(HaveOccurred())
		}).NotTo(Panic())
		Expect(idx).To(ConsistOf(0, 1, 2, 3))
	})

	It("evaluates large snapshots in parallel chunks", func() {
		items := make([]candidate.Candidate, 0, 5000)
		for i := range 5000 {
			items = append(items, app(apps, fmt.Sprintf("item-%04d", i), float32(5000-i)))
		}
		snap := candidate.NewSnapshot(items, nil)

		var want []int
		for i := 4999; i >= 0; i-- {
			if fuzzy.Match(items[i].Search(), "item-49") {
				want = append(want, i)
			}
		}
		Expect(want).NotTo(BeEmpty())

		idx, err := Filter(ctx, snap, "item-49", AllMode, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(want))
	})

	It("returns the context error when cancelled", func() {
		snap := candidate.NewSnapshot([]candidate.Candidate{app(apps, "a", 1)}, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Filter(cctx, snap, "a", AllMode, 1)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Visible", func() {
	show := func(h candidate.HomeType) *candidate.Candidate {
		l := &candidate.Launcher{Kind: candidate.App, Priority: 2, Home: h}
		return &candidate.Candidate{Launcher: l, Record: &candidate.Record{SearchString: "firefox"}}
	}

	DescribeTable("home types",
		func(h candidate.HomeType, query string, want bool) {
			Expect(Visible(show(h), query, AllMode)).To(Equal(want))
		},
		Entry("search hidden on home", candidate.Search, "", false),
		Entry("search shown on match", candidate.Search, "fire", true),
		Entry("search hidden on mismatch", candidate.Search, "zzz", false),
		Entry("only home shown on home", candidate.OnlyHome, "", true),
		Entry("only home hidden on search", candidate.OnlyHome, "fire", false),
		Entry("home shown on home", candidate.Home, "", true),
		Entry("home shown on match", candidate.Home, "fire", true),
		Entry("persist shown on mismatch", candidate.Persist, "zzz", true),
	)

	It("scopes candidates to the active mode", func() {
		web := &candidate.Candidate{Launcher: &candidate.Launcher{Kind: candidate.Web, Alias: "web", Priority: 5, DisplayName: "Web"}}
		Expect(Visible(web, "web", "web")).To(BeTrue())
		Expect(Visible(web, "web", "apps")).To(BeFalse())
		Expect(Visible(web, "web", AllMode)).To(BeTrue())
	})

	It("lets high-priority universal candidates into specific modes", func() {
		structural := &candidate.Candidate{Launcher: &candidate.Launcher{Kind: candidate.App, Priority: 0.5},
			Record: &candidate.Record{SearchString: "settings"}}
		content := &candidate.Candidate{Launcher: &candidate.Launcher{Kind: candidate.App, Priority: 1},
			Record: &candidate.Record{SearchString: "settings"}}
		Expect(Visible(structural, "set", "web")).To(BeTrue())
		Expect(Visible(content, "set", "web")).To(BeFalse())
	})

	It("lets an override decide before the home rules", func() {
		calc := &candidate.Candidate{
			Launcher: &candidate.Launcher{Kind: candidate.Calc, Home: candidate.OnlyHome},
			Show:     func(q string) (bool, bool) { return q == "1+1", true },
		}
		Expect(Visible(calc, "1+1", AllMode)).To(BeTrue())
		Expect(Visible(calc, "", AllMode)).To(BeFalse())
	})
})
