package search

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launchd/internal/candidate"
)

// manualSpawner queues tasks until the test runs them.
type manualSpawner struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *manualSpawner) Go(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, fn)
}

func (s *manualSpawner) take() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks
	s.tasks = nil
	return t
}

type recorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *recorder) add(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.results))
	for i, res := range r.results {
		out[i] = res.Query
	}
	return out
}

var _ = Describe("Pipeline", func() {
	var (
		apps    *candidate.Launcher
		web     *candidate.Launcher
		store   *candidate.Store
		spawner *manualSpawner
		rec     *recorder
		p       *Pipeline
	)

	BeforeEach(func() {
		apps = &candidate.Launcher{Name: "Apps", Kind: candidate.App, Priority: 1}
		web = &candidate.Launcher{Name: "Web", DisplayName: "Web Search", Alias: "web", Kind: candidate.Web, Priority: 2, Home: candidate.Persist}
		store = candidate.NewStore(candidate.NewSnapshot([]candidate.Candidate{
			app(apps, "alacritty", 1.9),
			app(apps, "abiword", 1.5),
			app(apps, "firefox", 1.2),
			{Launcher: web},
		}, []candidate.Mode{{Alias: "web", Name: "Web"}}))
		spawner = &manualSpawner{}
		rec = &recorder{}
		p = New(store, Options{Workers: 2, Spawner: spawner})
		p.OnResult(rec.add)
	})

	AfterEach(func() {
		p.Close()
	})

	Context("when a query is superseded before it completes", func() {
		It("publishes only the newer query when the old task runs last", func() {
			p.Submit("a")
			p.Submit("AB")
			tasks := spawner.take()
			Expect(tasks).To(HaveLen(2))

			tasks[1]()
			tasks[0]()

			Expect(rec.queries()).To(Equal([]string{"ab"}))
			cur, ok := p.Current()
			Expect(ok).To(BeTrue())
			Expect(cur.Query).To(Equal("ab"))
		})

		It("publishes only the newer query when the old task runs first", func() {
			p.Submit("a")
			p.Submit("ab")
			tasks := spawner.take()

			tasks[0]()
			tasks[1]()

			Expect(rec.queries()).To(Equal([]string{"ab"}))
		})
	})

	It("does not recompute an unchanged query", func() {
		p.Submit("fire")
		for _, t := range spawner.take() {
			t()
		}
		p.Submit("FIRE")
		Expect(spawner.take()).To(BeEmpty())
		Expect(rec.queries()).To(Equal([]string{"fire"}))
	})

	It("drops a pending computation when the query returns to the applied one", func() {
		p.Submit("fire")
		for _, t := range spawner.take() {
			t()
		}
		p.Submit("fires")
		p.Submit("fire")
		for _, t := range spawner.take() {
			t()
		}
		Expect(rec.queries()).To(Equal([]string{"fire"}))
		Expect(p.Settle(context.Background())).To(Succeed())
	})

	It("resets the cursor and reports a changed first result", func() {
		p.Submit("a")
		for _, t := range spawner.take() {
			t()
		}
		cur, _ := p.Current()
		Expect(cur.FirstChanged).To(BeTrue())
		Expect(cur.At(0).DisplayName()).To(Equal("abiword"))
		Expect(p.Select(1)).To(BeTrue())
		Expect(p.Select(99)).To(BeFalse())

		p.Submit("ab")
		for _, t := range spawner.take() {
			t()
		}
		cur, _ = p.Current()
		Expect(p.Selected()).To(BeZero())
		Expect(cur.At(0).DisplayName()).To(Equal("abiword"))
		Expect(cur.FirstChanged).To(BeFalse())
	})

	It("recomputes when the mode changes", func() {
		p.Submit("we")
		for _, t := range spawner.take() {
			t()
		}
		p.SetMode("web")
		Expect(p.Mode()).To(Equal("web"))
		for _, t := range spawner.take() {
			t()
		}
		cur, _ := p.Current()
		Expect(cur.Mode).To(Equal("web"))
		Expect(cur.Len()).To(Equal(1))
		Expect(cur.At(0).Launcher).To(BeIdenticalTo(web))
	})

	It("picks up a new snapshot on refresh", func() {
		p.Submit("fire")
		for _, t := range spawner.take() {
			t()
		}
		store.Publish(candidate.NewSnapshot([]candidate.Candidate{
			app(apps, "firefox-esr", 1),
			app(apps, "firefox", 1.1),
		}, nil))
		p.Refresh()
		for _, t := range spawner.take() {
			t()
		}
		cur, _ := p.Current()
		Expect(cur.Snapshot).To(BeIdenticalTo(store.Snapshot()))
		Expect(cur.Len()).To(Equal(2))
	})

	Describe("Settle", func() {
		It("waits for the computation in flight", func() {
			p.Submit("fire")
			done := make(chan error, 1)
			go func() { done <- p.Settle(context.Background()) }()
			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

			for _, t := range spawner.take() {
				t()
			}
			Eventually(done).Should(Receive(BeNil()))
		})

		It("gives up when the context ends", func() {
			p.Submit("fire")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			Expect(p.Settle(ctx)).To(MatchError(context.DeadlineExceeded))
		})
	})

	It("runs on real goroutines", func() {
		g := New(store, Options{Workers: 2, Spawner: NewPool(2)})
		defer g.Close()
		for _, q := range []string{"f", "fi", "fir", "fire"} {
			g.Submit(q)
		}
		Expect(g.Settle(context.Background())).To(Succeed())
		cur, ok := g.Current()
		Expect(ok).To(BeTrue())
		Expect(cur.Query).To(Equal("fire"))
		Expect(cur.At(0).DisplayName()).To(Equal("firefox"))
	})
})
