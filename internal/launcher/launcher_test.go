package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/indexer"
	"github.com/0xADE/ade-launchd/internal/usage"
)

const launchersYAML = `
- name: Web Search
  alias: web
  display_name: Search the web
  type: web_launcher
  priority: 100
  home: persist
  args:
    search_engine: duckduckgo
- name: App Launcher
  display_name: Apps
  type: app_launcher
  priority: 1
  args:
    use_keywords: false
- name: System
  alias: sys
  type: command
  priority: 2
  args:
    commands:
      Shutdown:
        exec: systemctl poweroff
        search_string: power;off
      Reboot:
        exec: systemctl reboot
- name: Calculator
  type: calculation
  priority: 0
  home: only_home
- name: Binaries
  alias: exe
  type: executables
  priority: 5
- name: Weather
  type: weather
  priority: 3
`

var _ = Describe("Engine", func() {
	var (
		ctx     context.Context
		root    string
		apps    string
		bin     string
		counter *usage.Counter
		idx     *indexer.Indexer
		opts    Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		apps = filepath.Join(root, "applications")
		bin = filepath.Join(root, "bin")
		Expect(os.MkdirAll(apps, 0o755)).To(Succeed())
		Expect(os.MkdirAll(bin, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(apps, "firefox.desktop"),
			[]byte("[Desktop Entry]\nName=Firefox\nExec=firefox\nKeywords=browser\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(bin, "htop"), nil, 0o755)).To(Succeed())

		var err error
		counter, err = usage.NewCounter(filepath.Join(root, "data"))
		Expect(err).NotTo(HaveOccurred())

		idx = indexer.New(indexer.Options{
			Dirs:      []string{apps},
			LocalDir:  filepath.Join(root, "local"),
			CacheFile: filepath.Join(root, "cache", "desktop_files.bin"),
		})
		opts = Options{
			LaunchersFile: filepath.Join(root, "launchers.yaml"),
			Indexer:       idx,
			Counter:       counter,
			PathDirs:      []string{bin},
		}
	})

	AfterEach(func() {
		idx.Stop()
	})

	byName := func(s *candidate.Snapshot) map[string]*candidate.Candidate {
		out := map[string]*candidate.Candidate{}
		for i := range s.Len() {
			out[s.At(i).DisplayName()] = s.At(i)
		}
		return out
	}

	Context("with a launchers file", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(opts.LaunchersFile, []byte(launchersYAML), 0o644)).To(Succeed())
			opts.Overrides = map[string]candidate.ShowFunc{
				"Calculator": func(q string) (bool, bool) { return q == "2+2", true },
			}
		})

		It("builds candidates of every supported type in launcher priority order", func() {
			snap, err := New(opts).Load(ctx)
			Expect(err).NotTo(HaveOccurred())

			got := byName(snap)
			Expect(got).To(HaveKey("Firefox"))
			Expect(got).To(HaveKey("Shutdown"))
			Expect(got).To(HaveKey("Reboot"))
			Expect(got).To(HaveKey("htop"))
			Expect(got).To(HaveKey("Search the web"))
			Expect(snap.Len()).To(Equal(6))

			Expect(snap.At(0).Launcher.Kind).To(Equal(candidate.Calc))
			Expect(snap.At(snap.Len() - 1).Launcher.Kind).To(Equal(candidate.Web))

			Expect(got["Firefox"].Search()).To(Equal("firefox"))
			Expect(got["Firefox"].Priority()).To(BeNumerically("~", 1.99, 1e-5))
			Expect(got["Shutdown"].Search()).To(Equal("shutdown;power;off"))
			Expect(got["Search the web"].Home()).To(Equal(candidate.Persist))
			Expect(got["Search the web"].Exec()).To(Equal(EngineTemplate("duckduckgo")))

			Expect(snap.Modes()).To(Equal([]candidate.Mode{
				{Alias: "sys", Name: "System"},
				{Alias: "exe", Name: "Binaries"},
				{Alias: "web", Name: "Web Search"},
			}))
		})

		It("skips calculation launchers without an override", func() {
			opts.Overrides = nil
			snap, err := New(opts).Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			for i := range snap.Len() {
				Expect(snap.At(i).Launcher.Kind).NotTo(Equal(candidate.Calc))
			}
		})

		It("seeds empty usage counts with the known commands", func() {
			_, err := New(opts).Load(ctx)
			Expect(err).NotTo(HaveOccurred())

			t, err := counter.Counts()
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(usage.Table{"firefox": 0, "systemctl poweroff": 0, "systemctl reboot": 0}))
		})

		It("ranks recorded launches earlier on the next load", func() {
			e := New(opts)
			_, err := e.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			idx.Wait()

			e.RecordLaunch("systemctl reboot")
			snap, err := e.Load(ctx)
			Expect(err).NotTo(HaveOccurred())

			got := byName(snap)
			Expect(got["Reboot"].Priority()).To(BeNumerically("<", got["Shutdown"].Priority()))
			Expect(got["Reboot"].Priority()).To(BeNumerically(">", 2))
		})
	})

	It("falls back to the default launchers", func() {
		snap, err := New(opts).Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		got := byName(snap)
		Expect(got).To(HaveKey("Firefox"))
		Expect(got).To(HaveKey("htop"))
		Expect(snap.Modes()).To(ConsistOf(candidate.Mode{Alias: "exe", Name: "Executables"}))
	})

	It("reports a malformed launchers file", func() {
		Expect(os.WriteFile(opts.LaunchersFile, []byte("- name: [unterminated"), 0o644)).To(Succeed())
		_, err := New(opts).Load(ctx)
		Expect(errors.Is(err, apperr.ErrFileParse)).To(BeTrue())
	})

	It("ignores launch recording failures", func() {
		opts.Counter = usage.NewCounterAt(filepath.Join(root, "missing", "dir", "counts.bin"))
		Expect(func() { New(opts).RecordLaunch("firefox") }).NotTo(Panic())
	})
})

var _ = Describe("SearchURL", func() {
	It("fills the template", func() {
		Expect(SearchURL(EngineTemplate("google"), "go generics")).To(Equal("https://www.google.com/search?q=go+generics"))
	})

	It("passes URLs through", func() {
		Expect(SearchURL(EngineTemplate("google"), "https://go.dev")).To(Equal("https://go.dev"))
	})

	It("accepts custom templates", func() {
		Expect(EngineTemplate("https://x.test/?s={keyword}")).To(Equal("https://x.test/?s={keyword}"))
		Expect(EngineTemplate("")).To(Equal(EngineTemplate("duckduckgo")))
	})
})
