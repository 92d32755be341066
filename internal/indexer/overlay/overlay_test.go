package overlay

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
)

func ptr(s string) *string { return &s }

var _ = Describe("IgnoreList", func() {
	It("matches globs case-insensitively", func() {
		l := ParseIgnore([]byte("Avahi*\n\n  *Settings  \nvim\n"))
		Expect(l.Len()).To(Equal(3))
		Expect(l.Ignored("Avahi SSH Server Browser")).To(BeTrue())
		Expect(l.Ignored("GNOME settings")).To(BeTrue())
		Expect(l.Ignored("VIM")).To(BeTrue())
		Expect(l.Ignored("Neovim")).To(BeFalse())
	})

	It("treats a missing file as empty", func() {
		l, err := LoadIgnore(filepath.Join(GinkgoT().TempDir(), "ignore"))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Ignored("anything")).To(BeFalse())
	})

	It("surfaces other read errors", func() {
		_, err := LoadIgnore(GinkgoT().TempDir())
		Expect(errors.Is(err, apperr.ErrFileRead)).To(BeTrue())
	})
})

var _ = Describe("LoadAliases", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("treats a missing file as empty", func() {
		a, err := LoadAliases(filepath.Join(dir, "alias.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeEmpty())
	})

	It("decodes overrides", func() {
		path := filepath.Join(dir, "alias.json")
		Expect(os.WriteFile(path, []byte(`{
			"Firefox": {
				"name": "Web",
				"keywords": "browser",
				"add_actions": [{"name": "Profile", "exec": "firefox -P"}],
				"variables": [{"string_input": "URL"}]
			}
		}`), 0o644)).To(Succeed())

		a, err := LoadAliases(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(HaveKey("Firefox"))
		Expect(*a["Firefox"].Name).To(Equal("Web"))
		Expect(a["Firefox"].AddActions).To(HaveLen(1))
		Expect(a["Firefox"].Variables).To(Equal([]candidate.Variable{{Kind: candidate.StringInput, Name: "URL"}}))
	})

	It("reports malformed JSON as a parse error", func() {
		path := filepath.Join(dir, "alias.json")
		Expect(os.WriteFile(path, []byte(`{"x": [`), 0o644)).To(Succeed())
		_, err := LoadAliases(path)
		Expect(errors.Is(err, apperr.ErrFileParse)).To(BeTrue())
	})
})

var _ = Describe("Apply", func() {
	var rec *candidate.Record

	BeforeEach(func() {
		rec = &candidate.Record{
			Name:         "Firefox",
			Exec:         "firefox %u",
			Icon:         "firefox",
			SearchString: "internet;www",
			Actions:      []candidate.Action{{Name: "New Window", Exec: "firefox -new-window", Icon: "firefox"}},
		}
	})

	It("only builds the search string without an alias", func() {
		Apply(rec, nil, true)
		Expect(rec.SearchString).To(Equal("firefox;internet;www"))
	})

	It("drops keywords when disabled", func() {
		Apply(rec, nil, false)
		Expect(rec.SearchString).To(Equal("firefox"))
	})

	It("overlays alias fields", func() {
		Apply(rec, &Alias{
			Name:       ptr("Web"),
			Icon:       ptr("globe"),
			Exec:       ptr("librewolf"),
			Keywords:   ptr("Browser"),
			AddActions: []candidate.Action{{Name: "Profile", Exec: "librewolf -P"}},
			Variables:  []candidate.Variable{{Kind: candidate.PasswordInput, Name: "Token"}},
		}, true)

		Expect(rec.Name).To(Equal("Web"))
		Expect(rec.Icon).To(Equal("globe"))
		Expect(rec.Exec).To(Equal("librewolf"))
		Expect(rec.SearchString).To(Equal("web;browser"))
		Expect(rec.Actions).To(HaveLen(2))
		Expect(rec.Actions[1].Icon).To(Equal("globe"))
		Expect(rec.Vars).To(HaveLen(1))
	})

	It("replaces actions when the alias lists them", func() {
		Apply(rec, &Alias{Actions: []candidate.Action{{Name: "Only", Exec: "only"}}}, true)
		Expect(rec.Actions).To(Equal([]candidate.Action{{Name: "Only", Exec: "only", Icon: "firefox", Method: "app_launcher"}}))
		Expect(rec.SearchString).To(Equal("firefox;internet;www"))
	})
})
