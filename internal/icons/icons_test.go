package icons

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var (
		r        *Resolver
		root     string
		themes   string
		pixmaps  string
		cacheDir string
		dbPath   string
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		themes = filepath.Join(root, "icons", "hicolor", "48x48", "apps")
		pixmaps = filepath.Join(root, "pixmaps")
		cacheDir = filepath.Join(root, "cache", "icons")
		dbPath = filepath.Join(root, "cache", "icons.db")
		Expect(os.MkdirAll(themes, 0o755)).To(Succeed())
		Expect(os.MkdirAll(pixmaps, 0o755)).To(Succeed())

		Expect(os.WriteFile(filepath.Join(themes, "firefox.png"), []byte("png-bytes"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(themes, "firefox.svg"), []byte("<svg/>"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(pixmaps, "firefox.png"), []byte("other"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(pixmaps, "foot.png"), []byte("foot"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(pixmaps, "readme.txt"), []byte("x"), 0o644)).To(Succeed())

		var err error
		r, err = Open(dbPath, cacheDir, []string{filepath.Join(root, "icons"), pixmaps}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(r.Close()).To(Succeed())
	})

	It("creates the cache directory and database", func() {
		Expect(cacheDir).To(BeADirectory())
		Expect(dbPath).To(BeAnExistingFile())
	})

	It("copies the icon to a content-addressed file", func() {
		path := r.Resolve("foot")
		Expect(filepath.Dir(path)).To(Equal(cacheDir))
		Expect(filepath.Ext(path)).To(Equal(".png"))
		Expect(os.ReadFile(path)).To(Equal([]byte("foot")))
		Expect(r.Resolve("foot")).To(Equal(path))
	})

	It("prefers earlier search paths and svg files", func() {
		path := r.Resolve("firefox")
		Expect(filepath.Ext(path)).To(Equal(".svg"))
		Expect(os.ReadFile(path)).To(Equal([]byte("<svg/>")))
	})

	It("returns nothing for unknown names", func() {
		Expect(r.Resolve("nope")).To(BeEmpty())
		Expect(r.Resolve("readme")).To(BeEmpty())
		Expect(r.Resolve("")).To(BeEmpty())
	})

	It("passes existing absolute paths through", func() {
		abs := filepath.Join(pixmaps, "foot.png")
		Expect(r.Resolve(abs)).To(Equal(abs))
		Expect(r.Resolve(filepath.Join(root, "missing.png"))).To(BeEmpty())
	})

	It("remembers resolved icons across restarts", func() {
		path := r.Resolve("foot")
		Expect(r.Close()).To(Succeed())

		var err error
		r, err = Open(dbPath, cacheDir, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Resolve("foot")).To(Equal(path))
	})

	It("handles multiple close calls gracefully", func() {
		Expect(r.Close()).To(Succeed())
		Expect(r.Close()).To(Succeed())
	})
})
