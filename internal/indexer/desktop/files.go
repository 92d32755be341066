package desktop

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// LocalDir is the per-user applications directory under home.
func LocalDir(home string) string {
	return filepath.Join(home, ".local", "share", "applications")
}

// Dirs returns the application directories to scan: the system default,
// the user's local directory, every $XDG_DATA_DIRS entry and any extra
// paths, in that order and without duplicates. A leading "~" in extra
// paths is expanded to home.
func Dirs(home, xdgDataDirs string, extra []string) []string {
	dirs := []string{"/usr/share/applications", LocalDir(home)}
	for _, d := range filepath.SplitList(xdgDataDirs) {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	for _, d := range extra {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if d == "~" || strings.HasPrefix(d, "~/") {
			d = filepath.Join(home, d[1:])
		}
		dirs = append(dirs, d)
	}

	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// ListFiles returns the .desktop files found in dirs. Entries are keyed by
// file stem: among system directories the earlier directory wins, and the
// local directory overrides all of them. The result is sorted.
func ListFiles(dirs []string, localDir string) []string {
	localDir = filepath.Clean(localDir)

	var system []string
	hasLocal := false
	for _, d := range dirs {
		if filepath.Clean(d) == localDir {
			hasLocal = true
			continue
		}
		system = append(system, d)
	}

	found := make([]map[string]string, len(system))
	var g errgroup.Group
	for i, dir := range system {
		g.Go(func() error {
			found[i] = readDir(dir)
			return nil
		})
	}
	_ = g.Wait()

	byStem := make(map[string]string)
	for i := len(found) - 1; i >= 0; i-- {
		for stem, path := range found[i] {
			byStem[stem] = path
		}
	}
	if hasLocal {
		for stem, path := range readDir(localDir) {
			byStem[stem] = path
		}
	}

	files := make([]string, 0, len(byStem))
	for _, path := range byStem {
		files = append(files, path)
	}
	slices.Sort(files)
	return files
}

func readDir(dir string) map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".desktop" {
			continue
		}
		out[strings.TrimSuffix(name, ".desktop")] = filepath.Join(dir, name)
	}
	return out
}
