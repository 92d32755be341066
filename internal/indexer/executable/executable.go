// Package executable turns the programs found on $PATH into records.
package executable

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/0xADE/ade-launchd/internal/candidate"
)

// Info describes an executable file.
type Info struct {
	Name string // Executable name
	Path string // Full path to executable
}

// ScanPaths sends every executable in paths to resultChan and closes it.
// Directories are not descended into.
func ScanPaths(paths []string, resultChan chan<- *Info) {
	defer close(resultChan)

	for _, path := range paths {
		scanPath(path, resultChan)
	}
}

func scanPath(dir string, resultChan chan<- *Info) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Continue scanning other paths even if one fails
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		// Stat follows symlinks, which most of /usr/bin is made of.
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !isExecutable(info) {
			continue
		}
		resultChan <- &Info{Name: name, Path: path}
	}
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0o111 != 0
}

// Records scans paths and returns one record per command name. When a
// name exists in several directories the first one in paths wins, as it
// would for the shell.
func Records(paths []string) []*candidate.Record {
	ch := make(chan *Info, 64)
	go ScanPaths(paths, ch)

	seen := make(map[string]bool)
	var out []*candidate.Record
	for info := range ch {
		if seen[info.Name] {
			continue
		}
		seen[info.Name] = true
		out = append(out, &candidate.Record{
			Name:         info.Name,
			Exec:         info.Name,
			SearchString: strings.ToLower(info.Name),
			Origin:       info.Path,
		})
	}
	return out
}
