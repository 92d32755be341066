// Package icons resolves icon names from manifests to content-addressed
// copies in the cache directory.
package icons

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/logging"
)

const (
	bucketName    = "icons"
	dbPermissions = 0600
	memEntries    = 1024
)

var extensions = []string{".svg", ".png"}

// Resolver looks icon names up in memory, then in a bbolt index, then by
// scanning the search paths.
type Resolver struct {
	db          *bbolt.DB
	cacheDir    string
	searchPaths []string
	mem         *lru.Cache[string, string]
	log         *logging.Logger

	scanOnce sync.Once
	files    map[string]string // icon name -> source file
}

// Open creates or opens the index at dbPath. Resolved icons are copied
// into cacheDir, which is created if needed.
func Open(dbPath, cacheDir string, searchPaths []string, log *logging.Logger) (*Resolver, error) {
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, apperr.DirCreate(cacheDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, apperr.DirCreate(filepath.Dir(dbPath), err)
	}

	db, err := bbolt.Open(dbPath, dbPermissions, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open icon database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	mem, err := lru.New[string, string](memEntries)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Resolver{
		db:          db,
		cacheDir:    cacheDir,
		searchPaths: searchPaths,
		mem:         mem,
		log:         log.OrNoop().Component("icons"),
	}, nil
}

// Resolve returns a file path for name, or "" when no icon is found.
// Absolute paths are returned as they are if the file exists.
func (r *Resolver) Resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return ""
		}
		return name
	}

	if path, ok := r.mem.Get(name); ok {
		return path
	}

	if path := r.lookup(name); path != "" {
		r.mem.Add(name, path)
		return path
	}

	path := ""
	if src, ok := r.sources()[name]; ok {
		cached, err := r.store(src)
		if err != nil {
			r.log.Warn("failed to cache icon", "name", name, "path", src, "error", err)
		} else {
			path = cached
			r.remember(name, path)
		}
	}
	// Misses are kept in memory too, so unknown names are scanned once.
	r.mem.Add(name, path)
	return path
}

func (r *Resolver) lookup(name string) string {
	var path string
	_ = r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if val := b.Get([]byte(name)); val != nil {
			path = string(val)
		}
		return nil
	})
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (r *Resolver) remember(name, path string) {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucketName)
		}
		return b.Put([]byte(name), []byte(path))
	})
	if err != nil {
		r.log.Warn("failed to index icon", "name", name, "error", err)
	}
}

// store copies src to <cacheDir>/<xxhash>.<ext>.
func (r *Resolver) store(src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", apperr.FileRead(src, err)
	}
	dst := filepath.Join(r.cacheDir, fmt.Sprintf("%016x%s", xxhash.Sum64(data), filepath.Ext(src)))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	tmp, err := os.CreateTemp(r.cacheDir, ".icon-*")
	if err != nil {
		return "", apperr.FileWrite(dst, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", apperr.FileWrite(dst, err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.FileWrite(dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", apperr.FileWrite(dst, err)
	}
	return dst, nil
}

// sources indexes the search paths on first use. Earlier search paths win,
// and within one directory tree svg wins over png.
func (r *Resolver) sources() map[string]string {
	r.scanOnce.Do(func() {
		r.files = make(map[string]string)
		for _, root := range r.searchPaths {
			local := make(map[string]string)
			_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					if d != nil && d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if d.IsDir() {
					return nil
				}
				ext := filepath.Ext(path)
				if !isIconExt(ext) {
					return nil
				}
				stem := strings.TrimSuffix(d.Name(), ext)
				if prev, ok := local[stem]; ok && (filepath.Ext(prev) == ".svg" || ext != ".svg") {
					return nil
				}
				local[stem] = path
				return nil
			})
			for stem, path := range local {
				if _, ok := r.files[stem]; !ok {
					r.files[stem] = path
				}
			}
		}
		r.log.Debug("indexed icon search paths", "count", len(r.files))
	})
	return r.files
}

func isIconExt(ext string) bool {
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Close closes the database connection.
func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
