// Package usage keeps the persisted table of how often each command was
// launched.
package usage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/cachestore"
	"github.com/0xADE/ade-launchd/internal/priority"
)

// FileName is the name of the counts blob inside the data directory.
const FileName = "counts.bin"

// Table maps an exec string to its launch rank.
type Table map[string]uint32

// Get returns the count for key, zero when absent.
func (t Table) Get(key string) uint32 { return t[key] }

// Max returns the largest count in the table.
func (t Table) Max() uint32 {
	var m uint32
	for _, v := range t {
		m = max(m, v)
	}
	return m
}

// Decimals returns the precision the priority model needs for this table.
func (t Table) Decimals() int32 { return priority.Decimals(t.Max()) }

// Compress rewrites every count as its 1-based rank among the distinct
// values in t. Zero counts keep rank order but never collapse to zero.
func Compress(t Table) {
	values := make([]uint32, 0, len(t))
	for _, v := range t {
		values = append(values, v)
	}
	slices.Sort(values)
	values = slices.Compact(values)

	ranks := make(map[uint32]uint32, len(values))
	for i, v := range values {
		ranks[v] = uint32(i + 1)
	}
	for k, v := range t {
		t[k] = ranks[v]
	}
}

// Counter reads and writes the counts blob. It does no locking: only one
// writer is expected at a time.
type Counter struct {
	path string
}

// NewCounter returns a counter stored in dataDir, creating the directory
// if needed.
func NewCounter(dataDir string) (*Counter, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, apperr.DirCreate(dataDir, err)
	}
	return &Counter{path: filepath.Join(dataDir, FileName)}, nil
}

// NewCounterAt returns a counter backed by an explicit file path.
func NewCounterAt(path string) *Counter {
	return &Counter{path: path}
}

// Path returns the blob location.
func (c *Counter) Path() string { return c.path }

// Counts returns the persisted table. A missing file yields an empty table.
func (c *Counter) Counts() (Table, error) {
	t, err := cachestore.Read[Table](c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Table{}, nil
		}
		return nil, err
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Increment compresses the table to ranks, bumps key by one and writes the
// whole table back.
func (c *Counter) Increment(key string) error {
	t, err := c.Counts()
	if err != nil {
		return err
	}
	Compress(t)
	t[key]++
	return cachestore.Write(c.path, t)
}

// Seed stores a zero count for every key, but only when nothing has been
// recorded yet.
func (c *Counter) Seed(keys []string) error {
	t, err := c.Counts()
	if err != nil {
		return err
	}
	if len(t) > 0 {
		return nil
	}
	for _, k := range keys {
		if k != "" {
			t[k] = 0
		}
	}
	if len(t) == 0 {
		return nil
	}
	return cachestore.Write(c.path, t)
}
