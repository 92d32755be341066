// Package cachestore persists values as compressed binary blobs and decides
// their staleness by modification time.
package cachestore

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/0xADE/ade-launchd/internal/apperr"
)

// SchemaVersion is bumped whenever a persisted type changes shape. Blobs
// carrying another version decode as corrupt and are discarded.
const SchemaVersion byte = 1

var magic = [4]byte{'A', 'D', 'E', 'C'}

var errBadHeader = errors.New("bad blob header")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Write encodes v and atomically replaces path with the result. The parent
// directory must already exist.
func Write[T any](path string, v T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return apperr.Serialization(err)
	}

	blob := make([]byte, 0, len(magic)+1+buf.Len()/2)
	blob = append(blob, magic[:]...)
	blob = append(blob, SchemaVersion)
	blob = encoder.EncodeAll(buf.Bytes(), blob)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return apperr.FileWrite(path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return apperr.FileWrite(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperr.FileWrite(path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.FileWrite(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperr.FileWrite(path, err)
	}
	return nil
}

// Read loads the value stored at path.
//
// A file that cannot be read yields a FileRead error. A file that can be
// read but not decoded is removed and the zero value of T is returned
// without an error.
func Read[T any](path string) (T, error) {
	var zero T

	data, err := os.ReadFile(path)
	if err != nil {
		return zero, apperr.FileRead(path, err)
	}

	v, err := decode[T](data)
	if err != nil {
		_ = os.Remove(path)
		return zero, nil
	}
	return v, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return v, errBadHeader
	}
	if data[len(magic)] != SchemaVersion {
		return v, fmt.Errorf("schema version %d: %w", data[len(magic)], errBadHeader)
	}

	raw, err := decoder.DecodeAll(data[len(magic)+1:], nil)
	if err != nil {
		return v, fmt.Errorf("failed to decompress blob: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return v, fmt.Errorf("failed to decode blob: %w", err)
	}
	return v, nil
}

// ModTime returns the modification time of path, if it can be stat'ed.
func ModTime(path string) (time.Time, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}

// FileHasChanged reports whether file was modified strictly after
// compareTo. It also reports true when either time is unavailable.
func FileHasChanged(file, compareTo string) bool {
	a, ok := ModTime(file)
	if !ok {
		return true
	}
	b, ok := ModTime(compareTo)
	if !ok {
		return true
	}
	return a.After(b)
}
