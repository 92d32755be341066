// Package apperr defines the error kinds shared by the indexer, the cache
// store and the launcher loader.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrFileRead          = errors.New("file read error")
	ErrFileWrite         = errors.New("file write error")
	ErrFileParse         = errors.New("file parse error")
	ErrDirCreate         = errors.New("directory create error")
	ErrSerialization     = errors.New("serialization error")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrConfig            = errors.New("config error")
)

// Error ties a kind to the path it happened on and the underlying cause.
//
// errors.Is matches both the kind and anything in the cause chain, so
// callers can test for ErrFileRead as well as fs.ErrNotExist.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// New wraps err with kind and path.
func New(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func FileRead(path string, err error) error { return New(ErrFileRead, path, err) }
func FileWrite(path string, err error) error { return New(ErrFileWrite, path, err) }
func FileParse(path string, err error) error { return New(ErrFileParse, path, err) }
func DirCreate(path string, err error) error { return New(ErrDirCreate, path, err) }
func Serialization(err error) error { return New(ErrSerialization, "", err) }
func UnsupportedSource(name string) error { return New(ErrUnsupportedSource, "", fmt.Errorf("%q", name)) }
func Config(msg string) error { return New(ErrConfig, "", errors.New(msg)) }
