package fs

import (
	"io"
	"io/fs"
	"os"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// File is the subset of *os.File used for append-only log files.
type File interface {
	io.WriteCloser
	Name() string
	Stat() (os.FileInfo, error)
}

// MuxFS wraps the filesystem operations used by agentmux.
type MuxFS interface {
	UserHomeDir() (string, error)
	MkdirAll(path string) error
	DirExists(path string) (bool, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	// OpenAppend opens name for appending, creating it if needed.
	OpenAppend(name string) (File, error)
	TempFile(dir, pattern string) (File, error)
	Stat(name string) (os.FileInfo, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new MuxFS.
func New() MuxFS {
	return fsImpl{}
}

// UserHomeDir returns the current user's home directory.
func (fsImpl) UserHomeDir() (string, error) { return os.UserHomeDir() }

// MkdirAll creates a directory and all its parents.
func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

// ReadDir reads all the items in a directory (non-recursive)
func (fsImpl) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fsImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (fsImpl) OpenAppend(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (fsImpl) TempFile(dir, pattern string) (File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (fsImpl) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fsImpl) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}
