package helpers

import (
	"io/fs"
	"os"
	"time"
)

type mockDirEntry struct {
	name string
	dir  bool
}

func (m mockDirEntry) Name() string {
	return m.name
}

func (m mockDirEntry) IsDir() bool {
	return m.dir
}

func (m mockDirEntry) Type() fs.FileMode {
	if m.dir {
		return fs.ModeDir
	}
	return 0
}

func (m mockDirEntry) Info() (fs.FileInfo, error) {
	return MockFileInfo(m.name, 0, m.dir), nil
}

var _ os.DirEntry = mockDirEntry{}

// MockDirEntry returns a directory entry that exists only in memory.
func MockDirEntry(name string, dir bool) os.DirEntry {
	return mockDirEntry{name, dir}
}

type mockFileInfo struct {
	name string
	size int64
	dir  bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return m.size }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return m.dir }
func (m mockFileInfo) Sys() any           { return nil }

func (m mockFileInfo) Mode() fs.FileMode {
	if m.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}

var _ os.FileInfo = mockFileInfo{}

// MockFileInfo returns file info with the given size.
func MockFileInfo(name string, size int64, dir bool) os.FileInfo {
	return mockFileInfo{name: name, size: size, dir: dir}
}
