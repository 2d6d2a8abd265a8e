// Package serverinfofile maintains the JSON file through which local tools discover a running daemon.
package serverinfofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// ConfigKey is the configuration key holding the info file location.
	ConfigKey = "serverInfoFilePath"

	// KeyAddress records the address the daemon listens on.
	KeyAddress = "daemon-address"
	// KeyPID records the daemon process id.
	KeyPID = "pid"
	// KeyOutputPrefix prefixes the per-workspace agent output log entries.
	KeyOutputPrefix = "output:"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ServerInfoFile owns a flat JSON object of string fields on disk.
// The daemon records its address, pid and per-workspace output log paths there; the file is removed on stop.
type ServerInfoFile interface {
	UpdateField(key string, value string) error
	DeleteField(key string) error
	// Path returns the location of the info file.
	Path() string
}

// Params define values to be used by ServerInfoFile.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	FS        fs.MuxFS
}

type infoFile struct {
	path   string
	logger *zap.SugaredLogger
	fs     fs.MuxFS

	mu     sync.Mutex
	fields Info
	// written is set once the file exists on disk.
	written bool
}

// New reads the file location from configuration and removes the file when the application stops.
func New(p Params) (ServerInfoFile, error) {
	path, err := configuredPath(p.Config)
	if err != nil {
		return nil, err
	}

	f := newInfoFile(path, p.FS, p.Logger)
	p.Lifecycle.Append(fx.Hook{OnStop: f.remove})
	return f, nil
}

func newInfoFile(path string, fsys fs.MuxFS, logger *zap.SugaredLogger) *infoFile {
	if fsys == nil {
		fsys = fs.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &infoFile{
		path:   path,
		logger: logger,
		fs:     fsys,
		fields: make(Info),
	}
}

func configuredPath(cfg config.Provider) (string, error) {
	var path string
	if err := cfg.Get(ConfigKey).Populate(&path); err != nil {
		return "", fmt.Errorf("getting config field %q: %w", ConfigKey, err)
	}
	if path == "" {
		return "", fmt.Errorf("missing field %q in config", ConfigKey)
	}
	return path, nil
}

func (f *infoFile) Path() string {
	return f.path
}

func (f *infoFile) UpdateField(key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, had := f.fields[key]
	f.fields[key] = value
	if err := f.save(); err != nil {
		if had {
			f.fields[key] = previous
		} else {
			delete(f.fields, key)
		}
		return err
	}
	f.logger.Debugf("server info %s updated: %s=%s", f.path, key, value)
	return nil
}

func (f *infoFile) DeleteField(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.fields[key]; !ok {
		return nil
	}
	delete(f.fields, key)
	return f.save()
}

// save replaces the file with the current fields through a temporary file in the same directory,
// so readers never observe a partial object. Callers hold mu.
func (f *infoFile) save() error {
	data, err := json.Marshal(f.fields)
	if err != nil {
		return fmt.Errorf("encoding server info: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir); err != nil {
		return fmt.Errorf("creating info file directory: %w", err)
	}
	tmp, err := f.fs.TempFile(dir, filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("creating info file: %w", err)
	}
	_, err = tmp.Write(data)
	err = multierr.Append(err, tmp.Close())
	if err == nil {
		err = f.fs.Rename(tmp.Name(), f.path)
	}
	if err != nil {
		return multierr.Append(fmt.Errorf("writing info file: %w", err), f.fs.Remove(tmp.Name()))
	}
	f.written = true
	return nil
}

func (f *infoFile) remove(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.written {
		return nil
	}
	if err := f.fs.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing info file: %w", err)
	}
	f.written = false
	return nil
}

// Info is the decoded content of a server info file.
type Info map[string]string

// Address returns the recorded daemon address, empty when none is recorded.
func (i Info) Address() string {
	return i[KeyAddress]
}

// OutputLog returns the agent output log recorded for a workspace.
func (i Info) OutputLog(workspaceID string) (string, bool) {
	p, ok := i[KeyOutputPrefix+workspaceID]
	return p, ok
}

// Read decodes the info file at path. A missing file is reported with an error wrapping os.ErrNotExist.
func Read(fsys fs.MuxFS, path string) (Info, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return info, nil
}

// Discover reads the info file configured in cfg.
func Discover(fsys fs.MuxFS, cfg config.Provider) (Info, error) {
	path, err := configuredPath(cfg)
	if err != nil {
		return nil, err
	}
	return Read(fsys, path)
}
