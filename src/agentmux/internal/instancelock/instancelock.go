// Package instancelock keeps a second daemon from starting against the same data directory.
package instancelock

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/gofrs/flock"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKeyDataDir = "dataDir"
	_lockFile         = "agentmuxd.lock"
)

// Module provides the instance lock.
var Module = fx.Provide(New)

// Lock is an exclusive advisory lock on <dataDir>/agentmuxd.lock, held while the application runs.
type Lock interface {
	Path() string
	Locked() bool
}

// Params define values to be used by the instance lock.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	FS        fs.MuxFS
}

type lock struct {
	dir    string
	flock  *flock.Flock
	fs     fs.MuxFS
	logger *zap.SugaredLogger
}

// AlreadyRunningError is returned by OnStart when another process holds the lock.
type AlreadyRunningError struct {
	Path string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("another agentmuxd instance holds %s", e.Path)
}

// New creates the lock. It is acquired in OnStart and released in OnStop.
func New(p Params) (Lock, error) {
	var dataDir string
	if err := p.Config.Get(_configKeyDataDir).Populate(&dataDir); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyDataDir, err)
	}
	if dataDir == "" {
		return nil, fmt.Errorf("missing field %q in config", _configKeyDataDir)
	}

	l := newLock(dataDir, p.FS, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStart: l.acquire,
		OnStop:  l.release,
	})
	return l, nil
}

func newLock(dir string, fsys fs.MuxFS, logger *zap.SugaredLogger) *lock {
	if fsys == nil {
		fsys = fs.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &lock{
		dir:    dir,
		flock:  flock.New(filepath.Join(dir, _lockFile)),
		fs:     fsys,
		logger: logger,
	}
}

func (l *lock) Path() string {
	return l.flock.Path()
}

func (l *lock) Locked() bool {
	return l.flock.Locked()
}

func (l *lock) acquire(ctx context.Context) error {
	if err := l.fs.MkdirAll(l.dir); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring %s: %w", l.Path(), err)
	}
	if !ok {
		return &AlreadyRunningError{Path: l.Path()}
	}
	l.logger.Debugf("acquired instance lock %s", l.Path())
	return nil
}

func (l *lock) release(ctx context.Context) error {
	if !l.flock.Locked() {
		return nil
	}
	return l.flock.Unlock()
}
