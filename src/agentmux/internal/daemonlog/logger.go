// Package daemonlog implements the daemon's append-only logfmt audit log.
package daemonlog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/internal/clock"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"go.uber.org/zap"
)

const (
	// FileName is the name of the live log file inside the data directory.
	FileName = "daemon.log"
	// BackupSuffix is appended to the live path to name the single rotated backup.
	BackupSuffix = ".1"

	_defaultMaxBytes       = 5 * 1024 * 1024
	_defaultReopenInterval = 60 * time.Second
	_defaultRateWindow     = time.Second

	_timeLayout = "2006-01-02T15:04:05.000-07:00"

	_eventRotated      = "log_rotated"
	_eventRotateFailed = "log_rotate_failed"
	_eventRecovered    = "logger_recovered"
	_eventSuppressed   = "warnings_suppressed"
)

// Level is the severity written in the level field.
type Level int

const (
	// LevelInfo is written as level=info.
	LevelInfo Level = iota
	// LevelError is written as level=error.
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Logger writes logfmt records to a size-rotated file.
// It never fails the caller: I/O problems put it into degraded mode, where records are discarded
// and the file is reopened on a fixed interval.
type Logger interface {
	// Log writes one record. kvs are alternating keys and values.
	Log(level Level, event string, kvs ...string)
	// LogRateLimited writes one record unless another record with the same key was written within
	// the rate limit window, in which case it is counted and suppressed.
	LogRateLimited(key string, level Level, event string, kvs ...string)
	// Path returns the live log file path.
	Path() string
	Close() error
}

type rateLimiter struct {
	lastEmit   time.Time
	suppressed int
}

type logger struct {
	mu sync.Mutex

	handle            fs.File
	path              string
	degraded          bool
	closed            bool
	lastReopenAttempt time.Time
	limiters          map[string]*rateLimiter

	fs             fs.MuxFS
	clock          clock.Clock
	errLog         *zap.SugaredLogger
	maxBytes       int64
	reopenInterval time.Duration
	rateWindow     time.Duration
}

// Option customizes a Logger.
type Option func(*logger)

// WithFS overrides the filesystem used to open, rotate and stat the log.
func WithFS(f fs.MuxFS) Option {
	return func(l *logger) {
		l.fs = f
	}
}

// WithClock overrides the clock used for timestamps, reopen intervals and rate limiting.
func WithClock(c clock.Clock) Option {
	return func(l *logger) {
		l.clock = c
	}
}

// WithErrorLogger sets where the logger reports its own I/O failures.
func WithErrorLogger(s *zap.SugaredLogger) Option {
	return func(l *logger) {
		l.errLog = s
	}
}

// WithMaxBytes overrides the size above which the live file is rotated.
func WithMaxBytes(n int64) Option {
	return func(l *logger) {
		l.maxBytes = n
	}
}

// WithReopenInterval overrides how often a degraded logger retries opening its file.
func WithReopenInterval(d time.Duration) Option {
	return func(l *logger) {
		l.reopenInterval = d
	}
}

// WithRateLimitWindow overrides the window used by LogRateLimited.
func WithRateLimitWindow(d time.Duration) Option {
	return func(l *logger) {
		l.rateWindow = d
	}
}

// Open creates the data directory if needed, rotates an oversized leftover file and opens
// dataDir/daemon.log for appending. If the file cannot be opened the logger starts degraded.
func Open(dataDir string, opts ...Option) Logger {
	l := &logger{
		path:           filepath.Join(dataDir, FileName),
		limiters:       make(map[string]*rateLimiter),
		fs:             fs.New(),
		clock:          clock.New(),
		errLog:         zap.NewNop().Sugar(),
		maxBytes:       _defaultMaxBytes,
		reopenInterval: _defaultReopenInterval,
		rateWindow:     _defaultRateWindow,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.fs.MkdirAll(dataDir); err != nil {
		l.errLog.Warnf("failed to create daemon log directory %s: %s", dataDir, err)
	}
	l.rotateOnOpen()

	l.lastReopenAttempt = l.clock.Now()
	handle, err := l.fs.OpenAppend(l.path)
	if err != nil {
		l.errLog.Errorf("failed to open daemon log %s, discarding records: %s", l.path, err)
		l.handle = discard{}
		l.degraded = true
	} else {
		l.handle = handle
	}
	return l
}

func (l *logger) Path() string {
	return l.path
}

func (l *logger) Log(level Level, event string, kvs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeRecover()
	l.maybeRotate()
	l.writeLine(level, event, kvs)
}

func (l *logger) LogRateLimited(key string, level Level, event string, kvs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.maybeRecover()

	limiter, ok := l.limiters[key]
	if !ok {
		// The first record for a key always passes.
		limiter = &rateLimiter{lastEmit: now.Add(-2 * l.rateWindow)}
		l.limiters[key] = limiter
	}

	if now.Sub(limiter.lastEmit) < l.rateWindow {
		limiter.suppressed++
		return
	}

	if limiter.suppressed > 0 {
		l.writeLine(level, _eventSuppressed, []string{"key", key, "count", strconv.Itoa(limiter.suppressed)})
	}
	limiter.suppressed = 0
	limiter.lastEmit = now

	l.maybeRotate()
	l.writeLine(level, event, kvs)
}

func (l *logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.handle.Close()
	l.handle = discard{}
	l.closed = true
	return err
}

func (l *logger) writeLine(level Level, event string, kvs []string) {
	var b strings.Builder
	b.WriteString("ts=")
	b.WriteString(l.clock.Now().Format(_timeLayout))
	b.WriteString(" level=")
	b.WriteString(level.String())
	b.WriteString(" event=")
	b.WriteString(event)
	for i := 0; i+1 < len(kvs); i += 2 {
		b.WriteByte(' ')
		b.WriteString(kvs[i])
		b.WriteByte('=')
		b.WriteString(QuoteValue(kvs[i+1]))
	}
	b.WriteByte('\n')

	// Write failures are dropped; the next rotation or recovery attempt decides what happens.
	_, _ = l.handle.Write([]byte(b.String()))
}

func (l *logger) maybeRecover() {
	if !l.degraded || l.closed {
		return
	}
	now := l.clock.Now()
	if now.Sub(l.lastReopenAttempt) < l.reopenInterval {
		return
	}
	l.lastReopenAttempt = now

	handle, err := l.fs.OpenAppend(l.path)
	if err != nil {
		return
	}
	l.handle = handle
	l.degraded = false
	l.writeLine(LevelInfo, _eventRecovered, nil)
}

func (l *logger) maybeRotate() {
	if l.degraded || l.closed {
		return
	}
	info, err := l.handle.Stat()
	if err != nil {
		return
	}
	size := info.Size()
	if size <= l.maxBytes {
		return
	}

	_ = l.handle.Close()
	l.handle = discard{}

	backup := l.path + BackupSuffix
	_ = l.fs.Remove(backup)
	renamed := l.fs.Rename(l.path, backup) == nil

	handle, err := l.fs.OpenAppend(l.path)
	if err != nil {
		l.errLog.Errorf("failed to reopen daemon log %s after rotation: %s", l.path, err)
		l.degraded = true
		l.lastReopenAttempt = l.clock.Now()
		return
	}
	l.handle = handle

	if renamed {
		l.writeLine(LevelInfo, _eventRotated, []string{"prev_bytes", strconv.FormatInt(size, 10)})
	} else {
		l.writeLine(LevelError, _eventRotateFailed, []string{"reason", "rename failed"})
	}
}

// rotateOnOpen moves an oversized file left by a previous run out of the way.
func (l *logger) rotateOnOpen() {
	info, err := l.fs.Stat(l.path)
	if err != nil || info.Size() <= l.maxBytes {
		return
	}
	backup := l.path + BackupSuffix
	_ = l.fs.Remove(backup)
	_ = l.fs.Rename(l.path, backup)
}

// discard is the sink used while the real file is unavailable.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Close() error                { return nil }
func (discard) Name() string                { return os.DevNull }
func (discard) Stat() (os.FileInfo, error)  { return nil, os.ErrInvalid }
