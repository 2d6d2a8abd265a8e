// Package logfilewriter keeps human readable per-workspace output logs for the agents' stderr.
package logfilewriter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_fmtOutputKey = serverinfofile.KeyOutputPrefix + "%s"
	_logsDirName  = "agentmux"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Params define the dependencies for New.
type Params struct {
	fx.In

	FS             fs.MuxFS
	Lifecycle      fx.Lifecycle
	ServerInfoFile serverinfofile.ServerInfoFile
}

// Writers hands out output logs. Each log file path is published in the server info file
// so that a client can tail it.
type Writers interface {
	// Open creates the output log for name. Closing the writer removes the file and its published path.
	Open(name string) (io.WriteCloser, error)
}

type writers struct {
	fs             fs.MuxFS
	serverInfoFile serverinfofile.ServerInfoFile
	dir            string

	mu   sync.Mutex
	open map[*loggerWriter]struct{}
}

// New creates Writers and closes every writer still open on shutdown.
func New(p Params) Writers {
	w := &writers{
		fs:             p.FS,
		serverInfoFile: p.ServerInfoFile,
		dir:            filepath.Join(os.TempDir(), _logsDirName),
		open:           make(map[*loggerWriter]struct{}),
	}
	p.Lifecycle.Append(fx.StopHook(w.closeAll))
	return w
}

func (w *writers) Open(name string) (io.WriteCloser, error) {
	if err := w.fs.MkdirAll(w.dir); err != nil {
		return nil, err
	}

	logFile, err := w.fs.TempFile(w.dir, sanitize(name)+"-*.log")
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(_fmtOutputKey, name)
	if err := w.serverInfoFile.UpdateField(key, logFile.Name()); err != nil {
		return nil, multierr.Append(err, multierr.Append(logFile.Close(), w.fs.Remove(logFile.Name())))
	}

	// Write via a logger for formatting, timestamp, and buffering.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel,
	)
	lw := &loggerWriter{
		logger: zap.New(core).Sugar(),
		file:   logFile,
		key:    key,
		owner:  w,
	}

	w.mu.Lock()
	w.open[lw] = struct{}{}
	w.mu.Unlock()
	return lw, nil
}

func (w *writers) closeAll(ctx context.Context) error {
	w.mu.Lock()
	open := make([]*loggerWriter, 0, len(w.open))
	for lw := range w.open {
		open = append(open, lw)
	}
	w.mu.Unlock()

	var err error
	for _, lw := range open {
		err = multierr.Append(err, lw.Close())
	}
	return err
}

// release removes lw from the open set, reporting whether it was still open.
func (w *writers) release(lw *loggerWriter) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.open[lw]; !ok {
		return false
	}
	delete(w.open, lw)
	return true
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == '*' {
			return '_'
		}
		return r
	}, name)
}

type loggerWriter struct {
	logger *zap.SugaredLogger
	file   fs.File
	key    string
	owner  *writers
}

// Write implements the io.Writer interface by sending data to the given logger.
func (o *loggerWriter) Write(p []byte) (n int, err error) {
	// Incoming data may contain multiple lines, including blank ones.
	// Split and log each line individually.
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if len(strings.TrimSpace(line)) > 0 {
			o.logger.Info(strings.TrimRight(line, "\r"))
		}
	}

	return len(p), nil
}

// Close flushes and removes the log file. Calls after the first are no-ops.
func (o *loggerWriter) Close() error {
	if !o.owner.release(o) {
		return nil
	}

	// Sync on a plain file may report EINVAL for some targets; it is best effort.
	_ = o.logger.Sync()
	return multierr.Combine(
		o.file.Close(),
		o.owner.fs.Remove(o.file.Name()),
		o.owner.serverInfoFile.DeleteField(o.key),
	)
}
