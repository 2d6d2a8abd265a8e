// Package terminal runs interactive shells on pseudo terminals inside workspaces.
package terminal

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"unicode/utf8"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	muxerrors "github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/internal/process"
	"github.com/agentmux/agentmux/src/agentmux/repository/session"
	"github.com/creack/pty"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_defaultShell = "/bin/sh"
	_readSize     = 4096
	_idPrefix     = "term-"
)

// Controller manages the terminals of every workspace.
type Controller interface {
	// Open starts a shell in the workspace directory and streams its output as TerminalOutput events.
	Open(ctx context.Context, req entity.TerminalOpenRequest) (entity.TerminalOpenResult, error)
	Write(ctx context.Context, terminalID string, data string) error
	Resize(ctx context.Context, req entity.TerminalResizeRequest) error
	// Close kills the shell. A TerminalExit event follows.
	Close(ctx context.Context, terminalID string) error
	// CloseWorkspace closes every terminal of workspaceID.
	CloseWorkspace(ctx context.Context, workspaceID string) error
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Sessions  session.Repository
	Sink      entity.EventSink
	Stats     tally.Scope
}

type controller struct {
	logger   *zap.SugaredLogger
	sessions session.Repository
	sink     entity.EventSink
	stats    tally.Scope

	mu        sync.Mutex
	terminals map[string]*terminal
}

// New constructs the terminal controller. Every terminal is closed when the application stops.
func New(p Params) Controller {
	c := &controller{
		logger:    p.Logger,
		sessions:  p.Sessions,
		sink:      p.Sink,
		stats:     p.Stats,
		terminals: make(map[string]*terminal),
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.stats == nil {
		c.stats = tally.NoopScope
	}
	c.stats = c.stats.SubScope("terminals")
	p.Lifecycle.Append(fx.StopHook(c.closeAll))
	return c
}

type terminal struct {
	id          string
	workspaceID string
	cmd         *exec.Cmd
	pty         *os.File
	done        chan struct{}
	closeOnce   sync.Once
}

func (c *controller) Open(ctx context.Context, req entity.TerminalOpenRequest) (entity.TerminalOpenResult, error) {
	s, err := c.sessions.Get(ctx, req.WorkspaceID)
	if err != nil {
		return entity.TerminalOpenResult{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return entity.TerminalOpenResult{}, err
	}

	cmd := exec.Command(resolveShell(req.Shell))
	cmd.Dir = s.Entry().Path
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: req.Cols, Rows: req.Rows})
	if err != nil {
		return entity.TerminalOpenResult{}, err
	}

	t := &terminal{
		id:          _idPrefix + id.String(),
		workspaceID: req.WorkspaceID,
		cmd:         cmd,
		pty:         ptmx,
		done:        make(chan struct{}),
	}
	c.mu.Lock()
	c.terminals[t.id] = t
	c.updateGauge()
	c.mu.Unlock()

	go c.pump(t)

	c.logger.Infof("terminal %s opened in workspace %s: %s (pid %d)", t.id, t.workspaceID, cmd.Path, cmd.Process.Pid)
	return entity.TerminalOpenResult{TerminalID: t.id}, nil
}

func resolveShell(shell string) string {
	if shell != "" {
		return shell
	}
	if env := os.Getenv("SHELL"); env != "" {
		return env
	}
	return _defaultShell
}

// pump streams output until the shell exits, then reports its exit code.
func (c *controller) pump(t *terminal) {
	defer close(t.done)

	buf := make([]byte, _readSize)
	var pending []byte
	for {
		n, err := t.pty.Read(buf)
		if n > 0 {
			var chunk []byte
			chunk, pending = splitUTF8(append(pending, buf[:n]...))
			if len(chunk) > 0 {
				c.sink.Emit(entity.TerminalOutput{
					WorkspaceID: t.workspaceID,
					TerminalID:  t.id,
					Data:        string(chunk),
				})
			}
		}
		if err != nil {
			break
		}
	}
	if len(pending) > 0 {
		c.sink.Emit(entity.TerminalOutput{WorkspaceID: t.workspaceID, TerminalID: t.id, Data: string(pending)})
	}

	exitCode := 0
	if err := t.cmd.Wait(); err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}
	t.pty.Close()

	c.mu.Lock()
	delete(c.terminals, t.id)
	c.updateGauge()
	c.mu.Unlock()

	c.sink.Emit(entity.TerminalExit{WorkspaceID: t.workspaceID, TerminalID: t.id, ExitCode: exitCode})
}

// splitUTF8 holds back a trailing incomplete rune so that output chunks stay valid text.
func splitUTF8(buf []byte) (complete, rest []byte) {
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(buf[i]) {
			continue
		}
		if !utf8.FullRune(buf[i:]) {
			return buf[:i], append([]byte(nil), buf[i:]...)
		}
		break
	}
	return buf, nil
}

func (c *controller) get(terminalID string) (*terminal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.terminals[terminalID]
	if !ok {
		return nil, &muxerrors.TerminalNotFoundError{ID: terminalID}
	}
	return t, nil
}

func (c *controller) Write(ctx context.Context, terminalID string, data string) error {
	t, err := c.get(terminalID)
	if err != nil {
		return err
	}
	_, err = io.WriteString(t.pty, data)
	return err
}

func (c *controller) Resize(ctx context.Context, req entity.TerminalResizeRequest) error {
	t, err := c.get(req.TerminalID)
	if err != nil {
		return err
	}
	return pty.Setsize(t.pty, &pty.Winsize{Cols: req.Cols, Rows: req.Rows})
}

func (c *controller) Close(ctx context.Context, terminalID string) error {
	t, err := c.get(terminalID)
	if err != nil {
		return err
	}
	return c.close(ctx, t)
}

func (c *controller) close(ctx context.Context, t *terminal) error {
	var err error
	t.closeOnce.Do(func() {
		// The shell leads its own session, so its pid is also its process group.
		err = process.Kill(t.cmd.Process.Pid)
	})

	select {
	case <-t.done:
		return err
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}
}

func (c *controller) CloseWorkspace(ctx context.Context, workspaceID string) error {
	var err error
	for _, t := range c.list(func(t *terminal) bool { return t.workspaceID == workspaceID }) {
		err = multierr.Append(err, c.close(ctx, t))
	}
	return err
}

func (c *controller) closeAll(ctx context.Context) error {
	var err error
	for _, t := range c.list(func(*terminal) bool { return true }) {
		err = multierr.Append(err, c.close(ctx, t))
	}
	return err
}

func (c *controller) list(keep func(*terminal) bool) []*terminal {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*terminal
	for _, t := range c.terminals {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// updateGauge must be called with c.mu held.
func (c *controller) updateGauge() {
	c.stats.Gauge("open").Update(float64(len(c.terminals)))
}
