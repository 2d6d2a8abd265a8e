// Package appserver spawns agent app-server processes and multiplexes their stdio sessions.
package appserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/internal/executor"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/logfilewriter"
	"github.com/agentmux/agentmux/src/agentmux/internal/process"
	"github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_configKeyAgent = "agent"

	_defaultName             = "Codex"
	_defaultHandshakeTimeout = 15 * time.Second
	_defaultProbeTimeout     = 5 * time.Second

	_errConfig = "getting config field %q: %w"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Gateway starts agent processes.
type Gateway interface {
	// Probe runs `<bin> --version` and returns the trimmed version, which may be empty.
	Probe(ctx context.Context, bin string) (string, error)
	// Spawn probes the binary for entry, starts its app-server and completes the initialize handshake.
	// On failure no process is left running.
	Spawn(ctx context.Context, entry entity.WorkspaceEntry) (entity.AgentSession, error)
}

// Params define the dependencies of the app-server gateway.
type Params struct {
	fx.In

	Config   config.Provider
	Logger   *zap.SugaredLogger
	Stats    tally.Scope
	FS       fs.MuxFS
	Executor executor.Executor
	Sink     entity.EventSink
	Writers  logfilewriter.Writers `optional:"true"`
}

// agentConfig is the `agent` config block.
type agentConfig struct {
	// Name is the product name used in user-facing errors.
	Name             string        `yaml:"name"`
	Bin              string        `yaml:"bin"`
	Args             string        `yaml:"args"`
	Home             string        `yaml:"home"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	ProbeTimeout     time.Duration `yaml:"probeTimeout"`
}

type gateway struct {
	cfg      agentConfig
	logger   *zap.SugaredLogger
	stats    tally.Scope
	fs       fs.MuxFS
	executor executor.Executor
	sink     entity.EventSink
	writers  logfilewriter.Writers
}

// New creates the app-server Gateway.
func New(p Params) (Gateway, error) {
	g := &gateway{
		logger:   p.Logger,
		stats:    p.Stats,
		fs:       p.FS,
		executor: p.Executor,
		sink:     p.Sink,
		writers:  p.Writers,
	}
	if g.logger == nil {
		g.logger = zap.NewNop().Sugar()
	}
	if g.stats == nil {
		g.stats = tally.NoopScope
	}
	g.stats = g.stats.SubScope("sessions")
	if g.fs == nil {
		g.fs = fs.New()
	}
	if g.executor == nil {
		g.executor = executor.NewExecutor(executor.WithLogger(g.logger))
	}

	if err := g.processConfig(p.Config); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *gateway) processConfig(provider config.Provider) error {
	g.cfg = agentConfig{
		Name:             _defaultName,
		HandshakeTimeout: _defaultHandshakeTimeout,
		ProbeTimeout:     _defaultProbeTimeout,
	}
	if provider == nil {
		return nil
	}
	value := provider.Get(_configKeyAgent)
	if !value.HasValue() {
		return nil
	}
	if err := value.Populate(&g.cfg); err != nil {
		return fmt.Errorf(_errConfig, _configKeyAgent, err)
	}
	if strings.TrimSpace(g.cfg.Name) == "" {
		g.cfg.Name = _defaultName
	}
	if g.cfg.HandshakeTimeout <= 0 {
		g.cfg.HandshakeTimeout = _defaultHandshakeTimeout
	}
	if g.cfg.ProbeTimeout <= 0 {
		g.cfg.ProbeTimeout = _defaultProbeTimeout
	}
	return nil
}

func (g *gateway) Probe(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	cmd := process.Command(ctx, bin, "--version")
	cmd.Env = process.Environ(g.fs, bin)
	// Descendants holding the output pipes must not outlive the deadline.
	cmd.WaitDelay = time.Second

	out, err := g.executor.Run(cmd)
	return probeResult(g.cfg.Name, bin, out, err, ctx.Err())
}

// probeResult maps the outcome of a version check to the version or an InstallError.
func probeResult(name, bin string, out executor.Output, runErr, ctxErr error) (string, error) {
	retry := fmt.Sprintf("Try running `%s --version` in Terminal.", bin)

	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return "", &errors.InstallError{
			Summary:     fmt.Sprintf("Timed out while checking %s CLI.", name),
			Remediation: fmt.Sprintf("Make sure `%s --version` runs in Terminal.", bin),
			Err:         ctxErr,
		}
	case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, os.ErrNotExist):
		return "", &errors.InstallError{
			Summary:     fmt.Sprintf("%s CLI not found.", name),
			Remediation: fmt.Sprintf("Install %s and ensure `%s` is on your PATH.", name, bin),
			Err:         runErr,
		}
	case runErr != nil && out.ExitCode == -1 && !isExitError(runErr):
		return "", &errors.InstallError{
			Summary:     fmt.Sprintf("%s CLI failed to start: %v.", name, runErr),
			Remediation: retry,
			Err:         runErr,
		}
	case runErr != nil || out.ExitCode != 0:
		detail := strings.TrimSpace(out.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(out.Stdout)
		}
		summary := fmt.Sprintf("%s CLI failed to start.", name)
		if detail != "" {
			summary = fmt.Sprintf("%s CLI failed to start: %s.", name, detail)
		}
		return "", &errors.InstallError{Summary: summary, Remediation: retry, Err: runErr}
	}

	return strings.TrimSpace(out.Stdout), nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func (g *gateway) Spawn(ctx context.Context, entry entity.WorkspaceEntry) (entity.AgentSession, error) {
	s, err := g.spawn(ctx, entry)
	if err != nil {
		g.stats.Counter("spawn_failures").Inc(1)
		g.logger.Warnf("agent session for workspace %s failed to start: %s", entry.ID, err)
		return nil, err
	}
	return s, nil
}

func (g *gateway) spawn(ctx context.Context, entry entity.WorkspaceEntry) (*session, error) {
	bin := entry.ResolveBin(g.cfg.Bin)
	version, err := g.Probe(ctx, bin)
	if err != nil {
		return nil, err
	}

	args := g.cfg.Args
	if strings.TrimSpace(entry.AgentArgs) != "" {
		args = entry.AgentArgs
	}
	// The child outlives the request that spawned it; Close ends it.
	cmd, err := process.BuildCommand(context.Background(), g.fs, process.Launch{
		Bin:  bin,
		Args: args,
		Dir:  entry.Path,
		Home: g.cfg.Home,
	})
	if err != nil {
		return nil, err
	}

	p, err := attachPipes(cmd)
	if err != nil {
		return nil, err
	}
	if err := g.executor.Start(cmd); err != nil {
		// A failed Start closes the pipes itself.
		return nil, &errors.InstallError{
			Summary:     fmt.Sprintf("%s CLI failed to start: %v.", g.cfg.Name, err),
			Remediation: fmt.Sprintf("Check that `%s app-server` works in Terminal.", bin),
			Err:         err,
		}
	}

	s := newSession(sessionParams{
		Entry:     entry,
		Version:   version,
		Sink:      g.sink,
		Logger:    g.logger,
		Stats:     g.stats,
		StderrLog: g.openStderrLog(entry.ID),
		Cmd:       cmd,
		Pipes:     p,
	})
	s.start()

	if err := s.handshake(ctx, handshake{
		timeout: g.cfg.HandshakeTimeout,
		product: g.cfg.Name,
		bin:     bin,
	}); err != nil {
		return nil, multierr.Append(err, s.abort())
	}

	g.logger.Infof("agent session for workspace %s connected: %s %s (pid %d)", entry.ID, bin, version, cmd.Process.Pid)
	return s, nil
}

func (g *gateway) openStderrLog(workspaceID string) io.WriteCloser {
	if g.writers == nil {
		return nil
	}
	w, err := g.writers.Open(workspaceID)
	if err != nil {
		g.logger.Warnf("failed to open agent output log for workspace %s: %s", workspaceID, err)
		return nil
	}
	return w
}

func attachPipes(cmd *exec.Cmd) (pipes, error) {
	var (
		p   pipes
		err error
	)
	if p.stdin, err = cmd.StdinPipe(); err != nil {
		return p, err
	}
	if p.stdout, err = cmd.StdoutPipe(); err != nil {
		return p, multierr.Append(err, p.stdin.Close())
	}
	if p.stderr, err = cmd.StderrPipe(); err != nil {
		return p, multierr.Combine(err, p.stdin.Close(), p.stdout.Close())
	}
	return p, nil
}
