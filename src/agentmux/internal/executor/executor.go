package executor

import (
	"bytes"
	"io"
	"os/exec"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(func(logger *zap.SugaredLogger) Executor {
	return NewExecutor(WithLogger(logger))
})

// Executor wraps the execution of "os/exec".Cmd's to allow adding logs to each exec and makes it easier to test.
type Executor interface {
	// Start logs and starts cmd without waiting for it to exit.
	Start(cmd *exec.Cmd) error
	// Run logs and runs cmd to completion, capturing its Stdout/Stderr.
	Run(cmd *exec.Cmd) (Output, error)
}

// Output is the captured result of Run.
type Output struct {
	Stdout string
	Stderr string
	// ExitCode is -1 when the process did not start or was killed by a signal.
	ExitCode int
}

// executorImp implements Executor
type executorImp struct {
	Logger *zap.SugaredLogger
	// ExecFunc and StartFunc may be nil to use executorImp in tests.
	ExecFunc  func(e *exec.Cmd) error
	StartFunc func(e *exec.Cmd) error
}

// Option defines options to customize executorImp's behavior
type Option func(*executorImp)

// WithLogger overrides the default noop logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *executorImp) {
		executor.Logger = logger
	}
}

// WithExecFunc provides customized run behavior for executorImp
func WithExecFunc(execFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.ExecFunc = execFunc
	}
}

// WithStartFunc provides customized start behavior for executorImp
func WithStartFunc(startFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.StartFunc = startFunc
	}
}

// NewExecutor creates a new executorImp with a noop logger and the os/exec behavior.
func NewExecutor(opts ...Option) Executor {
	executor := &executorImp{
		Logger:    zap.NewNop().Sugar(),
		ExecFunc:  func(cmd *exec.Cmd) error { return cmd.Run() },
		StartFunc: func(cmd *exec.Cmd) error { return cmd.Start() },
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Start logs the Path/Args and calls StartFunc if it is set.
func (l *executorImp) Start(cmd *exec.Cmd) error {
	if err := l.logCommand("start", cmd); err != nil {
		return err
	}

	if l.StartFunc == nil {
		l.Logger.Warn("missing StartFunc - skipped execution")
		return nil
	}
	return l.StartFunc(cmd)
}

// Run logs the Path/Args and calls ExecFunc if it is set.
func (l *executorImp) Run(cmd *exec.Cmd) (Output, error) {
	if err := l.logCommand("run", cmd); err != nil {
		return Output{ExitCode: -1}, err
	}

	if l.ExecFunc == nil {
		l.Logger.Warn("missing ExecFunc - skipped execution")
		return Output{}, nil
	}

	var stdoutB, stderrB bytes.Buffer
	cmd.Stdout = &stdoutB
	cmd.Stderr = &stderrB
	err := l.ExecFunc(cmd)

	return Output{
		Stdout:   stdoutB.String(),
		Stderr:   stderrB.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, err
}

// Logs the command specified: Path, Dir, Args, Stdin (if it is a buffered reader)
func (l *executorImp) logCommand(mode string, cmd *exec.Cmd) error {
	logKeysAndValues := []interface{}{
		"mode", mode,
		"path", cmd.Path,
		"dir", cmd.Dir,
		"args", cmd.Args[1:], // First arg is always the command itself
	}

	// Pipes stay untouched; only in-memory input is captured.
	if r, ok := cmd.Stdin.(interface {
		io.Reader
		Len() int
	}); ok {
		stdinBytes, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		logKeysAndValues = append(logKeysAndValues, "stdin", string(stdinBytes))
		cmd.Stdin = bytes.NewReader(stdinBytes)
	}

	l.Logger.Infow("exec", logKeysAndValues...)
	return nil
}
