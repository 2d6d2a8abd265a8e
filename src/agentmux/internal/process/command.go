package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/google/shlex"
)

// AppServerSubcommand is the final argument of every agent session command.
const AppServerSubcommand = "app-server"

// Launch describes the child process of one agent session.
type Launch struct {
	Bin string
	// Args are shell-words arguments placed before the app-server subcommand.
	Args string
	// Dir is the working directory of the child.
	Dir string
	// Home is exported as CODEX_HOME when non-empty.
	Home string
}

// Command builds the exec.Cmd for bin. On Windows, .js files run through node and .cmd/.bat
// wrappers run through cmd /C; everything else is executed directly.
func Command(ctx context.Context, bin string, args ...string) *exec.Cmd {
	name, prefix := launcher(runtime.GOOS, bin)
	cmd := exec.CommandContext(ctx, name, append(prefix, args...)...)
	Prepare(cmd)
	cmd.Cancel = func() error {
		return Kill(cmd.Process.Pid)
	}
	return cmd
}

// BuildCommand returns the command for an agent session: the launcher for l.Bin, the extra
// arguments, then the app-server subcommand, with PATH augmented for the binary.
func BuildCommand(ctx context.Context, fsys fs.MuxFS, l Launch) (*exec.Cmd, error) {
	cmd := Command(ctx, l.Bin)
	if err := ApplyArgs(cmd, l.Args); err != nil {
		return nil, err
	}
	cmd.Args = append(cmd.Args, AppServerSubcommand)
	cmd.Dir = l.Dir
	cmd.Env = Environ(fsys, l.Bin)
	if l.Home != "" {
		cmd.Env = append(cmd.Env, "CODEX_HOME="+l.Home)
	}
	return cmd, nil
}

// Environ returns the current environment with PATH replaced by BuildPathEnv.
func Environ(fsys fs.MuxFS, bin string) []string {
	return withPath(os.Environ(), BuildPathEnv(fsys, bin))
}

func withPath(environ []string, path string) []string {
	env := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if strings.HasPrefix(strings.ToUpper(kv), "PATH=") {
			continue
		}
		env = append(env, kv)
	}
	if path != "" {
		env = append(env, "PATH="+path)
	}
	return env
}

func launcher(goos, bin string) (string, []string) {
	if goos != "windows" {
		return bin, nil
	}
	lower := strings.ToLower(bin)
	switch {
	case strings.HasSuffix(lower, ".js"):
		return "node", []string{bin}
	case strings.HasSuffix(lower, ".cmd"), strings.HasSuffix(lower, ".bat"):
		return "cmd", []string{"/C", bin}
	default:
		return bin, nil
	}
}

// SplitArgs splits a shell-words argument string, dropping empty words.
func SplitArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	words, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid agent args: %w", err)
	}
	args := words[:0]
	for _, w := range words {
		if w != "" {
			args = append(args, w)
		}
	}
	return args, nil
}

// ApplyArgs appends the shell-words arguments in raw to cmd.
func ApplyArgs(cmd *exec.Cmd, raw string) error {
	args, err := SplitArgs(raw)
	if err != nil {
		return err
	}
	cmd.Args = append(cmd.Args, args...)
	return nil
}
