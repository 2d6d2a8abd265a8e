//go:build !windows

package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/entity/entitymock"
	"github.com/agentmux/agentmux/src/agentmux/factory"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/repository/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

const _waitTimeout = 10 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type env struct {
	lc     *fxtest.Lifecycle
	c      Controller
	events chan entity.DaemonEvent
	stats  tally.TestScope
	dir    string
}

func newEnv(t *testing.T) *env {
	ctrl := gomock.NewController(t)
	e := &env{
		lc:     fxtest.NewLifecycle(t),
		events: make(chan entity.DaemonEvent, 4096),
		stats:  tally.NewTestScope("testing", nil),
		dir:    t.TempDir(),
	}

	sessions := session.New(session.Params{})
	s := entitymock.NewMockAgentSession(ctrl)
	s.EXPECT().Entry().Return(factory.WorkspaceEntry(1, e.dir)).AnyTimes()
	require.NoError(t, sessions.Add(context.Background(), s))

	e.c = New(Params{
		Lifecycle: e.lc,
		Sessions:  sessions,
		Sink:      entity.EventSinkFunc(func(ev entity.DaemonEvent) { e.events <- ev }),
		Stats:     e.stats,
	})
	e.lc.RequireStart()
	return e
}

func (e *env) open(t *testing.T) string {
	res, err := e.c.Open(context.Background(), entity.TerminalOpenRequest{
		WorkspaceID: "ws-1",
		Cols:        80,
		Rows:        24,
		Shell:       "/bin/sh",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.TerminalID, _idPrefix))
	return res.TerminalID
}

// waitForOutput collects output of terminalID until it contains want.
func (e *env) waitForOutput(t *testing.T, terminalID, want string) {
	var out strings.Builder
	deadline := time.After(_waitTimeout)
	for {
		select {
		case ev := <-e.events:
			if o, ok := ev.(entity.TerminalOutput); ok && o.TerminalID == terminalID {
				assert.Equal(t, "ws-1", o.WorkspaceID)
				out.WriteString(o.Data)
				if strings.Contains(out.String(), want) {
					return
				}
			}
		case <-deadline:
			t.Fatalf("output %q never contained %q", out.String(), want)
		}
	}
}

func (e *env) waitForExit(t *testing.T, terminalID string) entity.TerminalExit {
	deadline := time.After(_waitTimeout)
	for {
		select {
		case ev := <-e.events:
			if x, ok := ev.(entity.TerminalExit); ok && x.TerminalID == terminalID {
				return x
			}
		case <-deadline:
			t.Fatalf("terminal %s did not exit", terminalID)
		}
	}
}

func TestTerminal(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.open(t)

	require.NoError(t, e.c.Write(ctx, id, "echo hello-$((1+2)); pwd\n"))
	e.waitForOutput(t, id, "hello-3")

	require.NoError(t, e.c.Resize(ctx, entity.TerminalResizeRequest{TerminalID: id, Cols: 120, Rows: 40}))
	require.NoError(t, e.c.Write(ctx, id, "stty size\n"))
	e.waitForOutput(t, id, "40 120")

	require.NoError(t, e.c.Write(ctx, id, "exit 3\n"))
	assert.Equal(t, entity.TerminalExit{WorkspaceID: "ws-1", TerminalID: id, ExitCode: 3}, e.waitForExit(t, id))

	var notFound *errors.TerminalNotFoundError
	assert.ErrorAs(t, e.c.Write(ctx, id, "ls\n"), &notFound)
	assert.ErrorAs(t, e.c.Resize(ctx, entity.TerminalResizeRequest{TerminalID: id, Cols: 1, Rows: 1}), &notFound)
	assert.ErrorAs(t, e.c.Close(ctx, id), &notFound)

	e.lc.RequireStop()
}

func TestOpenUnknownWorkspace(t *testing.T) {
	e := newEnv(t)
	_, err := e.c.Open(context.Background(), entity.TerminalOpenRequest{WorkspaceID: "ws-9"})
	id, ok := errors.NotFoundWorkspace(err)
	assert.True(t, ok)
	assert.Equal(t, "ws-9", id)
	e.lc.RequireStop()
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.open(t)

	require.NoError(t, e.c.Close(ctx, id))
	exit := e.waitForExit(t, id)
	assert.NotEqual(t, 0, exit.ExitCode)

	gauge := e.stats.Snapshot().Gauges()["testing.terminals.open+"]
	require.NotNil(t, gauge)
	assert.Equal(t, float64(0), gauge.Value())
	e.lc.RequireStop()
}

func TestCloseWorkspace(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	first, second := e.open(t), e.open(t)

	require.NoError(t, e.c.CloseWorkspace(ctx, "ws-1"))
	exited := map[string]bool{}
	exited[e.waitForExit(t, first).TerminalID] = true
	exited[e.waitForExit(t, second).TerminalID] = true
	assert.Len(t, exited, 2)

	assert.NoError(t, e.c.CloseWorkspace(ctx, "ws-2"))
	e.lc.RequireStop()
}

func TestStopClosesTerminals(t *testing.T) {
	e := newEnv(t)
	id := e.open(t)
	e.lc.RequireStop()
	e.waitForExit(t, id)
}

func TestSplitUTF8(t *testing.T) {
	euro := []byte("€") // e2 82 ac
	tests := []struct {
		name         string
		in           []byte
		wantComplete string
		wantRest     []byte
	}{
		{name: "ascii", in: []byte("abc"), wantComplete: "abc"},
		{name: "complete rune", in: append([]byte("a"), euro...), wantComplete: "a€"},
		{name: "one byte of three", in: append([]byte("a"), euro[0]), wantComplete: "a", wantRest: euro[:1]},
		{name: "two bytes of three", in: append([]byte("a"), euro[:2]...), wantComplete: "a", wantRest: euro[:2]},
		{name: "empty", in: nil, wantComplete: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			complete, rest := splitUTF8(tt.in)
			assert.Equal(t, tt.wantComplete, string(complete))
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestResolveShell(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	assert.Equal(t, "/bin/bash", resolveShell("/bin/bash"))
	assert.Equal(t, "/bin/zsh", resolveShell(""))

	t.Setenv("SHELL", "")
	assert.Equal(t, _defaultShell, resolveShell(""))
}
