package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"go.uber.org/goleak"
)

func TestDependenciesAreSatisfied(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(opts()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, base string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte("files:\n  - base.yaml\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// serveOnce answers the first request on one connection with {"echo": <method>}.
func serveOnce(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan struct{})
	t.Cleanup(func() {
		ln.Close()
		<-done
	})

	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			return
		}
		msg := gjson.ParseBytes(line)
		fmt.Fprintf(conn, `{"id":%d,"result":{"echo":%q}}`+"\n", msg.Get("id").Uint(), msg.Get("method").String())
	}()
	return ln.Addr().String()
}

func TestCallCommand(t *testing.T) {
	t.Setenv("AGENTMUX_CONFIG_DIR", "")

	t.Run("prints the result", func(t *testing.T) {
		addr := serveOnce(t)
		dir := writeConfig(t, "daemon:\n  address: "+addr+"\n  token: \"\"\n")

		out, err := execute(t, "--config-dir", dir, "call", "list_workspaces")
		require.NoError(t, err)
		assert.JSONEq(t, `{"echo":"list_workspaces"}`, out)
	})

	t.Run("running daemon's info file wins over the configured address", func(t *testing.T) {
		addr := serveOnce(t)
		info := filepath.Join(t.TempDir(), "info.json")
		require.NoError(t, os.WriteFile(info, []byte(`{"daemon-address":"`+addr+`","pid":"1"}`), 0o644))
		dir := writeConfig(t, "serverInfoFilePath: "+info+"\ndaemon:\n  address: 127.0.0.1:1\n  token: \"\"\n")

		out, err := execute(t, "--config-dir", dir, "call", "get_info")
		require.NoError(t, err)
		assert.JSONEq(t, `{"echo":"get_info"}`, out)
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := execute(t, "call", "--address", "127.0.0.1:1", "ping", `{`)
		assert.ErrorContains(t, err, "params must be a JSON value")
	})

	t.Run("missing method", func(t *testing.T) {
		_, err := execute(t, "call")
		assert.Error(t, err)
	})
}

func TestProbeCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the agent binary")
	}
	t.Setenv("AGENTMUX_CONFIG_DIR", "")
	bin := filepath.Join(t.TempDir(), "fake-codex")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'codex-cli 1.2.3'\n"), 0o755))
	dir := writeConfig(t, "agent:\n  name: Codex\n  bin: "+bin+"\n  probeTimeout: 5s\n")

	out, err := execute(t, "--config-dir", dir, "probe")
	require.NoError(t, err)
	assert.Equal(t, bin+": codex-cli 1.2.3\n", out)

	_, err = execute(t, "--config-dir", dir, "probe", "--bin", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "Codex CLI not found")
}
