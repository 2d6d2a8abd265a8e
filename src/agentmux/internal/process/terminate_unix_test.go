//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillProcessGroup(t *testing.T) {
	if _, err := exec.LookPath("sh"); errors.Is(err, exec.ErrNotFound) {
		t.Skip("no sh available")
	}

	// The shell forks a grandchild that would outlive a plain Process.Kill.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	Prepare(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, Signal(cmd.Process.Pid))
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		require.NoError(t, Kill(cmd.Process.Pid))
		<-done
		t.Fatal("process group ignored SIGTERM")
	}

	// Signalling an exited group is not an error.
	assert.NoError(t, Kill(cmd.Process.Pid))
}

func TestSignalInvalidPid(t *testing.T) {
	assert.NoError(t, Signal(0))
	assert.NoError(t, Kill(-1))
}
