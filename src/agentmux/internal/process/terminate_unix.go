//go:build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Prepare places the child in its own process group so the whole tree can be signalled.
func Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Signal asks the process group led by pid to exit.
func Signal(pid int) error {
	return signalGroup(pid, unix.SIGTERM)
}

// Kill forcibly terminates the process group led by pid.
func Kill(pid int) error {
	return signalGroup(pid, unix.SIGKILL)
}

func signalGroup(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, sig)
	if err == unix.ESRCH {
		// The group may be gone while the leader is still a zombie; signal the leader directly.
		err = unix.Kill(pid, sig)
	}
	if err == unix.ESRCH {
		return nil
	}
	return err
}
