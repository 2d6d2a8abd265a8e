//go:build windows

package process

import (
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// Prepare hides the console window of the child.
func Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NO_WINDOW
}

// Signal terminates the process tree rooted at pid. Windows has no graceful group signal.
func Signal(pid int) error {
	return Kill(pid)
}

// Kill terminates the process tree rooted at pid with taskkill.
func Kill(pid int) error {
	if pid <= 0 {
		return nil
	}
	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F")
	Prepare(cmd)
	return cmd.Run()
}
