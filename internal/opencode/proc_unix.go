//go:build unix

package opencode

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so signals
// reach opencode and everything it spawns.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup signals the child's process group: SIGTERM for a graceful
// stop, SIGKILL when force is set. Falls back to signaling the process
// alone if the group is gone.
func signalGroup(cmd *exec.Cmd, force bool) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err == nil {
		return nil
	}
	return cmd.Process.Signal(sig)
}
