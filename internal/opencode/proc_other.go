//go:build !unix

package opencode

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup falls back to killing only the immediate child on platforms
// without process groups.
func signalGroup(cmd *exec.Cmd, force bool) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
