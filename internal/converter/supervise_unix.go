//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package converter

import (
	"os/exec"
	"syscall"
)

// supervise puts the engine in its own process group so a timeout kills
// helper processes it spawned as well (soffice.bin, ffmpeg filters).
func supervise(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
