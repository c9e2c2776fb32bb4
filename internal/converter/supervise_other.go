//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package converter

import "os/exec"

// supervise keeps exec's default cancellation, which kills the direct child only
func supervise(cmd *exec.Cmd) {}
