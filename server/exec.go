package server

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// StartFunc launches argv and returns the pid of the new process.
type StartFunc func(argv []string) (pid int, err error)

// StartDetached starts argv in its own session so that it outlives the
// daemon, and reaps it in the background.
func StartDetached(argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}
