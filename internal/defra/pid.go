package defra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// WritePidFile records the current process so other commands can tell
// whether a server owns the container.
func WritePidFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemovePidFile deletes the pid file, ignoring errors.
func RemovePidFile(path string) {
	_ = os.Remove(path)
}

// ServerRunning reports the pid recorded at path when that process is alive.
func ServerRunning(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// Signal 0 only checks for existence.
	if proc.Signal(syscall.Signal(0)) != nil {
		return 0, false
	}
	return pid, true
}

// ErrServerOwnsContainer is returned when a command would stop a container
// that a running server depends on.
func ErrServerOwnsContainer(pid int) error {
	return fmt.Errorf("server (pid %d) is using DefraDB; stop it first", pid)
}
