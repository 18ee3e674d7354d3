package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// DefaultPIDFile is used when no pid file is configured and the working
// directory is unusable.
const DefaultPIDFile = "/var/run/atelier-apiserver.pid"

// GetPIDPath resolves filename against the working directory. Absolute paths
// are returned as is; a relative path whose parent directory is missing
// falls back to DefaultPIDFile.
func GetPIDPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	if filename == "" {
		return DefaultPIDFile
	}

	wd, err := os.Getwd()
	if err != nil || wd == "" {
		return DefaultPIDFile
	}
	abs := filepath.Join(wd, filename)
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return DefaultPIDFile
	}
	return abs
}

// WritePIDFile writes the current process id to path and returns a func
// removing it again. It refuses to overwrite the file of a process that is
// still running.
func WritePIDFile(path string) (func(), error) {
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() && processAlive(pid) {
			return nil, fmt.Errorf("pid file %s belongs to running process %d", path, pid)
		}
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return func() { _ = os.Remove(path) }, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
