//go:build !windows

package discord

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

// dialIPC probes the sockets Discord may be listening on. Multiple clients
// bump the suffix, so all ten candidates are tried.
func dialIPC() (io.ReadWriteCloser, error) {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.Getenv("TMPDIR")
	}
	if base == "" {
		base = "/tmp"
	}

	for i := 0; i < 10; i++ {
		path := filepath.Join(base, fmt.Sprintf("discord-ipc-%d", i))
		conn, err := net.DialTimeout("unix", path, time.Second)
		if err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("no discord ipc socket in %s", base)
}
