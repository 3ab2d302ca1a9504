//go:build windows

package discord

import (
	"fmt"
	"io"
	"os"
)

// dialIPC opens Discord's named pipe. Duplex open works for message pipes
// without extra win32 plumbing.
func dialIPC() (io.ReadWriteCloser, error) {
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i)
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no discord ipc pipe found")
}
