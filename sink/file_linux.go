//go:build linux

package sink

import (
	"os"

	"golang.org/x/sys/unix"
)

func writev(f *os.File, bufs [][]byte) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var werr error
	err = rc.Write(func(fd uintptr) bool {
		n, werr = unix.Writev(int(fd), bufs)
		return werr != unix.EAGAIN
	})
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, err
	}
	if werr != nil {
		return n, &os.PathError{Op: "writev", Path: f.Name(), Err: werr}
	}
	return n, nil
}
