//go:build !linux

package sink

import (
	"net"
	"os"
)

func writev(f *os.File, bufs [][]byte) (int, error) {
	vec := make(net.Buffers, len(bufs))
	copy(vec, bufs)
	n, err := vec.WriteTo(f)
	return int(n), err
}
