// Package sink provides byte sinks for PES output: decoder devices and
// files, generic writers and SRT connections.
package sink

import (
	"errors"
	"io"
	"net"
	"sync"
)

var ErrClosed = errors.New("Sink closed")

// Stream writes to any io.Writer.
// Network connections get a single writev through net.Buffers.
type Stream struct {
	mutex sync.Mutex
	w     io.Writer
}

func NewStream(w io.Writer) *Stream {
	return &Stream{w: w}
}

func (s *Stream) Ready() bool {
	return s != nil && s.w != nil
}

// Writev writes all buffers in order
func (s *Stream) Writev(bufs ...[]byte) (int, error) {
	if !s.Ready() {
		return 0, ErrClosed
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// WriteTo consumes the list, keep the caller's intact
	vec := make(net.Buffers, len(bufs))
	copy(vec, bufs)
	n, err := vec.WriteTo(s.w)
	return int(n), err
}

func total(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}
