package sink

import (
	"os"
	"sync"
)

// File writes to a decoder device or a regular file
type File struct {
	mutex sync.Mutex
	f     *os.File
}

// OpenFile opens a device node or creates a file for writing
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// NewFile wraps an already opened file
func NewFile(f *os.File) *File {
	return &File{f: f}
}

// Ready is false for a closed or nil sink
func (s *File) Ready() bool {
	if s == nil {
		return false
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.f != nil
}

// Writev writes all buffers in one system call where the platform allows
func (s *File) Writev(bufs ...[]byte) (int, error) {
	if s == nil {
		return 0, ErrClosed
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.f == nil {
		return 0, ErrClosed
	}
	return writev(s.f, bufs)
}

func (s *File) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
