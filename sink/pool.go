package sink

import "sync"

func newBufferPool(size int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, size)
			return &buf
		},
	}
}
