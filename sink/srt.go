package sink

import (
	"fmt"
	"sync"
	"time"

	gosrt "github.com/datarhei/gosrt"

	"github.com/voc/vc1pes/pes"
)

type SRTConfig struct {
	Address     string // host:port of the SRT listener
	StreamID    string
	Passphrase  string
	LatencyMs   uint
	PayloadSize uint32
}

// SRT writes to an SRT connection in caller mode
type SRT struct {
	mutex sync.Mutex
	conn  gosrt.Conn
	pool  *sync.Pool
}

// DialSRT connects to an SRT listener
func DialSRT(config SRTConfig) (*SRT, error) {
	conf := gosrt.DefaultConfig()
	conf.StreamId = config.StreamID
	conf.Passphrase = config.Passphrase
	if config.LatencyMs > 0 {
		conf.Latency = time.Duration(config.LatencyMs) * time.Millisecond
	}
	if config.PayloadSize > 0 {
		conf.PayloadSize = config.PayloadSize
	}

	conn, err := gosrt.Dial("srt", config.Address, conf)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.Address, err)
	}
	return newSRT(conn), nil
}

func newSRT(conn gosrt.Conn) *SRT {
	return &SRT{
		conn: conn,
		pool: newBufferPool(pes.MaxHeaderSize + pes.MaxPacketSize),
	}
}

func (s *SRT) Ready() bool {
	if s == nil {
		return false
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn != nil
}

// Writev sends the buffers as one write on the connection
func (s *SRT) Writev(bufs ...[]byte) (int, error) {
	if s == nil {
		return 0, ErrClosed
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn == nil {
		return 0, ErrClosed
	}

	// Get buffer from pool and return it after the write
	buf := s.pool.Get().(*[]byte)
	defer s.pool.Put(buf)

	data := (*buf)[:0]
	if cap(data) < total(bufs) {
		data = make([]byte, 0, total(bufs))
	}
	for _, b := range bufs {
		data = append(data, b...)
	}
	*buf = data

	return s.conn.Write(data)
}

// Stats reads the connection statistics
func (s *SRT) Stats(stats *gosrt.Statistics) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn != nil {
		s.conn.Stats(stats)
	}
}

func (s *SRT) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
