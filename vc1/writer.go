// Package vc1 writes VC1 advanced profile access units as PES packets.
//
// The first access unit after a reset is preceded by the sequence layer
// metadata and the codec private data. Access units are split into packets
// of at most MaxPacketSize payload bytes. A frame start code is inserted in
// front of the first access unit of a stream unless the stream already
// carries it.
package vc1

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/pes"
)

// EncodingVC1 is the decoder encoding number for VC1
const EncodingVC1 = 10

var caps = codec.Caps{
	Name:         "vc1",
	Kind:         codec.KindVideo,
	TextEncoding: "V_VC1",
	Encoding:     EncodingVC1,
}

// Register adds the VC1 writer to a registry
func Register(r *codec.Registry) error {
	return r.Register(caps, []string{"V_VC1/*"}, func(opts codec.WriterOptions) codec.Writer {
		return NewWriter(WithMaxPacketSize(opts.MaxPacketSize), WithLogger(opts.Logger))
	})
}

type Option func(*Writer)

// WithMaxPacketSize limits the payload of a single PES packet
func WithMaxPacketSize(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.maxPacketSize = size
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(w *Writer) {
		if log != nil {
			w.log = log
		}
	}
}

type stats struct {
	accessUnits    atomic.Uint64
	packets        atomic.Uint64
	bytes          atomic.Uint64
	metadataWrites atomic.Uint64
	startCodes     atomic.Uint64
	writeErrors    atomic.Uint64
}

// Writer holds the state of one output stream.
// Reset and WriteData must be called from a single goroutine,
// Statistics may be called concurrently.
type Writer struct {
	log           *slog.Logger
	maxPacketSize int

	metadataEmitted bool
	frameStartSeen  bool

	header []byte
	stats  stats
}

// NewWriter creates a writer in its initial state
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		log:           slog.Default(),
		maxPacketSize: pes.MaxPacketSize,
		header:        make([]byte, 0, pes.MaxHeaderSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reset starts a new stream epoch
func (w *Writer) Reset() error {
	w.metadataEmitted = false
	w.frameStartSeen = false
	return nil
}

// WriteData writes one access unit, preceded by the stream metadata on the
// first call after Reset. It returns the number of bytes written.
// An unavailable sink is not an error, nothing is written.
func (w *Writer) WriteData(au codec.AccessUnit, params *codec.StreamParameters, sink codec.Sink) (int, error) {
	if sink == nil || !sink.Ready() {
		w.log.Debug("sink not ready, ignoring access unit")
		return 0, nil
	}

	total := 0
	if !w.metadataEmitted {
		n, err := w.emitMetadata(params, sink)
		total += n
		if err != nil {
			return total, err
		}
	}

	n, err := w.segment(au, sink)
	total += n
	return total, err
}

func (w *Writer) Caps() codec.Caps {
	return caps
}

func (w *Writer) Statistics() codec.Statistics {
	return codec.Statistics{
		AccessUnits:        w.stats.accessUnits.Load(),
		Packets:            w.stats.packets.Load(),
		Bytes:              w.stats.bytes.Load(),
		MetadataWrites:     w.stats.metadataWrites.Load(),
		StartCodesInserted: w.stats.startCodes.Load(),
		WriteErrors:        w.stats.writeErrors.Load(),
	}
}

// emitMetadata writes the sequence layer metadata followed by the codec
// private data. Both are attempted even if the first write fails.
func (w *Writer) emitMetadata(params *codec.StreamParameters, sink codec.Sink) (int, error) {
	if params == nil {
		params = &codec.StreamParameters{}
	}
	meta := SequenceMetadata{
		Height:        params.Height,
		Width:         params.Width,
		FrameInterval: params.FrameInterval,
	}
	payload, err := meta.MarshalBinary()
	if err != nil {
		return 0, err
	}
	w.log.Debug("writing sequence metadata",
		"width", meta.Width,
		"height", meta.Height,
		"frame_interval", meta.FrameInterval,
		"extradata", len(params.ExtraData))

	var firstErr error
	total, err := w.writePacket(sink, pes.NoPTS, nil, payload)
	if err != nil {
		firstErr = fmt.Errorf("sequence metadata: %w", err)
	}

	// the codec private data already is a VC1 sequence header
	n, err := w.writePacket(sink, pes.NoPTS, nil, params.ExtraData)
	total += n
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("extradata: %w", err)
	}

	w.metadataEmitted = true
	w.stats.metadataWrites.Add(1)
	return total, firstErr
}

// segment writes an access unit as one or more packets.
// Only the first packet carries the timestamp.
func (w *Writer) segment(au codec.AccessUnit, sink codec.Sink) (int, error) {
	if len(au.Data) == 0 {
		return 0, nil
	}
	w.stats.accessUnits.Add(1)

	written := 0
	pts := au.PTS
	for pos := 0; pos < len(au.Data); {
		size := min(len(au.Data)-pos, w.maxPacketSize)

		var marker []byte
		if pos == 0 && !w.frameStartSeen {
			w.frameStartSeen = true
			if !bytes.HasPrefix(au.Data, frameStartMarker[:]) {
				marker = frameStartMarker[:]
				w.stats.startCodes.Add(1)
			}
		}

		n, err := w.writePacket(sink, pts, marker, au.Data[pos:pos+size])
		written += n
		if err != nil {
			return written, fmt.Errorf("access unit at offset %d: %w", pos, err)
		}

		pos += size
		pts = pes.NoPTS
	}
	return written, nil
}

// writePacket writes header, prefix and payload in one vectored write.
// The packet length covers the payload only, the prefix follows the header
// uncounted.
func (w *Writer) writePacket(sink codec.Sink, pts uint64, prefix, payload []byte) (int, error) {
	h := pes.Header{
		StreamID:      pes.StreamIDVC1Video,
		PayloadLength: len(payload),
		PTS:           pts,
	}
	w.header = h.AppendTo(w.header[:0])
	w.header = append(w.header, prefix...)
	expected := len(w.header) + len(payload)

	n, err := sink.Writev(w.header, payload)
	if n < 0 {
		n = 0
	}
	if err == nil && n < expected {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.stats.writeErrors.Add(1)
		return n, err
	}

	w.stats.packets.Add(1)
	w.stats.bytes.Add(uint64(n))
	return n, nil
}
