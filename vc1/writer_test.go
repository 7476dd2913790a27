package vc1

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/pes"
	"gotest.tools/v3/assert"
)

// testSink records every vectored write as one packet
type testSink struct {
	notReady bool
	failAt   int // 1-based write call to fail, 0 never
	shortAt  int // 1-based write call to cut short, 0 never

	calls   int
	packets [][]byte
}

var errTestSink = errors.New("test sink failure")

func (s *testSink) Ready() bool {
	return !s.notReady
}

func (s *testSink) Writev(bufs ...[]byte) (int, error) {
	s.calls++
	if s.calls == s.failAt {
		return -1, errTestSink
	}
	var pkt []byte
	for _, b := range bufs {
		pkt = append(pkt, b...)
	}
	if s.calls == s.shortAt {
		return len(pkt) / 2, nil
	}
	s.packets = append(s.packets, pkt)
	return len(pkt), nil
}

func (s *testSink) parsed(t *testing.T) []pes.Packet {
	t.Helper()
	pkts := make([]pes.Packet, 0, len(s.packets))
	for _, data := range s.packets {
		pkt, n, err := pes.Scan(data, true)
		assert.NilError(t, err)
		assert.Equal(t, n, len(data))
		assert.Equal(t, pkt.StreamID, byte(pes.StreamIDVC1Video))
		pkts = append(pkts, pkt)
	}
	return pkts
}

func testParams() *codec.StreamParameters {
	return &codec.StreamParameters{
		Width:         1920,
		Height:        1080,
		FrameInterval: FrameInterval(24000, 1001),
		ExtraData:     []byte{0x00, 0x00, 0x01, 0x0f, 0xca, 0x86, 0x0e, 0xf0},
	}
}

func payload(size int, seed byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func TestWriter_FirstAccessUnit(t *testing.T) {
	sink := &testSink{}
	w := NewWriter(WithMaxPacketSize(2048))
	params := testParams()
	const pts = 900000

	data := payload(5000, 0x10)
	n, err := w.WriteData(codec.AccessUnit{Data: data, PTS: pts}, params, sink)
	assert.NilError(t, err)

	total := 0
	for _, p := range sink.packets {
		total += len(p)
	}
	assert.Equal(t, n, total)

	pkts := sink.parsed(t)
	assert.Equal(t, len(pkts), 5)

	// metadata and extradata without timestamp
	var meta SequenceMetadata
	assert.NilError(t, meta.UnmarshalBinary(pkts[0].Payload))
	assert.Equal(t, meta.Width, uint32(1920))
	assert.Equal(t, meta.Height, uint32(1080))
	assert.Equal(t, meta.FrameInterval, uint32(417083))
	assert.Assert(t, !pkts[0].HasPTS())
	assert.DeepEqual(t, pkts[1].Payload, params.ExtraData)
	assert.Assert(t, !pkts[1].HasPTS())

	// packet length counts header extension and chunk, not the marker
	assert.DeepEqual(t, sink.packets[2][4:6], []byte{0x08, 0x08}) // 3 + 5 + 2048
	assert.DeepEqual(t, sink.packets[2][14:18], frameStartMarker[:])
	assert.DeepEqual(t, sink.packets[3][4:6], []byte{0x08, 0x03}) // 3 + 2048
	assert.DeepEqual(t, sink.packets[4][4:6], []byte{0x03, 0x8b}) // 3 + 904
	assert.DeepEqual(t, sink.packets[0][4:6], []byte{0x00, 0x2b}) // 3 + 40

	// frame chunks: marker + 2048, 2048, 904
	chunks := pkts[2:]
	assert.Equal(t, len(chunks[0].Payload), 4+2048)
	assert.Equal(t, len(chunks[1].Payload), 2048)
	assert.Equal(t, len(chunks[2].Payload), 904)
	assert.DeepEqual(t, chunks[0].Payload[:4], frameStartMarker[:])

	assert.Equal(t, chunks[0].PTS, uint64(pts))
	assert.Assert(t, !chunks[1].HasPTS())
	assert.Assert(t, !chunks[2].HasPTS())

	// lossless reassembly
	var got []byte
	got = append(got, chunks[0].Payload[4:]...)
	got = append(got, chunks[1].Payload...)
	got = append(got, chunks[2].Payload...)
	assert.DeepEqual(t, got, data)

	stats := w.Statistics()
	assert.Equal(t, stats.AccessUnits, uint64(1))
	assert.Equal(t, stats.Packets, uint64(5))
	assert.Equal(t, stats.Bytes, uint64(n))
	assert.Equal(t, stats.MetadataWrites, uint64(1))
	assert.Equal(t, stats.StartCodesInserted, uint64(1))
}

func TestWriter_MetadataOncePerEpoch(t *testing.T) {
	sink := &testSink{}
	w := NewWriter(WithMaxPacketSize(2048))
	params := testParams()

	for i := 0; i < 10; i++ {
		_, err := w.WriteData(codec.AccessUnit{Data: payload(100, byte(i)), PTS: uint64(i)}, params, sink)
		assert.NilError(t, err)
	}

	metadata := 0
	for i, pkt := range sink.parsed(t) {
		if IsSequenceMetadata(pkt.Payload) {
			metadata++
			assert.Equal(t, i, 0)
		}
	}
	assert.Equal(t, metadata, 1)
	assert.Equal(t, len(sink.packets), 2+10)
}

func TestWriter_StartCodeInsertedOnce(t *testing.T) {
	sink := &testSink{}
	w := NewWriter()

	for i := 0; i < 5; i++ {
		_, err := w.WriteData(codec.AccessUnit{Data: []byte{0xaa, 0xbb, 0xcc}, PTS: pes.NoPTS}, testParams(), sink)
		assert.NilError(t, err)
	}

	pkts := sink.parsed(t)[2:]
	assert.DeepEqual(t, pkts[0].Payload, []byte{0x00, 0x00, 0x01, 0x0d, 0xaa, 0xbb, 0xcc})
	for _, pkt := range pkts[1:] {
		assert.DeepEqual(t, pkt.Payload, []byte{0xaa, 0xbb, 0xcc})
	}
	assert.Equal(t, w.Statistics().StartCodesInserted, uint64(1))
}

func TestWriter_StartCodePresent(t *testing.T) {
	sink := &testSink{}
	w := NewWriter()

	first := []byte{0x00, 0x00, 0x01, 0x0d, 0x11, 0x22}
	second := []byte{0x33, 0x44}
	_, err := w.WriteData(codec.AccessUnit{Data: first, PTS: 1}, testParams(), sink)
	assert.NilError(t, err)
	_, err = w.WriteData(codec.AccessUnit{Data: second, PTS: 2}, testParams(), sink)
	assert.NilError(t, err)

	pkts := sink.parsed(t)[2:]
	assert.DeepEqual(t, pkts[0].Payload, first)
	assert.DeepEqual(t, pkts[1].Payload, second)
	assert.Equal(t, w.Statistics().StartCodesInserted, uint64(0))
}

func TestWriter_ChunkSizeAndTimestamps(t *testing.T) {
	sink := &testSink{}
	const maxSize = 1000
	w := NewWriter(WithMaxPacketSize(maxSize))

	sizes := []int{1, 999, 1000, 1001, 4321}
	for i, size := range sizes {
		start := len(sink.packets)
		data := payload(size, byte(i))
		_, err := w.WriteData(codec.AccessUnit{Data: data, PTS: uint64(1000 + i)}, testParams(), sink)
		assert.NilError(t, err)

		pkts := sink.parsed(t)[start:]
		if i == 0 {
			pkts = pkts[2:]
		}

		var got []byte
		for j, pkt := range pkts {
			body := pkt.Payload
			if i == 0 && j == 0 {
				body = body[4:]
			}
			assert.Assert(t, len(body) <= maxSize)
			if j == 0 {
				assert.Equal(t, pkt.PTS, uint64(1000+i))
			} else {
				assert.Assert(t, !pkt.HasPTS())
			}
			got = append(got, body...)
		}
		assert.Assert(t, bytes.Equal(got, data), "access unit %d not reassembled", i)
		assert.Equal(t, len(pkts), (size+maxSize-1)/maxSize)
	}
}

func TestWriter_ResetReproducesOutput(t *testing.T) {
	units := []codec.AccessUnit{
		{Data: payload(3000, 1), PTS: 0},
		{Data: payload(10, 2), PTS: 3754},
		{Data: payload(2048, 3), PTS: 7508},
	}
	w := NewWriter(WithMaxPacketSize(2048))

	run := func() [][]byte {
		sink := &testSink{}
		for _, au := range units {
			_, err := w.WriteData(au, testParams(), sink)
			assert.NilError(t, err)
		}
		return sink.packets
	}

	first := run()
	assert.NilError(t, w.Reset())
	assert.NilError(t, w.Reset())
	second := run()
	assert.DeepEqual(t, first, second)

	fresh := NewWriter(WithMaxPacketSize(2048))
	sink := &testSink{}
	for _, au := range units {
		_, err := fresh.WriteData(au, testParams(), sink)
		assert.NilError(t, err)
	}
	assert.DeepEqual(t, sink.packets, first)
}

func TestWriter_EmptyAccessUnit(t *testing.T) {
	sink := &testSink{}
	w := NewWriter()

	_, err := w.WriteData(codec.AccessUnit{PTS: 1}, testParams(), sink)
	assert.NilError(t, err)
	// metadata only
	assert.Equal(t, len(sink.packets), 2)

	n, err := w.WriteData(codec.AccessUnit{Data: []byte{}, PTS: 2}, testParams(), sink)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
	assert.Equal(t, len(sink.packets), 2)
	assert.Equal(t, w.Statistics().AccessUnits, uint64(0))
}

func TestWriter_SinkNotReady(t *testing.T) {
	w := NewWriter()

	n, err := w.WriteData(codec.AccessUnit{Data: []byte{1}}, testParams(), &testSink{notReady: true})
	assert.NilError(t, err)
	assert.Equal(t, n, 0)

	n, err = w.WriteData(codec.AccessUnit{Data: []byte{1}}, testParams(), nil)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)

	// metadata is still pending for the first ready sink
	sink := &testSink{}
	_, err = w.WriteData(codec.AccessUnit{Data: []byte{1}}, testParams(), sink)
	assert.NilError(t, err)
	assert.Equal(t, len(sink.packets), 3)
}

func TestWriter_ChunkWriteError(t *testing.T) {
	sink := &testSink{failAt: 4}
	w := NewWriter(WithMaxPacketSize(100))

	n, err := w.WriteData(codec.AccessUnit{Data: payload(350, 0)}, testParams(), sink)
	assert.ErrorIs(t, err, errTestSink)
	assert.Equal(t, sink.calls, 4) // no writes after the failure

	written := 0
	for _, p := range sink.packets {
		written += len(p)
	}
	assert.Equal(t, n, written)
	assert.Equal(t, w.Statistics().WriteErrors, uint64(1))

	// state is kept, no metadata on the next call
	sink.failAt = 0
	sink.packets = nil
	_, err = w.WriteData(codec.AccessUnit{Data: payload(10, 0)}, testParams(), sink)
	assert.NilError(t, err)
	assert.Equal(t, len(sink.packets), 1)
	assert.DeepEqual(t, sink.parsed(t)[0].Payload, payload(10, 0))
}

func TestWriter_ShortWrite(t *testing.T) {
	sink := &testSink{shortAt: 3}
	w := NewWriter()

	_, err := w.WriteData(codec.AccessUnit{Data: payload(10, 0)}, testParams(), sink)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestWriter_MetadataError(t *testing.T) {
	sink := &testSink{failAt: 1}
	w := NewWriter()

	_, err := w.WriteData(codec.AccessUnit{Data: payload(10, 0)}, testParams(), sink)
	assert.ErrorIs(t, err, errTestSink)
	// extradata is still attempted, the access unit is not
	assert.Equal(t, sink.calls, 2)
	assert.Equal(t, len(sink.packets), 1)

	// metadata counts as sent until the next reset
	sink.packets = nil
	_, err = w.WriteData(codec.AccessUnit{Data: payload(10, 0)}, testParams(), sink)
	assert.NilError(t, err)
	assert.Equal(t, len(sink.packets), 1)

	assert.NilError(t, w.Reset())
	sink.packets = nil
	_, err = w.WriteData(codec.AccessUnit{Data: payload(10, 0)}, testParams(), sink)
	assert.NilError(t, err)
	assert.Equal(t, len(sink.packets), 3)
}

func TestWriter_Caps(t *testing.T) {
	got := NewWriter().Caps()
	assert.Equal(t, got.Name, "vc1")
	assert.Equal(t, got.Kind, codec.KindVideo)
	assert.Equal(t, got.TextEncoding, "V_VC1")
	assert.Equal(t, got.Encoding, EncodingVC1)

	r := codec.NewRegistry()
	assert.NilError(t, Register(r))
	factory, _, err := r.Lookup("V_VC1")
	assert.NilError(t, err)
	assert.Equal(t, factory(codec.WriterOptions{}).Caps(), got)
}
