package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/voc/vc1pes/pes"
	"github.com/voc/vc1pes/vc1"
)

// probe reassembles PES packets from arbitrary reads and describes them
type probe struct {
	out     io.Writer
	buf     []byte
	packets int
}

func newProbe(out io.Writer) *probe {
	return &probe{out: out}
}

// Write consumes stream data and prints every complete packet
func (p *probe) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	if err := p.drain(false); err != nil {
		return len(b), err
	}

	// keep the remainder at the front of the buffer
	p.buf = append(p.buf[:0:0], p.buf...)
	return len(b), nil
}

// Close prints the last packet and reports trailing bytes that do not form one
func (p *probe) Close() error {
	if err := p.drain(true); err != nil {
		return fmt.Errorf("%d trailing bytes: %w", len(p.buf), err)
	}
	return nil
}

// drain prints buffered packets. A packet ends at the next packet start
// code, its length field may leave out an inserted frame start code.
func (p *probe) drain(atEOF bool) error {
	for len(p.buf) > 0 {
		if len(p.buf) >= 6 && p.buf[4] == 0 && p.buf[5] == 0 {
			return pes.ErrUnbounded
		}
		pkt, n, err := pes.Scan(p.buf, atEOF)
		if errors.Is(err, pes.ErrShortPacket) && !atEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("packet %d: %w", p.packets, err)
		}
		p.describe(pkt)
		p.buf = p.buf[n:]
	}
	return nil
}

func (p *probe) describe(pkt pes.Packet) {
	line := fmt.Sprintf("%6d sid=0x%02x len=%-5d", p.packets, pkt.StreamID, len(pkt.Payload))
	if pkt.HasPTS() {
		line += fmt.Sprintf(" pts=%d", pkt.PTS)
	} else {
		line += " pts=none"
	}

	if vc1.IsSequenceMetadata(pkt.Payload) {
		var meta vc1.SequenceMetadata
		if err := meta.UnmarshalBinary(pkt.Payload); err != nil {
			line += fmt.Sprintf(" metadata: %v", err)
		} else {
			line += fmt.Sprintf(" metadata %dx%d interval=%d", meta.Width, meta.Height, meta.FrameInterval)
		}
	} else if len(pkt.Payload) >= 4 && pkt.Payload[0] == 0 && pkt.Payload[1] == 0 && pkt.Payload[2] == 1 {
		line += fmt.Sprintf(" bdu=0x%02x", pkt.Payload[3])
	}

	fmt.Fprintln(p.out, line)
	p.packets++
}
