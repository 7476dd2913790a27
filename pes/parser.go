package pes

import (
	"errors"
)

// PES errors
var (
	ErrShortPacket   = errors.New("PES packet too short")
	ErrInvalidPacket = errors.New("Invalid PES packet")
	ErrUnbounded     = errors.New("Unbounded PES packet")
)

// Packet is a parsed PES packet referencing the parsed buffer
type Packet struct {
	StreamID byte
	PTS      uint64 // NoPTS if absent
	Payload  []byte
}

// HasPTS reports whether the packet carries a presentation timestamp
func (p *Packet) HasPTS() bool {
	return p.PTS != NoPTS
}

// Parse decodes the PES packet at the start of b.
// It returns the packet and the number of bytes consumed.
// Unbounded packets are only accepted when they span the rest of b.
func Parse(b []byte) (Packet, int, error) {
	var pkt Packet
	if len(b) < fixedHeaderSize {
		return pkt, 0, ErrShortPacket
	}
	if b[0] != 0x00 || b[1] != 0x00 || b[2] != 0x01 {
		return pkt, 0, ErrInvalidPacket
	}
	if b[6]>>6 != 0x2 {
		return pkt, 0, ErrInvalidPacket
	}

	pkt.StreamID = b[3]
	pkt.PTS = NoPTS
	length := int(b[4])<<8 | int(b[5])
	dataLength := int(b[8])
	offset := fixedHeaderSize + dataLength
	if offset > len(b) {
		return pkt, 0, ErrShortPacket
	}

	// PTS only or PTS + DTS
	if b[7]>>6&0x2 != 0 {
		if dataLength < ptsSize {
			return pkt, 0, ErrInvalidPacket
		}
		pkt.PTS = parsePTS(b[fixedHeaderSize : fixedHeaderSize+ptsSize])
	}

	end := len(b)
	if length != 0 {
		end = 6 + length
		if end > len(b) {
			return pkt, 0, ErrShortPacket
		}
		if end < offset {
			return pkt, 0, ErrInvalidPacket
		}
	}
	pkt.Payload = b[offset:end]
	return pkt, end, nil
}

// Scan parses the packet at the start of b like Parse and extends its
// payload up to the next packet start code. Bytes written after a header
// but not counted in its length field, like an inserted frame start code,
// become part of the payload. Without atEOF a packet is only returned once
// the following start code is in b.
func Scan(b []byte, atEOF bool) (Packet, int, error) {
	pkt, n, err := Parse(b)
	if err != nil {
		return pkt, n, err
	}

	next := nextPacketStart(b, n)
	if next < 0 {
		if !atEOF {
			return Packet{}, 0, ErrShortPacket
		}
		next = len(b)
	}
	if next > n {
		pkt.Payload = b[n-len(pkt.Payload) : next]
	}
	return pkt, next, nil
}

// nextPacketStart returns the position of the next PES start code at or
// after from, or -1. Elementary stream start codes use ids below 0xbc.
func nextPacketStart(b []byte, from int) int {
	for i := from; i+3 < len(b); i++ {
		if b[i] == 0x00 && b[i+1] == 0x00 && b[i+2] == 0x01 && b[i+3] >= streamIDMin {
			return i
		}
	}
	return -1
}

// Split parses a sequence of bounded PES packets
func Split(b []byte) ([]Packet, error) {
	var pkts []Packet
	for len(b) > 0 {
		if len(b) >= 6 && b[4] == 0 && b[5] == 0 {
			return pkts, ErrUnbounded
		}
		pkt, n, err := Scan(b, true)
		if err != nil {
			return pkts, err
		}
		pkts = append(pkts, pkt)
		b = b[n:]
	}
	return pkts, nil
}

func parsePTS(b []byte) uint64 {
	return uint64(b[0]>>1&0x07)<<30 |
		uint64(b[1])<<22 |
		uint64(b[2]>>1)<<15 |
		uint64(b[3])<<7 |
		uint64(b[4]>>1)
}
