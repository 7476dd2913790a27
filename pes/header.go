package pes

// PES constants
const (
	StartCode     = 0x000001
	MaxHeaderSize = 64
	MaxPacketSize = 65400 // largest payload handed to the decoder in one packet

	StreamIDVideo    = 0xe0
	StreamIDVC1Video = 0xfd // extended stream id used for VC1

	// NoPTS marks a packet without presentation timestamp. It lies outside
	// the 33 bit PTS range.
	NoPTS uint64 = 0x200000000

	streamIDMin     = 0xbc
	fixedHeaderSize = 9
	ptsSize         = 5
	picStartSize    = 5
	maxLengthField  = 0xffff
)

// Header describes a PES packet header written ahead of a payload
type Header struct {
	StreamID      byte
	PayloadLength int    // bytes counted in PES_packet_length after the header
	PTS           uint64 // NoPTS if absent
	PicStartCode  uint16 // optional picture start code, 0 if unused
}

func (h *Header) hasPTS() bool {
	return h.PTS != NoPTS
}

// dataLength is the PES_header_data_length field
func (h *Header) dataLength() int {
	if h.hasPTS() {
		return ptsSize
	}
	return 0
}

// Len returns the encoded header size in bytes
func (h *Header) Len() int {
	n := fixedHeaderSize + h.dataLength()
	if h.PicStartCode != 0 {
		n += picStartSize
	}
	return n
}

// packetLength returns the PES_packet_length field.
// Packets too large for the field are sent unbounded, which is valid for video.
func (h *Header) packetLength() uint16 {
	n := h.Len() - 6 + h.PayloadLength
	if n > maxLengthField {
		return 0
	}
	return uint16(n)
}

// AppendTo encodes the header and appends it to b
func (h *Header) AppendTo(b []byte) []byte {
	length := h.packetLength()

	var flags byte
	if h.hasPTS() {
		flags = 0x2 << 6
	}

	b = append(b,
		0x00, 0x00, 0x01,
		h.StreamID,
		byte(length>>8),
		byte(length),
		0x2<<6, // marker, no scrambling, priority, alignment, copyright or original
		flags,
		byte(h.dataLength()),
	)

	if h.hasPTS() {
		b = appendPTS(b, h.PTS)
	}

	if h.PicStartCode != 0 {
		b = append(b, 0x00, 0x00, 0x01, byte(h.PicStartCode), byte(h.PicStartCode>>8))
	}
	return b
}

// appendPTS encodes a 33 bit timestamp with '0010' prefix and marker bits
func appendPTS(b []byte, pts uint64) []byte {
	return append(b,
		0x20|byte(pts>>29)&0x0e|0x1,
		byte(pts>>22),
		byte(pts>>14)&0xfe|0x1,
		byte(pts>>7),
		byte(pts<<1)&0xfe|0x1,
	)
}
