package vc1

import (
	"encoding/binary"
	"errors"
)

// VC1 start code suffixes
const (
	SequenceLayerMetadataStartCode = 0x80
	FrameStartCode                 = 0x0d
)

// Sequence layer metadata (SMPTE 421M Annex J) template.
// Offsets are relative to the end of the 4 byte start code.
const (
	metadataSize   = 4 + templateSize
	templateSize   = 36
	offNumFrames   = 0
	offStructCSize = 4
	offStructC     = 8
	offHeight      = 12
	offWidth       = 16
	offStructBSize = 20
	offStructB     = 24
	offHRDRate     = 28
	offFrameRate   = 32

	numFramesMarker = 0xc5000000 // NUMFRAMES 0, constant 0xC5
	structCSize     = 4
	structCAdvanced = 0x000000c0 // profile: advanced
	structBSize     = 12
	structBLevel    = 0x00000060
	hrdRate         = 0

	// ticks per second of the frame interval field
	frameIntervalClock = 10_000_000
)

var (
	sequenceLayerStartCode = [4]byte{0x00, 0x00, 0x01, SequenceLayerMetadataStartCode}
	frameStartMarker       = [4]byte{0x00, 0x00, 0x01, FrameStartCode}
)

var ErrInvalidMetadata = errors.New("Invalid sequence layer metadata")

// SequenceMetadata is the out-of-band sequence layer header sent once
// ahead of the codec private data.
type SequenceMetadata struct {
	Height        uint32
	Width         uint32
	FrameInterval uint32 // 100ns ticks per frame
}

// FrameInterval converts a frame rate num/den to 100ns ticks per frame.
// The result is truncated toward zero.
func FrameInterval(num, den uint32) uint32 {
	if num == 0 {
		return 0
	}
	return uint32(uint64(frameIntervalClock) * uint64(den) / uint64(num))
}

// MarshalBinary encodes the metadata including its start code
func (m *SequenceMetadata) MarshalBinary() ([]byte, error) {
	b := make([]byte, metadataSize)
	copy(b, sequenceLayerStartCode[:])

	t := b[len(sequenceLayerStartCode):]
	le := binary.LittleEndian
	le.PutUint32(t[offNumFrames:], numFramesMarker)
	le.PutUint32(t[offStructCSize:], structCSize)
	le.PutUint32(t[offStructC:], structCAdvanced)
	le.PutUint32(t[offHeight:], m.Height)
	le.PutUint32(t[offWidth:], m.Width)
	le.PutUint32(t[offStructBSize:], structBSize)
	le.PutUint32(t[offStructB:], structBLevel)
	le.PutUint32(t[offHRDRate:], hrdRate)
	le.PutUint32(t[offFrameRate:], m.FrameInterval)
	return b, nil
}

// UnmarshalBinary decodes metadata produced by MarshalBinary
func (m *SequenceMetadata) UnmarshalBinary(b []byte) error {
	if len(b) != metadataSize || [4]byte(b[:4]) != sequenceLayerStartCode {
		return ErrInvalidMetadata
	}

	t := b[len(sequenceLayerStartCode):]
	le := binary.LittleEndian
	if le.Uint32(t[offNumFrames:]) != numFramesMarker ||
		le.Uint32(t[offStructCSize:]) != structCSize ||
		le.Uint32(t[offStructC:]) != structCAdvanced ||
		le.Uint32(t[offStructBSize:]) != structBSize {
		return ErrInvalidMetadata
	}

	m.Height = le.Uint32(t[offHeight:])
	m.Width = le.Uint32(t[offWidth:])
	m.FrameInterval = le.Uint32(t[offFrameRate:])
	return nil
}

// IsSequenceMetadata reports whether b starts with the metadata start code
func IsSequenceMetadata(b []byte) bool {
	return len(b) >= 4 && [4]byte(b[:4]) == sequenceLayerStartCode
}
