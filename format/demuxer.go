// Package format reads VC1 advanced profile elementary streams
// (SMPTE 421M Annex E byte stream) and splits them into access units.
package format

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/pes"
)

// Format of an input stream
type Format uint

// Format constants
const (
	Unknown Format = iota
	VC1
)

func (f Format) String() string {
	switch f {
	case VC1:
		return "vc1"
	default:
		return "unknown"
	}
}

// VC1 bitstream data unit types
const (
	bduEndOfSequence  = 0x0a
	bduSlice          = 0x0b
	bduField          = 0x0c
	bduFrame          = 0x0d
	bduEntryPoint     = 0x0e
	bduSequenceHeader = 0x0f
	bduUserDataFirst  = 0x1b
	bduUserDataLast   = 0x1f
)

// MaxAccessUnitSize limits the size of a single access unit in the input
const MaxAccessUnitSize = 16 * 1024 * 1024

var (
	ErrUnsupportedProfile = errors.New("Unsupported VC1 profile")
	ErrShortHeader        = errors.New("VC1 sequence header too short")
)

var startCodePrefix = []byte{0x00, 0x00, 0x01}

func validBDU(typ byte) bool {
	return typ >= bduEndOfSequence && typ <= bduSequenceHeader ||
		typ >= bduUserDataFirst && typ <= bduUserDataLast
}

// DetermineFormat tries to detect the type of stream from its first bytes
// If the type is not clear it returns Unknown
func DetermineFormat(data []byte) Format {
	if len(data) >= 4 && bytes.HasPrefix(data, startCodePrefix) && validBDU(data[3]) {
		return VC1
	}
	return Unknown
}

// nextStartCode returns the position of the next complete start code at or after from
func nextStartCode(data []byte, from int) int {
	idx := bytes.Index(data[from:], startCodePrefix)
	if idx < 0 || from+idx+3 >= len(data) {
		return -1
	}
	return from + idx
}

// splitAccessUnits is a bufio.SplitFunc returning one access unit per token.
// Sequence headers, entry points and user data stay with the following frame.
func splitAccessUnits(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	start := nextStartCode(data, 0)
	switch {
	case start > 0:
		// skip garbage ahead of the first start code
		return start, nil, nil
	case start < 0 && atEOF:
		return len(data), nil, nil
	case start < 0 && len(data) > 3:
		// keep a possibly split start code
		return len(data) - 3, nil, nil
	case start < 0:
		return 0, nil, nil
	}

	hasFrame := false
	for pos := 0; ; pos += 4 {
		pos = nextStartCode(data, pos)
		if pos < 0 {
			break
		}
		switch data[pos+3] {
		case bduFrame:
			if hasFrame {
				return pos, data[:pos], nil
			}
			hasFrame = true
		case bduSequenceHeader, bduEntryPoint:
			if hasFrame {
				return pos, data[:pos], nil
			}
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Reader splits an elementary stream into access units
type Reader struct {
	scanner   *bufio.Scanner
	extraData []byte
	started   bool
}

func NewReader(rd io.Reader) *Reader {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, pes.MaxPacketSize), MaxAccessUnitSize)
	scanner.Split(splitAccessUnits)
	return &Reader{scanner: scanner}
}

// ReadAccessUnit returns the next access unit without timestamp.
// The sequence header and entry point leading the stream are not part of
// the first access unit, they are returned by ExtraData.
// It returns io.EOF at the end of the stream.
func (r *Reader) ReadAccessUnit() (codec.AccessUnit, error) {
	for r.scanner.Scan() {
		token := r.scanner.Bytes()
		if !r.started {
			r.started = true
			if token[3] == bduSequenceHeader {
				frame := indexBDU(token, bduFrame)
				if frame < 0 {
					r.extraData = bytes.Clone(token)
					continue
				}
				r.extraData = bytes.Clone(token[:frame])
				token = token[frame:]
			}
		}

		// scanner reuses its buffer
		return codec.AccessUnit{Data: bytes.Clone(token), PTS: pes.NoPTS}, nil
	}

	if err := r.scanner.Err(); err != nil {
		return codec.AccessUnit{}, err
	}
	return codec.AccessUnit{}, io.EOF
}

// ExtraData returns the stream's leading sequence header and entry point,
// available after the first ReadAccessUnit.
func (r *Reader) ExtraData() []byte {
	return r.extraData
}

func indexBDU(data []byte, typ byte) int {
	for pos := 0; ; pos += 4 {
		pos = nextStartCode(data, pos)
		if pos < 0 {
			return -1
		}
		if data[pos+3] == typ {
			return pos
		}
	}
}

// SequenceHeader holds the fields of an advanced profile sequence header
// needed to describe the stream
type SequenceHeader struct {
	Profile byte
	Level   byte
	Width   uint32
	Height  uint32
}

// ParseSequenceHeader reads the sequence header starting with its start code
func ParseSequenceHeader(data []byte) (*SequenceHeader, error) {
	pos := indexBDU(data, bduSequenceHeader)
	if pos < 0 {
		return nil, ErrShortHeader
	}
	b := data[pos+4:]
	if len(b) < 5 {
		return nil, ErrShortHeader
	}

	hdr := &SequenceHeader{
		Profile: b[0] >> 6,
		Level:   b[0] >> 3 & 0x7,
	}
	if hdr.Profile != 3 {
		return nil, ErrUnsupportedProfile
	}

	// MAX_CODED_WIDTH and MAX_CODED_HEIGHT follow the first 16 bits
	codedWidth := uint32(b[2])<<4 | uint32(b[3])>>4
	codedHeight := uint32(b[3]&0x0f)<<8 | uint32(b[4])
	hdr.Width = (codedWidth + 1) * 2
	hdr.Height = (codedHeight + 1) * 2
	return hdr, nil
}
