// Package codec holds the types shared between elementary stream writers,
// their sinks and the code feeding them.
package codec

// Kind of elementary stream
type Kind uint8

const (
	_ Kind = iota
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Caps describes which codec a writer handles
type Caps struct {
	Name         string `json:"name"` // codec family, e.g. "vc1"
	Kind         Kind   `json:"kind"`
	TextEncoding string `json:"text_encoding"` // container codec id, e.g. "V_VC1"
	Encoding     int    `json:"encoding"`      // decoder encoding number
}

// StreamParameters are supplied once per stream by the demuxer
type StreamParameters struct {
	Width         uint32
	Height        uint32
	FrameInterval uint32 // in 100ns ticks
	ExtraData     []byte // codec private data
}

// AccessUnit is one decodable unit of compressed data.
// PTS is pes.NoPTS when the unit carries no timestamp.
type AccessUnit struct {
	Data []byte
	PTS  uint64
}

// Sink receives finished packets.
// Writev writes all buffers as one logical unit and returns the number of
// bytes written. A short write is reported with n < total and a nil error.
type Sink interface {
	Ready() bool
	Writev(bufs ...[]byte) (int, error)
}

// Statistics are cumulative writer counters
type Statistics struct {
	AccessUnits        uint64 `json:"access_units"`
	Packets            uint64 `json:"packets"`
	Bytes              uint64 `json:"bytes"`
	MetadataWrites     uint64 `json:"metadata_writes"`
	StartCodesInserted uint64 `json:"start_codes_inserted"`
	WriteErrors        uint64 `json:"write_errors"`
}

// Writer turns access units of one codec into packets on a sink.
// A Writer holds per stream state and must not be shared between streams.
type Writer interface {
	Reset() error
	WriteData(au AccessUnit, params *StreamParameters, sink Sink) (int, error)
	Caps() Caps
	Statistics() Statistics
}
