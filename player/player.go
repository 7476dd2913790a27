// Package player feeds elementary streams through codec writers into sinks.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	gosrt "github.com/datarhei/gosrt"

	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/format"
	"github.com/voc/vc1pes/pes"
	"github.com/voc/vc1pes/vc1"
)

const (
	ptsClock = 90000
	ptsMask  = 1<<33 - 1
)

var ErrDuplicateOutput = errors.New("Output already playing")

// Output describes one stream to be played
type Output struct {
	Name         string
	URL          string
	Encoding     string
	FrameRateNum uint32
	FrameRateDen uint32
	Width        uint32 // zero: take from the sequence header
	Height       uint32
	Realtime     bool

	Source *format.Reader
	Sink   codec.Sink
}

type Config struct {
	MaxPacketSize int
}

// StreamStatistics describe a playing output
type StreamStatistics struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Encoding string    `json:"encoding"`
	Codec    string    `json:"codec"`
	Created  time.Time `json:"created"`
	codec.Statistics
	SRT *gosrt.StatisticsAccumulated `json:"srt,omitempty"` // SRT sinks only
}

// srtSink is a sink with SRT connection statistics
type srtSink interface {
	Stats(*gosrt.Statistics)
}

type playback struct {
	output  *Output
	writer  codec.Writer
	caps    codec.Caps
	created time.Time
}

// Player runs outputs, each with its own writer
type Player struct {
	config   Config
	registry *codec.Registry

	mutex     sync.Mutex
	playbacks map[string]*playback
}

func NewPlayer(config Config, registry *codec.Registry) *Player {
	return &Player{
		config:    config,
		registry:  registry,
		playbacks: make(map[string]*playback),
	}
}

// Play feeds all access units of the output's source into its sink.
// It returns nil at the end of the stream and the first error otherwise.
func (p *Player) Play(ctx context.Context, out *Output) error {
	factory, caps, err := p.registry.Lookup(out.Encoding)
	if err != nil {
		return fmt.Errorf("%s: %w", out.Encoding, err)
	}
	log := slog.With("output", out.Name, "codec", caps.Name)
	writer := factory(codec.WriterOptions{
		MaxPacketSize: p.config.MaxPacketSize,
		Logger:        log,
	})
	if err := writer.Reset(); err != nil {
		return err
	}

	pb := &playback{
		output:  out,
		writer:  writer,
		caps:    caps,
		created: time.Now(),
	}
	if err := p.register(pb); err != nil {
		return err
	}
	defer p.unregister(pb)
	log.Info("play", "url", out.URL)

	var params *codec.StreamParameters
	start := time.Now()
	for i := uint64(0); ; i++ {
		au, err := out.Source.ReadAccessUnit()
		if err == io.EOF {
			log.Info("end of stream", "access_units", i)
			return nil
		}
		if err != nil {
			return err
		}

		if params == nil {
			params = p.streamParameters(out, log)
		}
		au.PTS = pts(i, out.FrameRateNum, out.FrameRateDen)

		if err := ctx.Err(); err != nil {
			return err
		}
		if out.Realtime {
			due := start.Add(frameTime(i, out.FrameRateNum, out.FrameRateDen))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Until(due)):
			}
		}

		if _, err := writer.WriteData(au, params, out.Sink); err != nil {
			return fmt.Errorf("access unit %d: %w", i, err)
		}
	}
}

// streamParameters combines configuration and the stream's sequence header
func (p *Player) streamParameters(out *Output, log *slog.Logger) *codec.StreamParameters {
	params := &codec.StreamParameters{
		Width:         out.Width,
		Height:        out.Height,
		FrameInterval: vc1.FrameInterval(out.FrameRateNum, out.FrameRateDen),
		ExtraData:     out.Source.ExtraData(),
	}
	if params.Width != 0 && params.Height != 0 {
		return params
	}

	hdr, err := format.ParseSequenceHeader(params.ExtraData)
	if err != nil {
		log.Warn("no picture size", "error", err)
		return params
	}
	params.Width = hdr.Width
	params.Height = hdr.Height
	return params
}

// pts returns the 90kHz timestamp of frame i
func pts(i uint64, num, den uint32) uint64 {
	if num == 0 {
		return pes.NoPTS
	}
	return i * ptsClock * uint64(den) / uint64(num) & ptsMask
}

func frameTime(i uint64, num, den uint32) time.Duration {
	if num == 0 {
		return 0
	}
	return time.Duration(i * uint64(den) * uint64(time.Second) / uint64(num))
}

func (p *Player) register(pb *playback) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, exists := p.playbacks[pb.output.Name]; exists {
		return ErrDuplicateOutput
	}
	p.playbacks[pb.output.Name] = pb
	return nil
}

func (p *Player) unregister(pb *playback) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.playbacks, pb.output.Name)
}

// GetStatistics lists all playing outputs ordered by name
func (p *Player) GetStatistics() []*StreamStatistics {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	statistics := make([]*StreamStatistics, 0, len(p.playbacks))
	for _, pb := range p.playbacks {
		stat := &StreamStatistics{
			Name:       pb.output.Name,
			URL:        pb.output.URL,
			Encoding:   pb.output.Encoding,
			Codec:      pb.caps.Name,
			Created:    pb.created,
			Statistics: pb.writer.Statistics(),
		}
		if s, ok := pb.output.Sink.(srtSink); ok {
			var stats gosrt.Statistics
			s.Stats(&stats)
			stat.SRT = &stats.Accumulated
		}
		statistics = append(statistics, stat)
	}
	sort.Slice(statistics, func(i, j int) bool {
		return statistics[i].Name < statistics[j].Name
	})
	return statistics
}
