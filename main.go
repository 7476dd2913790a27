package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/voc/vc1pes/api"
	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/config"
	"github.com/voc/vc1pes/format"
	"github.com/voc/vc1pes/player"
	"github.com/voc/vc1pes/sink"
	"github.com/voc/vc1pes/stream"
	"github.com/voc/vc1pes/vc1"
)

type output interface {
	codec.Sink
	io.Closer
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(conf *config.Config) (output, error) {
	if !conf.App.IsSRT() {
		return sink.OpenFile(conf.App.Output)
	}

	id, err := stream.NewStreamID(conf.SRT.StreamName, conf.SRT.Password, stream.ModePublish)
	if err != nil {
		return nil, fmt.Errorf("stream id: %w", err)
	}
	return sink.DialSRT(sink.SRTConfig{
		Address:     conf.App.SRTAddress(),
		StreamID:    id.String(),
		Passphrase:  conf.SRT.Passphrase,
		LatencyMs:   conf.SRT.Latency,
		PayloadSize: conf.SRT.PayloadSize,
	})
}

var errUnsupportedFormat = errors.New("Unsupported input format")

// checkFormat looks at the start of the input without consuming it
func checkFormat(rd *bufio.Reader) error {
	head, err := rd.Peek(64)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if f := format.DetermineFormat(head); f != format.VC1 {
		return fmt.Errorf("%w %s", errUnsupportedFormat, f)
	}
	return nil
}

func main() {
	configFlag := flag.String("config", "config.toml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	conf, err := config.Parse([]string{*configFlag, "/etc/vc1pes/config.toml"})
	if err != nil {
		log.Fatal(err)
	}
	num, den, err := conf.App.ParseFrameRate()
	if err != nil {
		log.Fatal(err)
	}

	registry := codec.NewRegistry()
	if err := vc1.Register(registry); err != nil {
		log.Fatal(err)
	}

	input, err := openInput(conf.App.Input)
	if err != nil {
		log.Fatal(err)
	}
	defer input.Close()

	rd := bufio.NewReader(input)
	if err := checkFormat(rd); err != nil {
		log.Fatalf("%s: %v", conf.App.Input, err)
	}

	out, err := openOutput(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := player.NewPlayer(player.Config{MaxPacketSize: conf.App.MaxPacketSize}, registry)
	g, ctx := errgroup.WithContext(ctx)

	if conf.API.Enabled {
		apiServer := api.NewServer(conf.API, p, registry)
		if err := apiServer.Listen(ctx); err != nil {
			log.Fatal(err)
		}
		log.Printf("API listening on %s, public address %s\n", conf.API.Address, conf.API.PublicAddress)
		g.Go(func() error {
			apiServer.Wait()
			return nil
		})
	}

	g.Go(func() error {
		// the API goes down with the stream
		defer stop()
		return p.Play(ctx, &player.Output{
			Name:         conf.App.Name,
			URL:          conf.App.Output,
			Encoding:     conf.App.Encoding,
			FrameRateNum: num,
			FrameRateDen: den,
			Width:        conf.App.Width,
			Height:       conf.App.Height,
			Realtime:     conf.App.Realtime,
			Source:       format.NewReader(rd),
			Sink:         out,
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
