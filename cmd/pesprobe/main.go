package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	gosrt "github.com/datarhei/gosrt"

	"github.com/voc/vc1pes/stream"
)

func main() {
	file := flag.String("file", "", "PES file to inspect, - for stdin")
	listen := flag.String("listen", "", "SRT address to accept a publisher on")
	latency := flag.Uint("latency", 200, "SRT latency in ms")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := newProbe(os.Stdout)
	var err error
	switch {
	case *file != "":
		err = probeFile(p, *file)
	case *listen != "":
		err = probeSRT(ctx, p, *listen, time.Duration(*latency)*time.Millisecond)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err == nil {
		err = p.Close()
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d packets\n", p.packets)
}

func probeFile(p *probe, path string) error {
	var rd io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		rd = f
	}
	_, err := io.Copy(p, rd)
	return err
}

// probeSRT accepts a single publisher and inspects its stream until it disconnects
func probeSRT(ctx context.Context, p *probe, addr string, latency time.Duration) error {
	conf := gosrt.DefaultConfig()
	conf.Latency = latency
	ln, err := gosrt.Listen("srt", addr, conf)
	if err != nil {
		return err
	}
	context.AfterFunc(ctx, ln.Close)
	log.Printf("SRT Listening on %s\n", addr)

	var conn gosrt.Conn
	for conn == nil {
		req, err := ln.Accept2()
		if err != nil {
			if errors.Is(err, gosrt.ErrListenerClosed) {
				return ctx.Err()
			}
			return err
		}

		var streamid stream.StreamID
		if err := streamid.FromString(req.StreamId()); err != nil {
			log.Println(err)
			req.Reject(gosrt.REJ_PEER)
			continue
		}
		if streamid.Mode() != stream.ModePublish {
			log.Printf("%s - Stream '%s' is not a publisher\n", req.RemoteAddr(), streamid)
			req.Reject(gosrt.REJX_BAD_MODE)
			continue
		}

		conn, err = req.Accept()
		if err != nil {
			log.Println("accept failed", err)
			continue
		}
		log.Printf("%s - Inspecting '%s'\n", conn.RemoteAddr(), streamid.Name())
	}
	ln.Close()
	context.AfterFunc(ctx, func() { conn.Close() })
	defer conn.Close()

	_, err = io.Copy(p, conn)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
