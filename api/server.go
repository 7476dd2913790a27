package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voc/vc1pes/codec"
	"github.com/voc/vc1pes/config"
)

// EncodingSource lists the encodings writers are registered for
type EncodingSource interface {
	Caps() []codec.Caps
}

// Server serves HTTP API requests
type Server struct {
	conf      config.APIConfig
	source    StatisticsSource
	encodings EncodingSource
	registry  *prometheus.Registry
	done      sync.WaitGroup
}

func NewServer(conf config.APIConfig, source StatisticsSource, encodings EncodingSource) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewExporter(source))
	return &Server{
		conf:      conf,
		source:    source,
		encodings: encodings,
		registry:  registry,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/streams", s.HandleStreams)
	mux.HandleFunc("/encodings", s.HandleEncodings)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) Listen(ctx context.Context) error {
	serv := &http.Server{
		Addr:           s.conf.Address,
		Handler:        s.Handler(),
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderBytes: 1 << 14,
	}

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		err := serv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Println(err)
		}
	}()
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		serv.Shutdown(ctx2)
	}()

	return nil
}

// Wait blocks until listening sockets have been closed
func (s *Server) Wait() {
	s.done.Wait()
}

func (s *Server) HandleStreams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats := s.source.GetStatistics()
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) HandleEncodings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caps := s.encodings.Caps()
	json.NewEncoder(w).Encode(caps)
}
