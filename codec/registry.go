package codec

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

var (
	ErrUnknownEncoding   = errors.New("Unknown encoding")
	ErrAlreadyRegistered = errors.New("Encoding already registered")
)

// WriterOptions are passed to a Factory, zero values select defaults
type WriterOptions struct {
	MaxPacketSize int
	Logger        *slog.Logger
}

// Factory creates a fresh writer with its own stream state
type Factory func(opts WriterOptions) Writer

type entry struct {
	caps     Caps
	patterns []string
	factory  Factory
}

// Registry maps codec identifiers to writers
type Registry struct {
	mutex   sync.RWMutex
	entries []entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a writer factory.
// Lookups match the caps name, the text encoding and any of the patterns,
// which may contain * to match any number of characters.
func (r *Registry) Register(caps Caps, patterns []string, factory Factory) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, e := range r.entries {
		if e.caps.TextEncoding == caps.TextEncoding {
			return ErrAlreadyRegistered
		}
	}
	r.entries = append(r.entries, entry{
		caps:     caps,
		patterns: patterns,
		factory:  factory,
	})
	return nil
}

// Lookup finds the writer for an encoding, first registration wins
func (r *Registry) Lookup(encoding string) (Factory, Caps, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, e := range r.entries {
		if e.match(encoding) {
			return e.factory, e.caps, nil
		}
	}
	return nil, Caps{}, ErrUnknownEncoding
}

// Caps lists all registered capabilities
func (r *Registry) Caps() []Caps {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	caps := make([]Caps, 0, len(r.entries))
	for _, e := range r.entries {
		caps = append(caps, e.caps)
	}
	return caps
}

func (e *entry) match(encoding string) bool {
	if encoding == e.caps.Name || encoding == e.caps.TextEncoding {
		return true
	}
	for _, pattern := range e.patterns {
		if wildcard.Match(pattern, encoding) {
			return true
		}
	}
	return false
}
