// Package stream encodes SRT stream ids of the form <mode>/<name>[/<password>]
// and the access control form #!::r=<name>,m=<mode>[,s=<password>].
package stream

import (
	"errors"
	"fmt"
	"strings"
)

const IDPrefix = "#!::"

var (
	ErrInvalidSlashes      = errors.New("Invalid number of slashes, must be 1 or 2")
	ErrInvalidMode         = errors.New("Invalid mode")
	ErrMissingName         = errors.New("Missing name")
	ErrInvalidNamePassword = errors.New("Name/Password is not allowed to contain slashes")
)

// Mode - client mode
type Mode uint8

const (
	_ Mode = iota
	ModePlay
	ModePublish
)

func (m Mode) String() string {
	switch m {
	case ModePlay:
		return "play"
	case ModePublish:
		return "publish"
	default:
		return "unknown"
	}
}

// StreamID identifies an SRT stream and the client's intent
type StreamID struct {
	str      string
	mode     Mode
	name     string
	password string
}

// NewStreamID creates a StreamID in slash notation.
// id is nil on error
func NewStreamID(name string, password string, mode Mode) (*StreamID, error) {
	if mode != ModePlay && mode != ModePublish {
		return nil, ErrInvalidMode
	}
	if len(name) == 0 {
		return nil, ErrMissingName
	}
	if strings.Contains(name, "/") || strings.Contains(password, "/") {
		return nil, ErrInvalidNamePassword
	}

	str := fmt.Sprintf("%s/%s", mode, name)
	if len(password) > 0 {
		str += "/" + password
	}
	return &StreamID{
		str:      str,
		mode:     mode,
		name:     name,
		password: password,
	}, nil
}

// FromString parses a stream id in either notation.
// If error is not nil then StreamID will remain unchanged.
func (s *StreamID) FromString(src string) error {
	var parsed StreamID
	var err error
	if strings.HasPrefix(src, IDPrefix) {
		err = parsed.parseAccessControl(src[len(IDPrefix):])
	} else {
		err = parsed.parseSlashes(src)
	}
	if err != nil {
		return err
	}
	if len(parsed.name) == 0 {
		return ErrMissingName
	}
	parsed.str = src
	*s = parsed
	return nil
}

func (s *StreamID) parseAccessControl(src string) error {
	for _, kv := range strings.Split(src, ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid key/value '%s'", kv)
		}

		switch key {
		case "r":
			s.name = value
		case "s":
			s.password = value
		case "m":
			switch value {
			case "request":
				s.mode = ModePlay
			case "publish":
				s.mode = ModePublish
			default:
				return ErrInvalidMode
			}
		case "u", "h", "t":
		default:
			return fmt.Errorf("unsupported key '%s'", key)
		}
	}
	if s.mode == 0 {
		s.mode = ModePlay
	}
	return nil
}

func (s *StreamID) parseSlashes(src string) error {
	split := strings.Split(src, "/")
	switch len(split) {
	case 3:
		s.password = split[2]
	case 2:
	default:
		return ErrInvalidSlashes
	}

	switch split[0] {
	case "play":
		s.mode = ModePlay
	case "publish":
		s.mode = ModePublish
	default:
		return ErrInvalidMode
	}
	s.name = split[1]
	return nil
}

func (s StreamID) String() string {
	return s.str
}

func (s StreamID) Mode() Mode {
	return s.mode
}

func (s StreamID) Name() string {
	return s.name
}

func (s StreamID) Password() string {
	return s.password
}
