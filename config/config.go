package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Showmax/go-fqdn"
	"github.com/pelletier/go-toml/v2"

	"github.com/voc/vc1pes/pes"
)

const MetricsNamespace = "vc1pes"

var ErrInvalidFrameRate = errors.New("Invalid frame rate, expected <num>[/<den>]")

type Config struct {
	App AppConfig
	SRT SRTConfig
	API APIConfig
}

type AppConfig struct {
	Name          string // output name in statistics and logs
	Input         string // elementary stream file, "-" for stdin
	Output        string // device or file path, or srt://host:port
	Encoding      string // codec id used for writer lookup
	FrameRate     string // e.g. "25" or "24000/1001"
	Width         uint32 // overrides the sequence header when non-zero
	Height        uint32
	MaxPacketSize int
	Realtime      bool // pace output to the frame rate
}

type SRTConfig struct {
	Latency     uint // ms
	PayloadSize uint32
	StreamName  string
	Password    string
	Passphrase  string // encryption passphrase
}

type APIConfig struct {
	Enabled       bool
	Address       string
	PublicAddress string
}

// ParseFrameRate splits the configured frame rate into numerator and denominator
func (c *AppConfig) ParseFrameRate() (uint32, uint32, error) {
	numStr, denStr, hasDen := strings.Cut(c.FrameRate, "/")
	num, err := strconv.ParseUint(strings.TrimSpace(numStr), 10, 32)
	if err != nil || num == 0 {
		return 0, 0, ErrInvalidFrameRate
	}
	den := uint64(1)
	if hasDen {
		den, err = strconv.ParseUint(strings.TrimSpace(denStr), 10, 32)
		if err != nil || den == 0 {
			return 0, 0, ErrInvalidFrameRate
		}
	}
	return uint32(num), uint32(den), nil
}

// IsSRT reports whether the output is an SRT url
func (c *AppConfig) IsSRT() bool {
	return strings.HasPrefix(c.Output, "srt://")
}

// SRTAddress returns host:port of an SRT output url
func (c *AppConfig) SRTAddress() string {
	addr := strings.TrimPrefix(c.Output, "srt://")
	addr, _, _ = strings.Cut(addr, "?")
	return addr
}

// Parse tries to find and parse config from paths in order
func Parse(paths []string) (*Config, error) {
	// set defaults
	config := Config{
		App: AppConfig{
			Name:          "video0",
			Input:         "-",
			Output:        "/dev/dvb/adapter0/video0",
			Encoding:      "V_VC1",
			FrameRate:     "25",
			MaxPacketSize: pes.MaxPacketSize,
		},
		SRT: SRTConfig{
			Latency:     200,
			PayloadSize: 1316,
			StreamName:  "video0",
		},
		API: APIConfig{
			Enabled: true,
			Address: ":8080",
		},
	}

	var data []byte
	var err error

	// try to read file from given paths
	for _, path := range paths {
		data, err = os.ReadFile(path)
		if err == nil {
			log.Println("Read config from", path)
			break
		} else {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
	}

	// parse toml
	if data != nil {
		err = toml.Unmarshal(data, &config)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("Config file not found, using defaults")
	}

	if _, _, err := config.App.ParseFrameRate(); err != nil {
		return nil, fmt.Errorf("app.framerate '%s': %w", config.App.FrameRate, err)
	}
	if config.App.MaxPacketSize <= 0 || config.App.MaxPacketSize > pes.MaxPacketSize {
		return nil, fmt.Errorf("app.maxpacketsize must be between 1 and %d", pes.MaxPacketSize)
	}

	// guess public address from hostname
	if config.API.PublicAddress == "" {
		config.API.PublicAddress = defaultPublicAddress(config.API.Address)
	}

	return &config, nil
}

func defaultPublicAddress(listen string) string {
	hostname, err := fqdn.FqdnHostname()
	if err != nil {
		log.Println("fqdn:", err)
		hostname = "localhost"
	}
	_, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return hostname
	}
	return net.JoinHostPort(hostname, port)
}
