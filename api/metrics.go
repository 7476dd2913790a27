package api

import (
	"github.com/voc/vc1pes/config"
	"github.com/voc/vc1pes/player"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	writerSubsystem = "writer"
	srtSubsystem    = "srt"
)

var (
	activeOutputsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "active_outputs"),
		"The number of playing outputs",
		nil, nil,
	)

	accessUnitsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "access_units_total"),
		"total number of non-empty access units written",
		[]string{"name", "encoding"}, nil,
	)

	packetsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "packets_total"),
		"total number of PES packets written, including metadata",
		[]string{"name", "encoding"}, nil,
	)

	bytesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "bytes_total"),
		"total number of bytes accepted by the sink",
		[]string{"name", "encoding"}, nil,
	)

	metadataWritesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "metadata_writes_total"),
		"number of sequence metadata emissions",
		[]string{"name", "encoding"}, nil,
	)

	startCodesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "inserted_start_codes_total"),
		"number of inserted frame start codes",
		[]string{"name", "encoding"}, nil,
	)

	writeErrorsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, writerSubsystem, "write_errors_total"),
		"number of failed sink writes",
		[]string{"name", "encoding"}, nil,
	)

	// SRT sinks only, from gosrt.StatisticsAccumulated
	srtSentPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, srtSubsystem, "sent_packets_total"),
		"total number of sent data packets, including retransmissions",
		[]string{"name", "encoding"}, nil,
	)

	srtSentLostPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, srtSubsystem, "sent_lost_packets_total"),
		"total number of lost packets (sender side)",
		[]string{"name", "encoding"}, nil,
	)

	srtRetransmittedPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, srtSubsystem, "retransmitted_packets_total"),
		"total number of retransmitted packets",
		[]string{"name", "encoding"}, nil,
	)

	srtSentDroppedPacketsTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, srtSubsystem, "sent_dropped_packets_total"),
		"number of too-late-to-send dropped packets",
		[]string{"name", "encoding"}, nil,
	)

	srtSentBytesTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(config.MetricsNamespace, srtSubsystem, "sent_bytes_total"),
		"total number of sent data bytes, including retransmissions",
		[]string{"name", "encoding"}, nil,
	)
)

// StatisticsSource lists output statistics
type StatisticsSource interface {
	GetStatistics() []*player.StreamStatistics
}

// Exporter collects metrics. It implements prometheus.Collector.
type Exporter struct {
	source StatisticsSource
}

func NewExporter(s StatisticsSource) *Exporter {
	e := Exporter{source: s}
	return &e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- activeOutputsDesc
	ch <- accessUnitsTotalDesc
	ch <- packetsTotalDesc
	ch <- bytesTotalDesc
	ch <- metadataWritesTotalDesc
	ch <- startCodesTotalDesc
	ch <- writeErrorsTotalDesc
	ch <- srtSentPacketsTotalDesc
	ch <- srtSentLostPacketsTotalDesc
	ch <- srtRetransmittedPacketsTotalDesc
	ch <- srtSentDroppedPacketsTotalDesc
	ch <- srtSentBytesTotalDesc
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	stats := e.source.GetStatistics()
	ch <- prometheus.MustNewConstMetric(activeOutputsDesc, prometheus.GaugeValue, float64(len(stats)))
	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(accessUnitsTotalDesc, prometheus.CounterValue, float64(stat.AccessUnits), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(packetsTotalDesc, prometheus.CounterValue, float64(stat.Packets), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(bytesTotalDesc, prometheus.CounterValue, float64(stat.Bytes), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(metadataWritesTotalDesc, prometheus.CounterValue, float64(stat.MetadataWrites), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(startCodesTotalDesc, prometheus.CounterValue, float64(stat.StartCodesInserted), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(writeErrorsTotalDesc, prometheus.CounterValue, float64(stat.WriteErrors), stat.Name, stat.Encoding)

		if stat.SRT == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(srtSentPacketsTotalDesc, prometheus.CounterValue, float64(stat.SRT.PktSent), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(srtSentLostPacketsTotalDesc, prometheus.CounterValue, float64(stat.SRT.PktSendLoss), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(srtRetransmittedPacketsTotalDesc, prometheus.CounterValue, float64(stat.SRT.PktRetrans), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(srtSentDroppedPacketsTotalDesc, prometheus.CounterValue, float64(stat.SRT.PktSendDrop), stat.Name, stat.Encoding)
		ch <- prometheus.MustNewConstMetric(srtSentBytesTotalDesc, prometheus.CounterValue, float64(stat.SRT.ByteSent), stat.Name, stat.Encoding)
	}
}
