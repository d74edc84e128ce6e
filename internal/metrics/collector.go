package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeStats provides the metrics collector access to live service state.
type RuntimeStats interface {
	BrokerConnected() bool
	SpeechEnabled() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats RuntimeStats
	mode  string
	store string

	info            *prometheus.Desc
	brokerConnected *prometheus.Desc
	speechEnabled   *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (gauges will report 0).
func NewCollector(stats RuntimeStats, visionMode, storeType string) *Collector {
	return &Collector{
		stats: stats,
		mode:  visionMode,
		store: storeType,
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "info"),
			"Static service configuration, always 1.",
			[]string{"vision_mode", "audio_store"}, nil,
		),
		brokerConnected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mqtt", "connected"),
			"Whether the event broker connection is up (1) or not (0).",
			nil, nil,
		),
		speechEnabled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tts", "enabled"),
			"Whether text-to-speech is configured.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.brokerConnected
	ch <- c.speechEnabled
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, c.mode, c.store)

	var connected, speech float64
	if c.stats != nil {
		if c.stats.BrokerConnected() {
			connected = 1
		}
		if c.stats.SpeechEnabled() {
			speech = 1
		}
	}
	ch <- prometheus.MustNewConstMetric(c.brokerConnected, prometheus.GaugeValue, connected)
	ch <- prometheus.MustNewConstMetric(c.speechEnabled, prometheus.GaugeValue, speech)
}
