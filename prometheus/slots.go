package prometheus

import (
	"github.com/fwojciec/crawlfront"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	slotActiveDesc = prometheus.NewDesc(
		"crawlfront_slot_active",
		"Requests waiting for or transferring on a destination slot.",
		[]string{"key", "key_type"}, nil,
	)
	slotConcurrencyDesc = prometheus.NewDesc(
		"crawlfront_slot_concurrency",
		"Concurrency limit of a destination slot.",
		[]string{"key", "key_type"}, nil,
	)
)

// SlotCollector reports the live load of a transport's destination slots
// at scrape time.
type SlotCollector struct {
	src crawlfront.SlotSource
}

// NewSlotCollector creates a collector over src.
func NewSlotCollector(src crawlfront.SlotSource) *SlotCollector {
	return &SlotCollector{src: src}
}

// Describe implements prometheus.Collector.
func (c *SlotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- slotActiveDesc
	ch <- slotConcurrencyDesc
}

// Collect implements prometheus.Collector.
func (c *SlotCollector) Collect(ch chan<- prometheus.Metric) {
	keyType := string(c.src.KeyType())
	for _, slot := range c.src.Slots() {
		ch <- prometheus.MustNewConstMetric(slotActiveDesc, prometheus.GaugeValue, float64(slot.Active), slot.Key, keyType)
		ch <- prometheus.MustNewConstMetric(slotConcurrencyDesc, prometheus.GaugeValue, float64(slot.Concurrency), slot.Key, keyType)
	}
}
