package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

var (
	forwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirrorgram",
		Subsystem: "driver",
		Name:      "messages_forwarded_total",
		Help:      "Source messages fully delivered to their destination.",
	}, []string{"pair"})

	skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirrorgram",
		Subsystem: "driver",
		Name:      "messages_skipped_total",
		Help:      "Source messages dropped before sending, by reason.",
	}, []string{"pair", "reason"})

	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirrorgram",
		Subsystem: "driver",
		Name:      "messages_failed_total",
		Help:      "Source messages whose delivery failed and was left for a later cycle.",
	}, []string{"pair"})

	attachmentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirrorgram",
		Subsystem: "driver",
		Name:      "attachment_bytes_total",
		Help:      "Bytes of attachment payload relayed through scratch storage.",
	}, []string{"pair"})

	offsetGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mirrorgram",
		Subsystem: "driver",
		Name:      "pair_offset",
		Help:      "Last committed source message ID per pair.",
	}, []string{"pair"})
)

func recordForwarded(pair message.Pair) {
	forwardedTotal.WithLabelValues(pair.String()).Inc()
}

func recordSkipped(pair message.Pair, reason string) {
	skippedTotal.WithLabelValues(pair.String(), reason).Inc()
}

func recordFailed(pair message.Pair) {
	failedTotal.WithLabelValues(pair.String()).Inc()
}

func recordAttachmentBytes(pair message.Pair, n int64) {
	attachmentBytes.WithLabelValues(pair.String()).Add(float64(n))
}

func setOffsetMetric(pair message.Pair, id int64) {
	offsetGauge.WithLabelValues(pair.String()).Set(float64(id))
}
