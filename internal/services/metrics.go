package services

import "github.com/prometheus/client_golang/prometheus"

var (
	ingestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Feed events processed, by outcome (accepted, duplicate, rejected reason).",
		},
		[]string{"outcome"},
	)

	classificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_total",
			Help: "Classifications by the path that produced them.",
		},
		[]string{"source"},
	)

	imageResolutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolution_total",
			Help: "Image resolutions by source.",
		},
		[]string{"source"},
	)

	clicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_recorded_total",
			Help: "Clicks recorded in the ephemeral counter store.",
		},
	)

	flushKeysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_flush_keys_total",
			Help: "Counter keys handled by the click flush, by result.",
		},
		[]string{"kind", "result"},
	)

	flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "click_flush_duration_seconds",
			Help:    "Duration of one click flush iteration.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ingestTotal, classificationTotal, imageResolutionTotal, clicksTotal, flushKeysTotal, flushDuration)
}
