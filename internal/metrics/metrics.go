// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/pipeline"
)

var (
	// LayerFramesTotal counts codec steps that succeeded
	LayerFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osisim_layer_frames_total",
			Help: "Total number of frames produced by a layer codec",
		},
		[]string{"layer", "direction", "codec"},
	)

	// LayerFrameBytes measures the size of each layer's output
	LayerFrameBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osisim_layer_frame_bytes",
			Help:    "Size of frames produced by a layer codec in bytes",
			Buckets: prometheus.ExponentialBuckets(16, 2, 14), // 16B to ~128KiB
		},
		[]string{"layer", "direction"},
	)

	// LayerErrorsTotal counts codec failures by error kind
	LayerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osisim_layer_errors_total",
			Help: "Total number of layer codec failures",
		},
		[]string{"layer", "direction", "kind"},
	)

	// RoundTripSeconds measures a full send plus receive
	RoundTripSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osisim_round_trip_seconds",
			Help:    "Latency of a full send and receive through the stack in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"profile"},
	)
)

// Observer feeds pipeline events into the package collectors.
type Observer struct{}

func (Observer) Observe(e pipeline.Event) {
	layer := e.Layer.Key()
	dir := directionLabel(e.Direction)
	if e.Err != nil {
		LayerErrorsTotal.WithLabelValues(layer, dir, core.ErrorKind(e.Err)).Inc()
		return
	}
	LayerFramesTotal.WithLabelValues(layer, dir, e.Codec).Inc()
	if e.Value.Kind() != core.KindStructured {
		LayerFrameBytes.WithLabelValues(layer, dir).Observe(float64(e.Value.Len()))
	}
}

func directionLabel(d core.Direction) string {
	if d == core.Sending {
		return "send"
	}
	return "receive"
}
