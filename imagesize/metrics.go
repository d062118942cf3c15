package imagesize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe outcomes reported in the result label.
const (
	resultHit     = "cache_hit"
	resultOK      = "ok"
	resultFailed  = "failed"
	resultInvalid = "invalid"
)

var (
	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_image_probe_total",
		Help: "Remote image dimension probes by result.",
	}, []string{"result"})

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blog_image_probe_duration_seconds",
		Help:    "Duration of remote image dimension probes that reached the network.",
		Buckets: prometheus.DefBuckets,
	})
)
