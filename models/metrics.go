package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	poolLabel  = "pool"
	stateLabel = "state"
)

var (
	poolObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_objects",
		Help: "The number of visual objects held by a pool.",
	}, []string{poolLabel, stateLabel})

	poolObjectsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_objects_created_total",
		Help: "The total number of visual objects created by a pool.",
	}, []string{poolLabel})

	frameOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frame_overruns_total",
		Help: "The number of frames whose handlers took longer than the frame duration.",
	})
)

func instrumentPoolGauges(pool string, active, free int) {
	poolObjects.
		With(prometheus.Labels{poolLabel: pool, stateLabel: "active"}).
		Set(float64(active))
	poolObjects.
		With(prometheus.Labels{poolLabel: pool, stateLabel: "free"}).
		Set(float64(free))
}

func instrumentObjectCreated(pool string) {
	poolObjectsCreatedTotal.
		With(prometheus.Labels{poolLabel: pool}).
		Inc()
}

func instrumentFrameOverrun() {
	frameOverruns.Inc()
}

// DeletePoolMetrics removes the metrics of a pool that is no longer used.
func DeletePoolMetrics(pool string) {
	poolObjects.DeletePartialMatch(prometheus.Labels{poolLabel: pool})
	poolObjectsCreatedTotal.DeletePartialMatch(prometheus.Labels{poolLabel: pool})
}
