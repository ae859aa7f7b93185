package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ScenariosTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "sentinel_harness",
        Name:      "scenarios_total",
        Help:      "Completed scenarios by verdict",
    }, []string{"verdict"})

    PartitionsApplied = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "sentinel_harness",
        Name:      "partitions_applied_total",
        Help:      "Total partition specs applied",
    })

    PartitionsHealed = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "sentinel_harness",
        Name:      "partitions_healed_total",
        Help:      "Total partition specs healed",
    })

    ActivePartitions = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "sentinel_harness",
        Name:      "partitions_active",
        Help:      "Partition specs currently applied",
    })

    ObservationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "sentinel_harness",
        Name:      "observation_failures_total",
        Help:      "Per-node role queries that missed the tick deadline",
    }, []string{"node"})

    ObservedPrimaries = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "sentinel_harness",
        Name:      "observed_primaries",
        Help:      "Nodes holding role primary in the latest snapshot",
    })

    FailoverLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
        Namespace: "sentinel_harness",
        Name:      "failover_latency_seconds",
        Help:      "Time from partition apply to observed promotion",
        Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
    })

    SplitBrainViolations = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "sentinel_harness",
        Name:      "split_brain_violations_total",
        Help:      "Timelines in which two primaries persisted past one poll interval",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(ScenariosTotal)
        prometheus.MustRegister(PartitionsApplied)
        prometheus.MustRegister(PartitionsHealed)
        prometheus.MustRegister(ActivePartitions)
        prometheus.MustRegister(ObservationFailures)
        prometheus.MustRegister(ObservedPrimaries)
        prometheus.MustRegister(FailoverLatency)
        prometheus.MustRegister(SplitBrainViolations)
    })
}
