// Package scenario orchestrates one failover-verification run: apply
// faults, poll the cluster until quiescence or timeout, heal, poll again,
// and hand the recorded timeline to verification.
package scenario

import (
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// Phase is the runner's position in its state machine.
type Phase string

const (
    PhaseIdle         Phase = "idle"
    PhasePartitioning Phase = "partitioning"
    PhaseObserving    Phase = "observing"
    PhaseHealing      Phase = "healing"
    PhaseVerifying    Phase = "verifying"
    PhaseDone         Phase = "done"
)

// Scenario names one fault to inject against the topology.
type Scenario struct {
    Name       string
    Partitions []topology.PartitionSpec
}

// Config tunes the runner. Zero values take the documented defaults.
type Config struct {
    // PollInterval between observer ticks. Default 500ms.
    PollInterval time.Duration
    // ObserveTimeout bounds each tick's fan-out. Default PollInterval.
    ObserveTimeout time.Duration
    // Slack added to downAfter+failoverTimeout when predicting the latest
    // acceptable promotion. Default 2×PollInterval + 1s.
    Slack time.Duration
    // HardTimeout caps the observing phase. Default 2× the predicted
    // within-duration (or 2×(downAfter+failoverTimeout) when no failover
    // is expected).
    HardTimeout time.Duration
    // HoldAfterFault is how long a no-failover prediction must hold before
    // the outcome counts as observed. Default downAfter + Slack.
    HoldAfterFault time.Duration
    // ConvergeTicks bounds the post-heal convergence poll. Default 20.
    ConvergeTicks int
}

func (c Config) withDefaults(t topology.Topology) Config {
    if c.PollInterval <= 0 {
        c.PollInterval = 500 * time.Millisecond
    }
    if c.ObserveTimeout <= 0 {
        c.ObserveTimeout = c.PollInterval
    }
    if c.Slack <= 0 {
        c.Slack = 2*c.PollInterval + time.Second
    }
    if c.HardTimeout <= 0 {
        c.HardTimeout = 2 * (t.DownAfter + t.FailoverTimeout + c.Slack)
    }
    if c.HoldAfterFault <= 0 {
        c.HoldAfterFault = t.DownAfter + c.Slack
    }
    if c.ConvergeTicks <= 0 {
        c.ConvergeTicks = 20
    }
    return c
}
