package scenario

import (
    "context"
    "errors"
    "log"
    "sync"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/expect"
    "github.com/clusterlab/sentinel-harness/pkg/internal/logutil"
    obsmetrics "github.com/clusterlab/sentinel-harness/pkg/observability/metrics"
    "github.com/clusterlab/sentinel-harness/pkg/observability/tracing"
    "github.com/clusterlab/sentinel-harness/pkg/observer"
    "github.com/clusterlab/sentinel-harness/pkg/partition"
    "github.com/clusterlab/sentinel-harness/pkg/timeline"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
    "github.com/clusterlab/sentinel-harness/pkg/verify"
)

// Runner drives scenarios through Idle → Partitioning → Observing →
// Healing → Verifying → Done. Runs against one topology are serialized so
// that partition and heal operations never interleave across scenarios.
type Runner struct {
    topo   topology.Topology
    obs    *observer.Observer
    ctl    *partition.Controller
    eng    verify.Engine
    cfg    Config
    logger *log.Logger
    eb     eventBus

    mu      sync.Mutex // serializes runs
    stateMu sync.Mutex
    phase   Phase
    current string
    last    topology.Snapshot
}

// NewRunner validates the topology and assembles a runner.
func NewRunner(t topology.Topology, obs *observer.Observer, ctl *partition.Controller, cfg Config, logger *log.Logger) (*Runner, error) {
    if err := t.Validate(); err != nil {
        return nil, err
    }
    obsmetrics.Register()
    return &Runner{
        topo:   t,
        obs:    obs,
        ctl:    ctl,
        cfg:    cfg.withDefaults(t),
        logger: logger,
        phase:  PhaseIdle,
    }, nil
}

// Phase reports the runner's current phase and scenario, for status
// endpoints.
func (r *Runner) Phase() (Phase, string) {
    r.stateMu.Lock()
    defer r.stateMu.Unlock()
    return r.phase, r.current
}

func (r *Runner) setPhase(p Phase, scenario string) {
    r.stateMu.Lock()
    r.phase, r.current = p, scenario
    r.stateMu.Unlock()
}

// LastSnapshot returns the most recent observation, for status views.
func (r *Runner) LastSnapshot() topology.Snapshot {
    r.stateMu.Lock()
    defer r.stateMu.Unlock()
    return r.last
}

// StaleAfter is the age past which an observed role should no longer be
// trusted for display: three polling intervals.
func (r *Runner) StaleAfter() time.Duration {
    return 3 * r.cfg.PollInterval
}

// Run executes one scenario end to end and always returns a terminal
// result: pass, fail or inconclusive. Applied faults are healed on every
// exit path, including cancellation and environment errors.
func (r *Runner) Run(ctx context.Context, sc Scenario) verify.Result {
    r.mu.Lock()
    defer r.mu.Unlock()
    ctx, end := tracing.StartSpan(ctx, "scenario.run")
    defer end()
    defer r.setPhase(PhaseIdle, "")

    started := time.Now()
    tl := &timeline.Timeline{}
    record := func(e timeline.Event) {
        tl.Append(e)
        r.eb.publish(e)
    }

    expected, predictErr := expect.Predict(r.topo, sc.Partitions, r.cfg.Slack)
    if predictErr != nil {
        return r.finish(sc, tl, expected, started, predictErr, false)
    }
    logutil.Infof(r.logger, "scenario %s: expecting %s", sc.Name, expected)

    // Baseline observation before any fault: seeds the diff and captures
    // pre-fault epochs.
    r.setPhase(PhaseIdle, sc.Name)
    prev, fails := r.obs.Observe(ctx, r.topo, r.cfg.ObserveTimeout)
    r.recordTick(record, topology.Snapshot{}, prev, fails)

    // Partitioning.
    r.setPhase(PhasePartitioning, sc.Name)
    var envErr error
    for _, spec := range sc.Partitions {
        if err := r.ctl.Apply(ctx, spec); err != nil {
            logutil.Errorf(r.logger, "scenario %s: apply %s: %v", sc.Name, spec.Name, err)
            envErr = err
            break
        }
        record(timeline.Event{Kind: timeline.EventPartitionApplied, At: time.Now(), Partition: spec.Name})
    }
    faultAt := time.Now()

    // Observing. Poll until the expected outcome is stable for two
    // consecutive ticks or the hard timeout elapses. The deadline is a
    // cooperative check between ticks; an in-flight tick finishes first.
    goodTicks := 0
    if envErr == nil {
        r.setPhase(PhaseObserving, sc.Name)
        deadline := faultAt.Add(r.cfg.HardTimeout)
        stable := 0
        for {
            if err := ctx.Err(); err != nil {
                envErr = err
                break
            }
            if time.Now().After(deadline) {
                logutil.Warnf(r.logger, "scenario %s: hard timeout after %s", sc.Name, r.cfg.HardTimeout)
                break
            }
            select {
            case <-ctx.Done():
                envErr = ctx.Err()
            case <-time.After(r.cfg.PollInterval):
            }
            if envErr != nil {
                break
            }
            snap, fails := r.obs.Observe(ctx, r.topo, r.cfg.ObserveTimeout)
            r.recordTick(record, prev, snap, fails)
            prev = snap
            if len(snap.States) > 0 {
                goodTicks++
            }
            if r.outcomeObserved(expected, snap, faultAt) {
                stable++
                if stable >= 2 {
                    break
                }
            } else {
                stable = 0
            }
        }
    }

    // Healing always runs, with its own context: a cancelled scenario must
    // still not leak applied faults.
    r.setPhase(PhaseHealing, sc.Name)
    active := r.ctl.Active()
    healCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    healErr := r.ctl.HealAll(healCtx)
    cancel()
    if healErr != nil {
        envErr = errors.Join(envErr, healErr)
    } else {
        for _, name := range active {
            record(timeline.Event{Kind: timeline.EventPartitionHealed, At: time.Now(), Partition: name})
        }
    }

    // One more polling pass after healing to confirm convergence back to a
    // single primary.
    if envErr == nil {
        for i := 0; i < r.cfg.ConvergeTicks; i++ {
            select {
            case <-ctx.Done():
            case <-time.After(r.cfg.PollInterval):
            }
            if ctx.Err() != nil {
                break
            }
            snap, fails := r.obs.Observe(ctx, r.topo, r.cfg.ObserveTimeout)
            r.recordTick(record, prev, snap, fails)
            prev = snap
            if len(snap.Primaries()) == 1 && len(fails) == 0 {
                break
            }
        }
    }

    return r.finish(sc, tl, expected, started, envErr, goodTicks == 0 && envErr == nil)
}

func (r *Runner) finish(sc Scenario, tl *timeline.Timeline, expected expect.Outcome, started time.Time, envErr error, outage bool) verify.Result {
    r.setPhase(PhaseVerifying, sc.Name)
    tl.Seal()
    res := r.eng.Verify(verify.Input{
        Scenario:       sc.Name,
        Topology:       r.topo,
        Expected:       expected,
        PollInterval:   r.cfg.PollInterval,
        Events:         tl.Events(),
        Started:        started,
        Finished:       time.Now(),
        EnvironmentErr: envErr,
        ObserverOutage: outage,
    })
    obsmetrics.ScenariosTotal.WithLabelValues(string(res.Verdict)).Inc()
    if res.PromotionLatency > 0 {
        obsmetrics.FailoverLatency.Observe(res.PromotionLatency.Seconds())
    }
    for _, a := range res.Failed() {
        if a.Name == "no-split-brain" {
            obsmetrics.SplitBrainViolations.Inc()
        }
    }
    r.setPhase(PhaseDone, sc.Name)
    logutil.Infof(r.logger, "scenario %s: verdict=%s events=%d", sc.Name, res.Verdict, len(res.Events))
    return res
}

// recordTick turns one observation pass into timeline events.
func (r *Runner) recordTick(record func(timeline.Event), prev, snap topology.Snapshot, fails []observer.Failure) {
    r.stateMu.Lock()
    r.last = snap
    r.stateMu.Unlock()
    for _, f := range fails {
        record(timeline.Event{Kind: timeline.EventObservationFailed, At: f.At, Node: f.Node, Cause: f.Cause})
    }
    for _, e := range timeline.Diff(prev, snap) {
        record(e)
    }
    obsmetrics.ObservedPrimaries.Set(float64(len(snap.Primaries())))
}

// outcomeObserved reports whether the snapshot matches the predicted
// outcome. A failover is observed once any node other than the declared
// primary holds role primary; a no-failover prediction counts as observed
// only after the fault has been held long enough for Sentinel to have had a
// chance to react.
func (r *Runner) outcomeObserved(expected expect.Outcome, snap topology.Snapshot, faultAt time.Time) bool {
    primary, _ := r.topo.Primary()
    foreign := false
    for _, name := range snap.Primaries() {
        if name != primary.Name {
            foreign = true
        }
    }
    switch expected.Class {
    case expect.Failover:
        return foreign
    case expect.NoFailover:
        return !foreign && time.Since(faultAt) >= r.cfg.HoldAfterFault
    }
    return false
}
