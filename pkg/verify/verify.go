// Package verify replays a scenario timeline against the predicted outcome
// and the cluster-wide invariants, producing a verdict with diagnostics.
// Verification is pure: it sees only recorded events, never the live
// cluster.
package verify

import (
    "fmt"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/expect"
    "github.com/clusterlab/sentinel-harness/pkg/timeline"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// Verdict is the terminal classification of one scenario run.
type Verdict string

const (
    VerdictPass Verdict = "pass"
    VerdictFail Verdict = "fail"
    // VerdictInconclusive marks runs where environment-level failures
    // prevented a definitive answer. Never conflated with fail.
    VerdictInconclusive Verdict = "inconclusive"
)

// Assertion is one named check with its outcome and the events behind it.
type Assertion struct {
    Name      string
    Satisfied bool
    Detail    string
    Events    []timeline.Event
}

// Result is the full outcome of one scenario: verdict, the sealed timeline
// and every assertion checked.
type Result struct {
    Scenario   string
    Verdict    Verdict
    Expected   expect.Outcome
    Started    time.Time
    Finished   time.Time
    Events     []timeline.Event
    Assertions []Assertion
    // PromotionLatency is set when a promotion was observed: time from the
    // first partition apply to the first foreign primary observation.
    PromotionLatency time.Duration
}

// Failed returns the unsatisfied assertions.
func (r Result) Failed() []Assertion {
    var out []Assertion
    for _, a := range r.Assertions {
        if !a.Satisfied {
            out = append(out, a)
        }
    }
    return out
}

// Input carries everything the engine needs for one replay.
type Input struct {
    Scenario     string
    Topology     topology.Topology
    Expected     expect.Outcome
    PollInterval time.Duration
    Events       []timeline.Event
    Started      time.Time
    Finished     time.Time
    // EnvironmentErr, when non-nil, caps the verdict at inconclusive: the
    // infrastructure could not apply/heal faults or reach the control
    // plane, so observed behavior proves nothing either way.
    EnvironmentErr error
    // ObserverOutage is set when no observation succeeded while the fault
    // was active; the run cannot be judged.
    ObserverOutage bool
}

// Engine replays timelines. Stateless; the zero value is ready to use.
type Engine struct{}

// Verify replays the timeline and produces the scenario result.
func (Engine) Verify(in Input) Result {
    res := Result{
        Scenario: in.Scenario,
        Expected: in.Expected,
        Started:  in.Started,
        Finished: in.Finished,
        Events:   in.Events,
    }
    if in.EnvironmentErr != nil {
        res.Verdict = VerdictInconclusive
        res.Assertions = append(res.Assertions, Assertion{
            Name:   "environment",
            Detail: fmt.Sprintf("environment failure: %v", in.EnvironmentErr),
        })
        return res
    }
    if in.ObserverOutage {
        res.Verdict = VerdictInconclusive
        res.Assertions = append(res.Assertions, Assertion{
            Name:   "environment",
            Detail: "total observer outage while fault was active",
        })
        return res
    }

    split := checkSplitBrain(in)
    epochs := checkEpochMonotonic(in)
    outcome, latency := checkOutcome(in)
    recovery := checkRecovery(in)
    res.PromotionLatency = latency
    res.Assertions = []Assertion{split, epochs, outcome, recovery}

    res.Verdict = VerdictPass
    for _, a := range res.Assertions {
        if !a.Satisfied {
            res.Verdict = VerdictFail
            break
        }
    }
    return res
}

// checkSplitBrain scans for two nodes simultaneously holding role primary.
// Transient overlap during an in-flight election is tolerated; overlap
// persisting longer than one polling interval is a violation.
func checkSplitBrain(in Input) Assertion {
    a := Assertion{Name: "no-split-brain", Satisfied: true, Detail: "at most one primary at all times"}
    current := make(map[string]topology.Role)
    var overlapSince time.Time
    var overlapEvents []timeline.Event
    for _, e := range in.Events {
        if e.Kind != timeline.EventRoleObserved {
            continue
        }
        current[e.Node] = e.Role
        n := 0
        for _, role := range current {
            if role == topology.RolePrimary {
                n++
            }
        }
        if n > 1 {
            if overlapSince.IsZero() {
                overlapSince = e.At
            }
            overlapEvents = append(overlapEvents, e)
            if e.At.Sub(overlapSince) > in.PollInterval {
                a.Satisfied = false
                a.Detail = fmt.Sprintf("%d simultaneous primaries persisted %s (> poll interval %s)",
                    n, e.At.Sub(overlapSince), in.PollInterval)
                a.Events = overlapEvents
                return a
            }
        } else {
            overlapSince = time.Time{}
            overlapEvents = nil
        }
    }
    return a
}

// checkEpochMonotonic asserts config- and leader-epochs never decrease per
// node across the timeline.
func checkEpochMonotonic(in Input) Assertion {
    a := Assertion{Name: "monotonic-epochs", Satisfied: true, Detail: "epochs non-decreasing per node"}
    type epochs struct{ config, leader uint64 }
    last := make(map[string]epochs)
    for _, e := range in.Events {
        if e.Kind != timeline.EventRoleObserved {
            continue
        }
        prev, seen := last[e.Node]
        if seen && (e.ConfigEpoch < prev.config || e.LeaderEpoch < prev.leader) {
            a.Satisfied = false
            a.Detail = fmt.Sprintf("node %s epoch regressed: config %d->%d leader %d->%d",
                e.Node, prev.config, e.ConfigEpoch, prev.leader, e.LeaderEpoch)
            a.Events = append(a.Events, e)
            return a
        }
        last[e.Node] = epochs{config: e.ConfigEpoch, leader: e.LeaderEpoch}
    }
    return a
}

// checkOutcome compares the observed failover behavior with the predicted
// outcome class, including the timing bound and the epoch increment for
// expected failovers.
func checkOutcome(in Input) (Assertion, time.Duration) {
    primary, _ := in.Topology.Primary()

    var faultAt time.Time
    var preMaxEpoch uint64
    for _, e := range in.Events {
        if e.Kind == timeline.EventPartitionApplied {
            faultAt = e.At
            break
        }
        if e.Kind == timeline.EventRoleObserved && e.ConfigEpoch > preMaxEpoch {
            preMaxEpoch = e.ConfigEpoch
        }
    }

    // First observation of a node other than the declared primary in role
    // primary, after the fault was applied.
    var promotion *timeline.Event
    for i, e := range in.Events {
        if e.Kind != timeline.EventRoleObserved || e.Role != topology.RolePrimary {
            continue
        }
        if e.Node == primary.Name || faultAt.IsZero() || e.At.Before(faultAt) {
            continue
        }
        promotion = &in.Events[i]
        break
    }

    switch in.Expected.Class {
    case expect.NoFailover:
        if promotion != nil {
            return Assertion{
                Name:   "quorum-preservation",
                Detail: fmt.Sprintf("unexpected promotion of %s at %s", promotion.Node, promotion.At.Format(time.RFC3339)),
                Events: []timeline.Event{*promotion},
            }, 0
        }
        return Assertion{Name: "quorum-preservation", Satisfied: true,
            Detail: "no role change to primary while quorum held"}, 0

    case expect.Failover:
        if promotion == nil {
            return Assertion{
                Name:   "failover-within-bound",
                Detail: fmt.Sprintf("expected promotion within %s, none observed", in.Expected.Within),
            }, 0
        }
        latency := promotion.At.Sub(faultAt)
        if latency > in.Expected.Within {
            return Assertion{
                Name:   "failover-within-bound",
                Detail: fmt.Sprintf("promotion of %s took %s, bound %s", promotion.Node, latency, in.Expected.Within),
                Events: []timeline.Event{*promotion},
            }, latency
        }
        // Monotonic-epoch property: the new primary's configuration must
        // supersede the old one. Epochs are reported by sentinels only;
        // when the run produced none at all, the check has nothing to say.
        var postMaxEpoch uint64
        for _, e := range in.Events {
            if e.Kind == timeline.EventRoleObserved && !e.At.Before(promotion.At) && e.ConfigEpoch > postMaxEpoch {
                postMaxEpoch = e.ConfigEpoch
            }
        }
        if postMaxEpoch > 0 || preMaxEpoch > 0 {
            if postMaxEpoch <= preMaxEpoch {
                return Assertion{
                    Name:   "failover-within-bound",
                    Detail: fmt.Sprintf("promotion observed but config epoch did not advance (%d -> %d)", preMaxEpoch, postMaxEpoch),
                    Events: []timeline.Event{*promotion},
                }, latency
            }
        }
        return Assertion{Name: "failover-within-bound", Satisfied: true,
            Detail: fmt.Sprintf("%s promoted after %s (bound %s)", promotion.Node, latency, in.Expected.Within)}, latency
    }
    return Assertion{Name: "outcome", Detail: fmt.Sprintf("unknown outcome class %q", in.Expected.Class)}, 0
}

// checkRecovery asserts that after the last heal the cluster converged back
// to exactly one primary.
func checkRecovery(in Input) Assertion {
    var healedAt time.Time
    for _, e := range in.Events {
        if e.Kind == timeline.EventPartitionHealed {
            healedAt = e.At
        }
    }
    if healedAt.IsZero() {
        return Assertion{Name: "recovery", Detail: "no heal recorded; cluster may be left partitioned"}
    }
    final := make(map[string]topology.Role)
    for _, e := range in.Events {
        if e.Kind == timeline.EventRoleObserved {
            final[e.Node] = e.Role
        }
    }
    var primaries []string
    for node, role := range final {
        if role == topology.RolePrimary {
            primaries = append(primaries, node)
        }
    }
    if len(primaries) != 1 {
        return Assertion{Name: "recovery",
            Detail: fmt.Sprintf("expected exactly one primary after heal, final state has %d %v", len(primaries), primaries)}
    }
    return Assertion{Name: "recovery", Satisfied: true,
        Detail: fmt.Sprintf("converged to single primary %s after heal", primaries[0])}
}
