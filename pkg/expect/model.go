// Package expect encodes the Sentinel quorum/failover state machine
// abstractly. Given a topology and a set of partitions it computes the
// outcome class the live cluster is expected to converge to. The package is
// pure and performs no I/O so that predictions can be property-tested
// against synthetic topologies.
package expect

import (
    "fmt"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// OutcomeClass classifies what the cluster should do under a fault.
type OutcomeClass string

const (
    // NoFailover: the sentinels still seeing the primary, counted together
    // with the primary's own liveness, meet or exceed quorum, so no
    // objective-down verdict can form.
    NoFailover OutcomeClass = "no_failover"
    // Failover: fewer than quorum can vouch for the primary; a replica is
    // expected to be promoted within Outcome.Within.
    Failover OutcomeClass = "failover"
)

// Outcome is the predicted result of applying a partition set.
type Outcome struct {
    Class OutcomeClass
    // Within is the latest acceptable promotion time for Failover:
    // downAfter + failoverTimeout + scheduling slack. Zero for NoFailover.
    Within time.Duration
    // SentinelsReachingPrimary is the reach count behind the decision,
    // kept for diagnostics.
    SentinelsReachingPrimary int
}

func (o Outcome) String() string {
    if o.Class == Failover {
        return fmt.Sprintf("failover within %s (reach=%d)", o.Within, o.SentinelsReachingPrimary)
    }
    return fmt.Sprintf("no failover (reach=%d)", o.SentinelsReachingPrimary)
}

// Reachable reports whether the direct link between a and b survives every
// spec in the set. Reachability here is per-link, not transitive: Sentinel's
// subjective-down detection rides on the direct connection.
func Reachable(specs []topology.PartitionSpec, a, b string) bool {
    for _, ps := range specs {
        if ps.Severs(a, b) {
            return false
        }
    }
    return true
}

// Predict computes the expected outcome of the given partitions. slack
// absorbs polling granularity and Sentinel's own timers; callers typically
// pass a couple of poll intervals plus a constant.
func Predict(t topology.Topology, specs []topology.PartitionSpec, slack time.Duration) (Outcome, error) {
    if err := t.Validate(); err != nil {
        return Outcome{}, err
    }
    for i, ps := range specs {
        if err := ps.Validate(t); err != nil {
            return Outcome{}, err
        }
        for _, other := range specs[i+1:] {
            if ps.Overlaps(other) {
                return Outcome{}, fmt.Errorf("expect: partitions %q and %q overlap", ps.Name, other.Name)
            }
        }
    }
    primary, _ := t.Primary()
    reach := 0
    for _, s := range t.Sentinels() {
        if Reachable(specs, s.Name, primary.Name) {
            reach++
        }
    }
    // The primary's own liveness counts toward the quorum: the harness
    // severs links, it never kills the primary process.
    if reach+1 >= t.Quorum {
        return Outcome{Class: NoFailover, SentinelsReachingPrimary: reach}, nil
    }
    return Outcome{
        Class:                    Failover,
        Within:                   t.DownAfter + t.FailoverTimeout + slack,
        SentinelsReachingPrimary: reach,
    }, nil
}
