// Package observer produces best-effort point-in-time snapshots of every
// node's role and epoch. Node queries go through the RoleClient capability
// so that tests can substitute a fake and the production path can speak the
// Redis/Sentinel protocol.
package observer

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/internal/logutil"
    obsmetrics "github.com/clusterlab/sentinel-harness/pkg/observability/metrics"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// RoleInfo is the answer to a single role/epoch query.
type RoleInfo struct {
    Role        topology.Role
    ConfigEpoch uint64
    LeaderEpoch uint64
}

// RoleClient is the narrow surface the observer needs from the cluster
// control plane.
type RoleClient interface {
    GetRole(ctx context.Context, node topology.Node) (RoleInfo, error)
    Ping(ctx context.Context, node topology.Node) error
}

// Failure records a node that did not answer within the tick. It is an
// observer-side fact, not a verdict: a node unreachable from the harness
// may still be reachable by other cluster members.
type Failure struct {
    Node  string
    Cause string
    At    time.Time
}

// Observer polls all nodes of a topology concurrently.
type Observer struct {
    client RoleClient
    logger *log.Logger
}

// New constructs an Observer. logger may be nil.
func New(client RoleClient, logger *log.Logger) *Observer {
    return &Observer{client: client, logger: logger}
}

type probe struct {
    node topology.Node
    info RoleInfo
    err  error
    at   time.Time
}

// Observe issues one role/epoch query per node, bounded by timeout, and
// assembles a snapshot. It never blocks past timeout regardless of
// individual node slowness, never mutates the topology, and does not retry
// within a tick; retries happen naturally on the next tick.
func (o *Observer) Observe(ctx context.Context, t topology.Topology, timeout time.Duration) (topology.Snapshot, []Failure) {
    ctx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()

    results := make(chan probe, len(t.Nodes))
    var wg sync.WaitGroup
    for _, n := range t.Nodes {
        wg.Add(1)
        go func(n topology.Node) {
            defer wg.Done()
            info, err := o.client.GetRole(ctx, n)
            results <- probe{node: n, info: info, err: err, at: time.Now()}
        }(n)
    }
    wg.Wait()
    close(results)

    snap := topology.NewSnapshot(time.Now())
    var failures []Failure
    for r := range results {
        if r.err != nil {
            obsmetrics.ObservationFailures.WithLabelValues(r.node.Name).Inc()
            logutil.Warnf(o.logger, "observe: node=%s err=%v", r.node.Name, r.err)
            failures = append(failures, Failure{Node: r.node.Name, Cause: r.err.Error(), At: r.at})
            continue
        }
        snap.States[r.node.Name] = topology.ObservedState{
            Role:        r.info.Role,
            ConfigEpoch: r.info.ConfigEpoch,
            LeaderEpoch: r.info.LeaderEpoch,
            LinkUp:      true,
            LastSeen:    r.at,
        }
    }
    return snap, failures
}
