package topology

import (
    "fmt"
    "sort"
    "time"
)

// Topology describes the cluster under test: its nodes plus the quorum and
// timing configuration mirrored from the live Sentinel deployment. These are
// inputs, never computed; the harness does not parse Sentinel's own config.
type Topology struct {
    MasterName      string
    Nodes           []Node
    Quorum          int
    DownAfter       time.Duration
    FailoverTimeout time.Duration
}

// Validate checks structural sanity of the descriptor before a run.
func (t Topology) Validate() error {
    if t.MasterName == "" {
        return fmt.Errorf("topology: empty master name")
    }
    if t.Quorum < 1 {
        return fmt.Errorf("topology: quorum must be >= 1, got %d", t.Quorum)
    }
    if t.DownAfter <= 0 || t.FailoverTimeout <= 0 {
        return fmt.Errorf("topology: down-after and failover-timeout must be positive")
    }
    seen := make(map[string]struct{}, len(t.Nodes))
    var primaries, sentinels int
    for _, n := range t.Nodes {
        if n.Name == "" || n.Addr == "" {
            return fmt.Errorf("topology: node with empty name or addr")
        }
        if _, dup := seen[n.Name]; dup {
            return fmt.Errorf("topology: duplicate node %q", n.Name)
        }
        seen[n.Name] = struct{}{}
        switch n.Kind {
        case KindPrimary:
            primaries++
        case KindSentinel:
            sentinels++
        case KindReplica:
        default:
            return fmt.Errorf("topology: node %q has unknown kind %q", n.Name, n.Kind)
        }
    }
    if primaries != 1 {
        return fmt.Errorf("topology: want exactly one declared primary, got %d", primaries)
    }
    if t.Quorum > sentinels {
        return fmt.Errorf("topology: quorum %d exceeds sentinel count %d", t.Quorum, sentinels)
    }
    return nil
}

// Node returns the node with the given name, if present.
func (t Topology) Node(name string) (Node, bool) {
    for _, n := range t.Nodes {
        if n.Name == name {
            return n, true
        }
    }
    return Node{}, false
}

// Primary returns the declared primary node.
func (t Topology) Primary() (Node, bool) {
    for _, n := range t.Nodes {
        if n.Kind == KindPrimary {
            return n, true
        }
    }
    return Node{}, false
}

// Sentinels returns the sentinel nodes in descriptor order.
func (t Topology) Sentinels() []Node {
    var out []Node
    for _, n := range t.Nodes {
        if n.Kind == KindSentinel {
            out = append(out, n)
        }
    }
    return out
}

// Snapshot is a best-effort point-in-time view of every node's observed
// state. Snapshots are values; the Observer returns a new one per tick and
// never mutates the Topology.
type Snapshot struct {
    At     time.Time
    States map[string]ObservedState
}

// NewSnapshot returns an empty snapshot stamped at the given time.
func NewSnapshot(at time.Time) Snapshot {
    return Snapshot{At: at, States: make(map[string]ObservedState)}
}

// Primaries returns the names of all nodes observed in role primary,
// sorted for deterministic iteration.
func (s Snapshot) Primaries() []string {
    var out []string
    for name, st := range s.States {
        if st.Role == RolePrimary {
            out = append(out, name)
        }
    }
    sort.Strings(out)
    return out
}
