package topology

import (
    "testing"
    "time"
)

func threeSentinelTopo() Topology {
    return Topology{
        MasterName:      "mymaster",
        Quorum:          2,
        DownAfter:       5 * time.Second,
        FailoverTimeout: 60 * time.Second,
        Nodes: []Node{
            {Name: "redis-1", Addr: "10.0.0.1:6379", Kind: KindPrimary},
            {Name: "redis-2", Addr: "10.0.0.2:6379", Kind: KindReplica},
            {Name: "sent-1", Addr: "10.0.0.11:26379", Kind: KindSentinel},
            {Name: "sent-2", Addr: "10.0.0.12:26379", Kind: KindSentinel},
            {Name: "sent-3", Addr: "10.0.0.13:26379", Kind: KindSentinel},
        },
    }
}

func TestTopology_Validate(t *testing.T) {
    topo := threeSentinelTopo()
    if err := topo.Validate(); err != nil {
        t.Fatalf("valid topology rejected: %v", err)
    }

    dup := threeSentinelTopo()
    dup.Nodes = append(dup.Nodes, Node{Name: "sent-1", Addr: "x:1", Kind: KindSentinel})
    if err := dup.Validate(); err == nil {
        t.Fatalf("expected error on duplicate node")
    }

    twoPrimaries := threeSentinelTopo()
    twoPrimaries.Nodes[1].Kind = KindPrimary
    if err := twoPrimaries.Validate(); err == nil {
        t.Fatalf("expected error on two declared primaries")
    }

    bigQuorum := threeSentinelTopo()
    bigQuorum.Quorum = 4
    if err := bigQuorum.Validate(); err == nil {
        t.Fatalf("expected error when quorum exceeds sentinel count")
    }
}

func TestPair_Canonical(t *testing.T) {
    if NewPair("b", "a") != NewPair("a", "b") {
        t.Fatalf("pair order should not matter")
    }
}

func TestPartitionSpec_SeversAndOverlaps(t *testing.T) {
    topo := threeSentinelTopo()
    spec := PartitionSpec{Name: "iso", Pairs: []Pair{NewPair("sent-1", "redis-1")}}
    if err := spec.Validate(topo); err != nil {
        t.Fatalf("validate: %v", err)
    }
    if !spec.Severs("redis-1", "sent-1") {
        t.Fatalf("expected link to be severed regardless of order")
    }
    if spec.Severs("redis-1", "sent-2") {
        t.Fatalf("unrelated link reported severed")
    }

    other := PartitionSpec{Name: "other", Pairs: []Pair{NewPair("redis-1", "sent-1")}}
    if !spec.Overlaps(other) {
        t.Fatalf("expected overlap on shared pair")
    }
    disjoint := PartitionSpec{Name: "disjoint", Pairs: []Pair{NewPair("redis-1", "sent-2")}}
    if spec.Overlaps(disjoint) {
        t.Fatalf("disjoint specs reported overlapping")
    }
}

func TestPartitionSpec_ValidateRejects(t *testing.T) {
    topo := threeSentinelTopo()
    cases := []PartitionSpec{
        {Name: "empty"},
        {Name: "self", Pairs: []Pair{NewPair("sent-1", "sent-1")}},
        {Name: "unknown", Pairs: []Pair{NewPair("sent-1", "ghost")}},
        {Name: "dup", Pairs: []Pair{NewPair("sent-1", "redis-1"), NewPair("redis-1", "sent-1")}},
    }
    for _, spec := range cases {
        if err := spec.Validate(topo); err == nil {
            t.Fatalf("spec %q: expected validation error", spec.Name)
        }
    }
}

func TestObservedState_FreshRole(t *testing.T) {
    now := time.Now()
    st := ObservedState{Role: RolePrimary, LastSeen: now.Add(-time.Second)}
    if got := st.FreshRole(now, 2*time.Second); got != RolePrimary {
        t.Fatalf("fresh role = %q, want primary", got)
    }
    if got := st.FreshRole(now, 500*time.Millisecond); got != RoleUnknown {
        t.Fatalf("stale role = %q, want unknown", got)
    }
    if got := (ObservedState{Role: RolePrimary}).FreshRole(now, time.Hour); got != RoleUnknown {
        t.Fatalf("never-seen role = %q, want unknown", got)
    }
}

func TestSnapshot_Primaries(t *testing.T) {
    snap := NewSnapshot(time.Now())
    snap.States["b"] = ObservedState{Role: RolePrimary}
    snap.States["a"] = ObservedState{Role: RolePrimary}
    snap.States["c"] = ObservedState{Role: RoleReplica}
    got := snap.Primaries()
    if len(got) != 2 || got[0] != "a" || got[1] != "b" {
        t.Fatalf("primaries = %v, want [a b]", got)
    }
}
