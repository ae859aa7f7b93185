package observer

import (
    "context"
    "fmt"
    "testing"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

type fakeClient struct {
    roles map[string]RoleInfo
    slow  map[string]bool
    fail  map[string]bool
}

func (f *fakeClient) GetRole(ctx context.Context, node topology.Node) (RoleInfo, error) {
    if f.slow[node.Name] {
        select {
        case <-ctx.Done():
            return RoleInfo{}, ctx.Err()
        case <-time.After(5 * time.Second):
        }
    }
    if f.fail[node.Name] {
        return RoleInfo{}, fmt.Errorf("connection refused")
    }
    return f.roles[node.Name], nil
}

func (f *fakeClient) Ping(ctx context.Context, node topology.Node) error {
    _, err := f.GetRole(ctx, node)
    return err
}

func testTopo() topology.Topology {
    return topology.Topology{
        MasterName:      "mymaster",
        Quorum:          2,
        DownAfter:       5 * time.Second,
        FailoverTimeout: 60 * time.Second,
        Nodes: []topology.Node{
            {Name: "redis-1", Addr: "10.0.0.1:6379", Kind: topology.KindPrimary},
            {Name: "redis-2", Addr: "10.0.0.2:6379", Kind: topology.KindReplica},
            {Name: "sent-1", Addr: "10.0.0.11:26379", Kind: topology.KindSentinel},
            {Name: "sent-2", Addr: "10.0.0.12:26379", Kind: topology.KindSentinel},
            {Name: "sent-3", Addr: "10.0.0.13:26379", Kind: topology.KindSentinel},
        },
    }
}

func allUp() map[string]RoleInfo {
    return map[string]RoleInfo{
        "redis-1": {Role: topology.RolePrimary},
        "redis-2": {Role: topology.RoleReplica},
        "sent-1":  {Role: topology.RoleSentinel, ConfigEpoch: 3, LeaderEpoch: 3},
        "sent-2":  {Role: topology.RoleSentinel, ConfigEpoch: 3, LeaderEpoch: 3},
        "sent-3":  {Role: topology.RoleSentinel, ConfigEpoch: 3, LeaderEpoch: 3},
    }
}

func TestObserve_AllNodes(t *testing.T) {
    obs := New(&fakeClient{roles: allUp()}, nil)
    snap, fails := obs.Observe(context.Background(), testTopo(), time.Second)
    if len(fails) != 0 {
        t.Fatalf("failures = %v, want none", fails)
    }
    if len(snap.States) != 5 {
        t.Fatalf("states = %d, want 5", len(snap.States))
    }
    st := snap.States["sent-1"]
    if st.Role != topology.RoleSentinel || st.ConfigEpoch != 3 || !st.LinkUp {
        t.Fatalf("unexpected sent-1 state: %+v", st)
    }
    if got := snap.Primaries(); len(got) != 1 || got[0] != "redis-1" {
        t.Fatalf("primaries = %v, want [redis-1]", got)
    }
}

func TestObserve_SlowNodeDoesNotBlockTick(t *testing.T) {
    client := &fakeClient{roles: allUp(), slow: map[string]bool{"sent-3": true}}
    obs := New(client, nil)

    start := time.Now()
    snap, fails := obs.Observe(context.Background(), testTopo(), 100*time.Millisecond)
    elapsed := time.Since(start)

    if elapsed > time.Second {
        t.Fatalf("observe blocked %s, want bounded by tick timeout", elapsed)
    }
    if len(fails) != 1 || fails[0].Node != "sent-3" {
        t.Fatalf("failures = %v, want exactly sent-3", fails)
    }
    if _, ok := snap.States["sent-3"]; ok {
        t.Fatalf("timed-out node must not appear in the snapshot")
    }
    if len(snap.States) != 4 {
        t.Fatalf("states = %d, want 4", len(snap.States))
    }
}

func TestObserve_FailureIsPerNode(t *testing.T) {
    client := &fakeClient{roles: allUp(), fail: map[string]bool{"redis-2": true}}
    obs := New(client, nil)
    snap, fails := obs.Observe(context.Background(), testTopo(), time.Second)
    if len(fails) != 1 || fails[0].Cause != "connection refused" {
        t.Fatalf("failures = %v, want connection refused for redis-2", fails)
    }
    if len(snap.States) != 4 {
        t.Fatalf("states = %d, want 4", len(snap.States))
    }
}

func TestParseInfo(t *testing.T) {
    raw := "# Server\r\nredis_mode:sentinel\r\n\r\n# Replication\r\nrole:master\r\n"
    got := parseInfo(raw)
    if got["redis_mode"] != "sentinel" || got["role"] != "master" {
        t.Fatalf("parseInfo = %v", got)
    }
}
