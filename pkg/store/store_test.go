package store

import (
    "path/filepath"
    "testing"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/expect"
    "github.com/clusterlab/sentinel-harness/pkg/timeline"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
    "github.com/clusterlab/sentinel-harness/pkg/verify"
)

func testResult(scenario string, verdict verify.Verdict) verify.Result {
    base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
    return verify.Result{
        Scenario: scenario,
        Verdict:  verdict,
        Expected: expect.Outcome{Class: expect.Failover, Within: 67 * time.Second},
        Started:  base,
        Finished: base.Add(90 * time.Second),
        Events: []timeline.Event{
            {Kind: timeline.EventRoleObserved, At: base, Node: "redis-1", Role: topology.RolePrimary, ConfigEpoch: 5, LeaderEpoch: 5},
            {Kind: timeline.EventPartitionApplied, At: base.Add(time.Second), Partition: "iso-all"},
            {Kind: timeline.EventRoleObserved, At: base.Add(10 * time.Second), Node: "redis-2", Role: topology.RolePrimary, ConfigEpoch: 6, LeaderEpoch: 6},
            {Kind: timeline.EventObservationFailed, At: base.Add(11 * time.Second), Node: "sent-1", Cause: "i/o timeout"},
            {Kind: timeline.EventPartitionHealed, At: base.Add(20 * time.Second), Partition: "iso-all"},
        },
        PromotionLatency: 9 * time.Second,
    }
}

func openStore(t *testing.T) *Store {
    t.Helper()
    s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
    if err != nil {
        t.Fatalf("open: %v", err)
    }
    t.Cleanup(func() { _ = s.Close() })
    return s
}

func TestStore_SaveAndRecent(t *testing.T) {
    s := openStore(t)
    if _, err := s.Save(testResult("isolate-primary", verify.VerdictPass)); err != nil {
        t.Fatalf("save: %v", err)
    }
    if _, err := s.Save(testResult("split-sentinels", verify.VerdictFail)); err != nil {
        t.Fatalf("save: %v", err)
    }

    runs, err := s.Recent(10)
    if err != nil {
        t.Fatalf("recent: %v", err)
    }
    if len(runs) != 2 {
        t.Fatalf("runs = %d, want 2", len(runs))
    }
    // newest first
    if runs[0].Scenario != "split-sentinels" || runs[0].Verdict != verify.VerdictFail {
        t.Fatalf("runs[0] = %+v", runs[0])
    }
    if runs[1].Scenario != "isolate-primary" || runs[1].Verdict != verify.VerdictPass {
        t.Fatalf("runs[1] = %+v", runs[1])
    }
    if runs[0].Started.IsZero() || runs[0].Finished.Before(runs[0].Started) {
        t.Fatalf("timestamps not round-tripped: %+v", runs[0])
    }

    if got, err := s.Recent(1); err != nil || len(got) != 1 {
        t.Fatalf("recent(1) = %v, %v", got, err)
    }
}

func TestStore_Events(t *testing.T) {
    s := openStore(t)
    res := testResult("isolate-primary", verify.VerdictPass)
    id, err := s.Save(res)
    if err != nil {
        t.Fatalf("save: %v", err)
    }

    events, err := s.Events(id)
    if err != nil {
        t.Fatalf("events: %v", err)
    }
    if len(events) != len(res.Events) {
        t.Fatalf("events = %d, want %d", len(events), len(res.Events))
    }
    for i, e := range events {
        want := res.Events[i]
        if e.Kind != want.Kind || e.Node != want.Node || e.Role != want.Role ||
            e.ConfigEpoch != want.ConfigEpoch || e.Partition != want.Partition || e.Cause != want.Cause {
            t.Fatalf("event %d = %+v, want %+v", i, e, want)
        }
        if !e.At.Equal(want.At) {
            t.Fatalf("event %d at = %s, want %s", i, e.At, want.At)
        }
    }

    if got, err := s.Events(id + 1); err != nil || len(got) != 0 {
        t.Fatalf("events for unknown run = %v, %v", got, err)
    }
}
