package timeline

import (
    "fmt"
    "sort"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// EventKind discriminates timeline entries.
type EventKind string

const (
    EventPartitionApplied  EventKind = "partition_applied"
    EventPartitionHealed   EventKind = "partition_healed"
    EventRoleObserved      EventKind = "role_observed"
    EventObservationFailed EventKind = "observation_failed"
)

// Event is one discrete, timestamped fact observed during a scenario run.
// Only the fields relevant to the kind are populated.
type Event struct {
    Kind        EventKind
    At          time.Time
    Node        string
    Role        topology.Role
    ConfigEpoch uint64
    LeaderEpoch uint64
    Partition   string
    Cause       string
}

func (e Event) String() string {
    ts := e.At.Format("15:04:05.000")
    switch e.Kind {
    case EventPartitionApplied, EventPartitionHealed:
        return fmt.Sprintf("%s %s %s", ts, e.Kind, e.Partition)
    case EventRoleObserved:
        return fmt.Sprintf("%s %s node=%s role=%s epoch=%d", ts, e.Kind, e.Node, e.Role, e.ConfigEpoch)
    case EventObservationFailed:
        return fmt.Sprintf("%s %s node=%s cause=%s", ts, e.Kind, e.Node, e.Cause)
    }
    return fmt.Sprintf("%s %s", ts, e.Kind)
}

// Timeline is the append-only, time-ordered event log for one scenario run.
// The Scenario Runner owns it exclusively while the run is in flight and
// seals it before handing it to verification; Append after Seal panics,
// which would indicate a runner bug rather than a recoverable condition.
type Timeline struct {
    events []Event
    sealed bool
}

// Append adds an event. Events are expected to arrive in observation order;
// Append keeps the log sorted to absorb same-tick jitter across nodes
// (cross-node observations within one tick have no defined relative order).
func (tl *Timeline) Append(e Event) {
    if tl.sealed {
        panic("timeline: append after seal")
    }
    tl.events = append(tl.events, e)
    n := len(tl.events)
    if n > 1 && tl.events[n-2].At.After(e.At) {
        sort.SliceStable(tl.events, func(i, j int) bool {
            return tl.events[i].At.Before(tl.events[j].At)
        })
    }
}

// Seal freezes the timeline. Further appends panic.
func (tl *Timeline) Seal() { tl.sealed = true }

// Events returns the ordered entries. The returned slice is a copy; the
// verification stage may share it freely.
func (tl *Timeline) Events() []Event {
    return append([]Event(nil), tl.events...)
}

// Len returns the number of recorded events.
func (tl *Timeline) Len() int { return len(tl.events) }

// Diff turns two consecutive snapshots into ordered role-change events,
// stamped with the newer snapshot's time. Unchanged states produce nothing;
// the caller records per-node observation results separately.
func Diff(old, new topology.Snapshot) []Event {
    names := make([]string, 0, len(new.States))
    for name := range new.States {
        names = append(names, name)
    }
    sort.Strings(names)
    var out []Event
    for _, name := range names {
        ns := new.States[name]
        os, had := old.States[name]
        if had && os.Role == ns.Role && os.ConfigEpoch == ns.ConfigEpoch && os.LeaderEpoch == ns.LeaderEpoch {
            continue
        }
        out = append(out, Event{
            Kind:        EventRoleObserved,
            At:          new.At,
            Node:        name,
            Role:        ns.Role,
            ConfigEpoch: ns.ConfigEpoch,
            LeaderEpoch: ns.LeaderEpoch,
        })
    }
    return out
}
