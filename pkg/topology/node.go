package topology

import "time"

// Kind is the declared role of a node in the cluster descriptor. It states
// what the node is supposed to be; the observed role may differ during and
// after a failover.
type Kind string

const (
    KindPrimary  Kind = "primary"
    KindReplica  Kind = "replica"
    KindSentinel Kind = "sentinel"
)

// Role is a node's role as actually observed over the wire.
type Role string

const (
    RolePrimary  Role = "primary"
    RoleReplica  Role = "replica"
    RoleSentinel Role = "sentinel"
    // RoleUnknown marks a state that is stale or was never observed.
    RoleUnknown Role = "unknown"
)

// Node identifies one member of the cluster under test.
type Node struct {
    Name string
    Addr string
    Kind Kind
}

// ObservedState is a versioned, point-in-time view of one node. Role and
// epochs are authoritative only while fresh; see FreshRole.
type ObservedState struct {
    Role        Role
    ConfigEpoch uint64
    LeaderEpoch uint64
    LinkUp      bool
    LastSeen    time.Time
}

// FreshRole returns the observed role, demoted to RoleUnknown once the
// observation is older than the staleness threshold.
func (s ObservedState) FreshRole(now time.Time, staleAfter time.Duration) Role {
    if s.LastSeen.IsZero() || now.Sub(s.LastSeen) > staleAfter {
        return RoleUnknown
    }
    return s.Role
}
