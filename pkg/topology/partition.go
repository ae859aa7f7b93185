package topology

import (
    "fmt"
    "strings"
)

// Pair is an unordered pair of node names whose bidirectional link a
// partition severs. NewPair canonicalizes the order so that {a,b} == {b,a}.
type Pair struct {
    A, B string
}

// NewPair returns the canonical form of the pair.
func NewPair(a, b string) Pair {
    if b < a {
        a, b = b, a
    }
    return Pair{A: a, B: b}
}

func (p Pair) String() string { return p.A + "<->" + p.B }

// PartitionSpec names a set of links to sever as one fault. A spec is
// applied (links dropped) or healed (links restored) atomically from the
// harness's point of view.
type PartitionSpec struct {
    Name  string
    Pairs []Pair
}

// Validate rejects empty and self-referential specs and pairs that name
// nodes absent from the topology.
func (ps PartitionSpec) Validate(t Topology) error {
    if len(ps.Pairs) == 0 {
        return fmt.Errorf("partition %q: no pairs", ps.Name)
    }
    seen := make(map[Pair]struct{}, len(ps.Pairs))
    for _, p := range ps.Pairs {
        if p.A == p.B {
            return fmt.Errorf("partition %q: self pair %q", ps.Name, p.A)
        }
        c := NewPair(p.A, p.B)
        if _, dup := seen[c]; dup {
            return fmt.Errorf("partition %q: duplicate pair %s", ps.Name, c)
        }
        seen[c] = struct{}{}
        for _, name := range []string{p.A, p.B} {
            if _, ok := t.Node(name); !ok {
                return fmt.Errorf("partition %q: unknown node %q", ps.Name, name)
            }
        }
    }
    return nil
}

// Severs reports whether the spec drops the link between a and b.
func (ps PartitionSpec) Severs(a, b string) bool {
    want := NewPair(a, b)
    for _, p := range ps.Pairs {
        if NewPair(p.A, p.B) == want {
            return true
        }
    }
    return false
}

// Overlaps reports whether two specs share a pair. Concurrently active
// specs must not overlap: healing one would silently restore a link the
// other still claims to hold down.
func (ps PartitionSpec) Overlaps(other PartitionSpec) bool {
    set := make(map[Pair]struct{}, len(ps.Pairs))
    for _, p := range ps.Pairs {
        set[NewPair(p.A, p.B)] = struct{}{}
    }
    for _, p := range other.Pairs {
        if _, ok := set[NewPair(p.A, p.B)]; ok {
            return true
        }
    }
    return false
}

func (ps PartitionSpec) String() string {
    parts := make([]string, 0, len(ps.Pairs))
    for _, p := range ps.Pairs {
        parts = append(parts, p.String())
    }
    return fmt.Sprintf("%s{%s}", ps.Name, strings.Join(parts, ","))
}
