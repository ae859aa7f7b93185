package partition

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

type fakeInjector struct {
    mu       sync.Mutex
    applies  int
    heals    int
    failNext bool
}

func (f *fakeInjector) Apply(ctx context.Context, spec topology.PartitionSpec) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.failNext {
        f.failNext = false
        return fmt.Errorf("iptables: permission denied")
    }
    f.applies++
    return nil
}

func (f *fakeInjector) Heal(ctx context.Context, spec topology.PartitionSpec) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.failNext {
        f.failNext = false
        return fmt.Errorf("iptables: permission denied")
    }
    f.heals++
    return nil
}

func spec(name string, a, b string) topology.PartitionSpec {
    return topology.PartitionSpec{Name: name, Pairs: []topology.Pair{topology.NewPair(a, b)}}
}

func TestController_ApplyIdempotent(t *testing.T) {
    inj := &fakeInjector{}
    c := NewController(inj, nil)
    ctx := context.Background()

    s := spec("iso", "sent-1", "redis-1")
    if err := c.Apply(ctx, s); err != nil {
        t.Fatalf("apply: %v", err)
    }
    // applying an already-applied spec is a no-op, not an error
    if err := c.Apply(ctx, s); err != nil {
        t.Fatalf("second apply: %v", err)
    }
    if inj.applies != 1 {
        t.Fatalf("injector applies = %d, want 1", inj.applies)
    }
}

func TestController_HealNonAppliedIsNoop(t *testing.T) {
    inj := &fakeInjector{}
    c := NewController(inj, nil)
    if err := c.Heal(context.Background(), spec("ghost", "a", "b")); err != nil {
        t.Fatalf("heal of non-applied spec: %v", err)
    }
    if inj.heals != 0 {
        t.Fatalf("injector heals = %d, want 0", inj.heals)
    }
}

func TestController_RejectsOverlappingActive(t *testing.T) {
    c := NewController(&fakeInjector{}, nil)
    ctx := context.Background()
    if err := c.Apply(ctx, spec("a", "sent-1", "redis-1")); err != nil {
        t.Fatalf("apply a: %v", err)
    }
    err := c.Apply(ctx, spec("b", "redis-1", "sent-1"))
    if err == nil {
        t.Fatalf("expected overlap rejection")
    }
    var envErr *EnvironmentError
    if !errors.As(err, &envErr) {
        t.Fatalf("overlap error is %T, want *EnvironmentError", err)
    }
}

func TestController_ApplyErrorIsEnvironmentError(t *testing.T) {
    inj := &fakeInjector{failNext: true}
    c := NewController(inj, nil)
    err := c.Apply(context.Background(), spec("iso", "a", "b"))
    if err == nil {
        t.Fatalf("expected error")
    }
    var envErr *EnvironmentError
    if !errors.As(err, &envErr) {
        t.Fatalf("error is %T, want *EnvironmentError", err)
    }
    if len(c.Active()) != 0 {
        t.Fatalf("failed apply left spec tracked as active")
    }
}

func TestController_HealAll(t *testing.T) {
    inj := &fakeInjector{}
    c := NewController(inj, nil)
    ctx := context.Background()
    if err := c.Apply(ctx, spec("a", "sent-1", "redis-1")); err != nil {
        t.Fatalf("apply a: %v", err)
    }
    if err := c.Apply(ctx, spec("b", "sent-2", "redis-1")); err != nil {
        t.Fatalf("apply b: %v", err)
    }
    if err := c.HealAll(ctx); err != nil {
        t.Fatalf("heal all: %v", err)
    }
    if inj.heals != 2 {
        t.Fatalf("injector heals = %d, want 2", inj.heals)
    }
    if len(c.Active()) != 0 {
        t.Fatalf("active after heal-all = %v, want none", c.Active())
    }
    // idempotent: nothing left to heal
    if err := c.HealAll(ctx); err != nil {
        t.Fatalf("second heal all: %v", err)
    }
    if inj.heals != 2 {
        t.Fatalf("heal-all healed non-applied specs")
    }
}

func TestController_HealAllKeepsGoingPastFailures(t *testing.T) {
    inj := &fakeInjector{}
    c := NewController(inj, nil)
    ctx := context.Background()
    if err := c.Apply(ctx, spec("a", "sent-1", "redis-1")); err != nil {
        t.Fatalf("apply a: %v", err)
    }
    if err := c.Apply(ctx, spec("b", "sent-2", "redis-1")); err != nil {
        t.Fatalf("apply b: %v", err)
    }
    inj.failNext = true
    err := c.HealAll(ctx)
    if err == nil {
        t.Fatalf("expected joined error from failed heal")
    }
    // one heal failed, the other succeeded; the failed spec stays tracked
    if got := len(c.Active()); got != 1 {
        t.Fatalf("active after partial heal-all = %d, want 1", got)
    }
}
