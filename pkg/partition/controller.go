// Package partition applies and heals targeted network-connectivity faults
// between named nodes. The actual mechanism (firewall rule, container
// network disconnect, proxy drop) lives behind the Injector capability; the
// Controller adds idempotence and teardown bookkeeping on top.
package partition

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"

    "github.com/clusterlab/sentinel-harness/pkg/internal/logutil"
    obsmetrics "github.com/clusterlab/sentinel-harness/pkg/observability/metrics"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// Injector severs and restores connectivity for one spec. Implementations
// mutate real network state and may fail when the environment lacks the
// capability; such failures must be returned, not swallowed.
type Injector interface {
    Apply(ctx context.Context, spec topology.PartitionSpec) error
    Heal(ctx context.Context, spec topology.PartitionSpec) error
}

// Controller tracks currently-applied specs so that faults are reconciled
// on scenario teardown even on error paths. All mutations are mutually
// exclusive; the applied set is the only shared mutable state in a run.
type Controller struct {
    inj    Injector
    logger *log.Logger

    mu      sync.Mutex
    applied map[string]topology.PartitionSpec
}

// NewController wraps an injector. logger may be nil.
func NewController(inj Injector, logger *log.Logger) *Controller {
    return &Controller{inj: inj, logger: logger, applied: make(map[string]topology.PartitionSpec)}
}

// Apply severs the spec's links. Applying an already-applied spec is a
// no-op. A spec overlapping a different active spec is rejected: healing
// either one would otherwise silently restore links the other holds down.
func (c *Controller) Apply(ctx context.Context, spec topology.PartitionSpec) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if _, ok := c.applied[spec.Name]; ok {
        return nil
    }
    for _, active := range c.applied {
        if spec.Overlaps(active) {
            return &EnvironmentError{Op: "apply", Spec: spec.Name,
                Err: fmt.Errorf("overlaps active partition %q", active.Name)}
        }
    }
    if err := c.inj.Apply(ctx, spec); err != nil {
        return &EnvironmentError{Op: "apply", Spec: spec.Name, Err: err}
    }
    c.applied[spec.Name] = spec
    obsmetrics.PartitionsApplied.Inc()
    obsmetrics.ActivePartitions.Set(float64(len(c.applied)))
    logutil.Infof(c.logger, "partition applied: %s", spec)
    return nil
}

// Heal restores the spec's links. Healing a non-applied spec is a no-op.
func (c *Controller) Heal(ctx context.Context, spec topology.PartitionSpec) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.healLocked(ctx, spec.Name)
}

func (c *Controller) healLocked(ctx context.Context, name string) error {
    spec, ok := c.applied[name]
    if !ok {
        return nil
    }
    if err := c.inj.Heal(ctx, spec); err != nil {
        return &EnvironmentError{Op: "heal", Spec: spec.Name, Err: err}
    }
    delete(c.applied, name)
    obsmetrics.PartitionsHealed.Inc()
    obsmetrics.ActivePartitions.Set(float64(len(c.applied)))
    logutil.Infof(c.logger, "partition healed: %s", spec)
    return nil
}

// HealAll restores every applied spec. It keeps going past individual
// failures and returns them joined; callers run it unconditionally during
// teardown so the cluster is never left partitioned.
func (c *Controller) HealAll(ctx context.Context) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    var errs []error
    for name := range c.applied {
        if err := c.healLocked(ctx, name); err != nil {
            logutil.Errorf(c.logger, "heal-all: %v", err)
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}

// Active returns the names of currently-applied specs.
func (c *Controller) Active() []string {
    c.mu.Lock()
    defer c.mu.Unlock()
    out := make([]string, 0, len(c.applied))
    for name := range c.applied {
        out = append(out, name)
    }
    return out
}
