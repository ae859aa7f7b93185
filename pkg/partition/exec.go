package partition

import (
    "context"
    "fmt"
    "strings"
    "time"

    gocmd "github.com/go-cmd/cmd"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// ExecInjector shells out to environment-provided commands to drop and
// restore links, one invocation per pair. Command templates expand the
// placeholders {a}, {b}, {a_addr}, {b_addr}, e.g.
//
//    docker network disconnect clusternet {b}
//    iptables -A INPUT -s {b_addr} -j DROP
//
// Non-zero exit or a timeout is reported as a plain error; the Controller
// wraps it into an EnvironmentError.
type ExecInjector struct {
    topo      topology.Topology
    applyTmpl string
    healTmpl  string
    timeout   time.Duration
}

// NewExecInjector builds an injector over the given command templates.
func NewExecInjector(t topology.Topology, applyTmpl, healTmpl string, timeout time.Duration) *ExecInjector {
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    return &ExecInjector{topo: t, applyTmpl: applyTmpl, healTmpl: healTmpl, timeout: timeout}
}

func (e *ExecInjector) Apply(ctx context.Context, spec topology.PartitionSpec) error {
    return e.runAll(ctx, e.applyTmpl, spec)
}

func (e *ExecInjector) Heal(ctx context.Context, spec topology.PartitionSpec) error {
    return e.runAll(ctx, e.healTmpl, spec)
}

func (e *ExecInjector) runAll(ctx context.Context, tmpl string, spec topology.PartitionSpec) error {
    if tmpl == "" {
        return fmt.Errorf("no injector command configured")
    }
    for _, p := range spec.Pairs {
        line, err := e.expand(tmpl, p)
        if err != nil {
            return err
        }
        if err := e.run(ctx, line); err != nil {
            return fmt.Errorf("pair %s: %w", p, err)
        }
    }
    return nil
}

func (e *ExecInjector) expand(tmpl string, p topology.Pair) (string, error) {
    a, ok := e.topo.Node(p.A)
    if !ok {
        return "", fmt.Errorf("unknown node %q", p.A)
    }
    b, ok := e.topo.Node(p.B)
    if !ok {
        return "", fmt.Errorf("unknown node %q", p.B)
    }
    r := strings.NewReplacer(
        "{a}", a.Name, "{b}", b.Name,
        "{a_addr}", a.Addr, "{b_addr}", b.Addr,
    )
    return r.Replace(tmpl), nil
}

func (e *ExecInjector) run(ctx context.Context, line string) error {
    fields := strings.Fields(line)
    if len(fields) == 0 {
        return fmt.Errorf("empty injector command")
    }
    c := gocmd.NewCmd(fields[0], fields[1:]...)
    select {
    case st := <-c.Start():
        if st.Error != nil {
            return st.Error
        }
        if st.Exit != 0 {
            return fmt.Errorf("%q exited %d: %s", line, st.Exit, strings.Join(st.Stderr, " "))
        }
        return nil
    case <-ctx.Done():
        _ = c.Stop()
        return ctx.Err()
    case <-time.After(e.timeout):
        _ = c.Stop()
        return fmt.Errorf("%q timed out after %s", line, e.timeout)
    }
}

var _ Injector = (*ExecInjector)(nil)
