// Package bootstrap assembles a runnable harness from the descriptor with
// sensible defaults. Applications and the CLI provide a Config and call
// Build/Run; tests inject fakes through the capability fields.
package bootstrap

import (
    "context"
    "encoding/json"
    "log"
    "sync"
    "time"

    "github.com/clusterlab/sentinel-harness/pkg/config"
    "github.com/clusterlab/sentinel-harness/pkg/httpapi"
    "github.com/clusterlab/sentinel-harness/pkg/internal/logutil"
    "github.com/clusterlab/sentinel-harness/pkg/observer"
    "github.com/clusterlab/sentinel-harness/pkg/partition"
    "github.com/clusterlab/sentinel-harness/pkg/scenario"
    "github.com/clusterlab/sentinel-harness/pkg/store"
    "github.com/clusterlab/sentinel-harness/pkg/stream"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
    "github.com/clusterlab/sentinel-harness/pkg/verify"
)

// Config defines high-level inputs to assemble a harness.
type Config struct {
    // DescriptorPath is the YAML descriptor mirroring the live deployment.
    DescriptorPath string

    // StatusAddr, when set, serves /status, /healthz, /metrics and the
    // /events websocket stream on that address.
    StatusAddr string

    // StorePath, when set, archives results in a SQLite file.
    StorePath string

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger

    // Client overrides the Redis/Sentinel role client (tests).
    Client observer.RoleClient

    // Injector overrides the exec-based fault injector (tests).
    Injector partition.Injector
}

// Harness bundles the assembled components for one descriptor.
type Harness struct {
    Descriptor *config.Config
    Topology   topology.Topology
    Runner     *scenario.Runner
    Store      *store.Store
    Hub        *stream.Hub

    api    *httpapi.Server
    client *observer.RadixClient
    logger *log.Logger

    mu      sync.Mutex
    results []verify.Result
}

// Build assembles a Harness from Config without starting anything.
func Build(cfg Config) (*Harness, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }

    desc, err := config.Load(cfg.DescriptorPath)
    if err != nil {
        return nil, err
    }
    topo := desc.Topology()

    h := &Harness{Descriptor: desc, Topology: topo, logger: cfg.Logger}

    client := cfg.Client
    if client == nil {
        rc := observer.NewRadixClient(desc.MasterName)
        h.client = rc
        client = rc
    }
    obs := observer.New(client, cfg.Logger)

    inj := cfg.Injector
    if inj == nil {
        inj = partition.NewExecInjector(topo, desc.Injector.Apply, desc.Injector.Heal, desc.Injector.Timeout)
    }
    ctl := partition.NewController(inj, cfg.Logger)

    runner, err := scenario.NewRunner(topo, obs, ctl, desc.RunnerConfig(), cfg.Logger)
    if err != nil {
        return nil, err
    }
    h.Runner = runner

    if cfg.StorePath != "" {
        st, err := store.Open(cfg.StorePath)
        if err != nil {
            return nil, err
        }
        h.Store = st
    }
    if cfg.StatusAddr != "" {
        h.Hub = stream.NewHub(cfg.Logger)
        h.api = httpapi.NewServer(cfg.StatusAddr, cfg.Logger)
    }
    return h, nil
}

// Start launches the optional status server and event stream pump.
func (h *Harness) Start(ctx context.Context) error {
    if h.api == nil {
        return nil
    }
    go h.Hub.Run(ctx, h.Runner.Subscribe(ctx))
    if err := h.api.Start(ctx, h.statusJSON, h.Hub); err != nil {
        return err
    }
    logutil.Infof(h.logger, "status endpoint listening at %s (status/metrics/healthz/events)", h.api.Addr())
    return nil
}

// RunAll executes every scenario in descriptor order, archiving results
// when a store is configured. It always returns one result per scenario.
func (h *Harness) RunAll(ctx context.Context) ([]verify.Result, error) {
    scenarios, err := h.Descriptor.ScenarioList()
    if err != nil {
        return nil, err
    }
    out := make([]verify.Result, 0, len(scenarios))
    for _, sc := range scenarios {
        res := h.Runner.Run(ctx, sc)
        h.mu.Lock()
        h.results = append(h.results, res)
        h.mu.Unlock()
        if h.Store != nil {
            if _, err := h.Store.Save(res); err != nil {
                logutil.Warnf(h.logger, "archive %s: %v", res.Scenario, err)
            }
        }
        out = append(out, res)
        if ctx.Err() != nil {
            break
        }
    }
    return out, nil
}

// Close releases connections and the archive.
func (h *Harness) Close() error {
    if h.client != nil {
        _ = h.client.Close()
    }
    if h.Store != nil {
        _ = h.Store.Close()
    }
    return nil
}

type statusView struct {
    Phase    scenario.Phase           `json:"phase"`
    Scenario string                   `json:"scenario,omitempty"`
    Nodes    map[string]topology.Role `json:"nodes,omitempty"`
    Results  []resultSummary          `json:"results"`
}

type resultSummary struct {
    Scenario string         `json:"scenario"`
    Verdict  verify.Verdict `json:"verdict"`
}

func (h *Harness) statusJSON(ctx context.Context) ([]byte, error) {
    phase, current := h.Runner.Phase()
    view := statusView{Phase: phase, Scenario: current}
    if snap := h.Runner.LastSnapshot(); len(snap.States) > 0 {
        // Roles older than the staleness window report as unknown rather
        // than the last value seen.
        now := time.Now()
        view.Nodes = make(map[string]topology.Role, len(snap.States))
        for name, st := range snap.States {
            view.Nodes[name] = st.FreshRole(now, h.Runner.StaleAfter())
        }
    }
    h.mu.Lock()
    for _, res := range h.results {
        view.Results = append(view.Results, resultSummary{Scenario: res.Scenario, Verdict: res.Verdict})
    }
    h.mu.Unlock()
    return json.Marshal(view)
}
