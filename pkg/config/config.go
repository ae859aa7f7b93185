// Package config loads the harness descriptor: the cluster topology plus
// quorum and timing values mirrored from the live Sentinel deployment, and
// the scenarios to run. The descriptor is the single source of truth — the
// harness never parses Sentinel's own config file.
package config

import (
    "fmt"
    "os"
    "time"

    "github.com/goccy/go-yaml"

    "github.com/clusterlab/sentinel-harness/pkg/scenario"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

type NodeConfig struct {
    Name string `yaml:"name"`
    Addr string `yaml:"addr"`
    Kind string `yaml:"kind"`
}

type InjectorConfig struct {
    // Apply and Heal are command templates run once per severed pair, with
    // {a}, {b}, {a_addr}, {b_addr} expanded.
    Apply   string        `yaml:"apply"`
    Heal    string        `yaml:"heal"`
    Timeout time.Duration `yaml:"timeout"`
}

type ScenarioConfig struct {
    Name string `yaml:"name"`
    // Pairs lists the links this scenario severs, each a [from, to] pair
    // of node names.
    Pairs [][]string `yaml:"pairs"`
}

type Config struct {
    MasterName      string        `yaml:"master_name"`
    Quorum          int           `yaml:"quorum"`
    DownAfter       time.Duration `yaml:"down_after"`
    FailoverTimeout time.Duration `yaml:"failover_timeout"`

    PollInterval   time.Duration `yaml:"poll_interval"`
    ObserveTimeout time.Duration `yaml:"observe_timeout"`
    Slack          time.Duration `yaml:"slack"`
    HardTimeout    time.Duration `yaml:"hard_timeout"`

    Nodes     []NodeConfig     `yaml:"nodes"`
    Injector  InjectorConfig   `yaml:"injector"`
    Scenarios []ScenarioConfig `yaml:"scenarios"`
}

// Load reads and validates a descriptor file.
func Load(path string) (*Config, error) {
    bytes, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("failed to read descriptor: %w", err)
    }
    return Parse(bytes)
}

// Parse decodes and validates a descriptor.
func Parse(bytes []byte) (*Config, error) {
    var cfg Config
    if err := yaml.Unmarshal(bytes, &cfg); err != nil {
        return nil, fmt.Errorf("failed to parse descriptor: %w", err)
    }
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return &cfg, nil
}

// Validate checks the descriptor beyond what topology.Validate covers.
func (c *Config) Validate() error {
    t := c.Topology()
    if err := t.Validate(); err != nil {
        return err
    }
    if len(c.Scenarios) == 0 {
        return fmt.Errorf("config: no scenarios defined")
    }
    seen := make(map[string]struct{}, len(c.Scenarios))
    for _, sc := range c.Scenarios {
        if sc.Name == "" {
            return fmt.Errorf("config: scenario with empty name")
        }
        if _, dup := seen[sc.Name]; dup {
            return fmt.Errorf("config: duplicate scenario %q", sc.Name)
        }
        seen[sc.Name] = struct{}{}
        spec, err := specFor(sc)
        if err != nil {
            return err
        }
        if err := spec.Validate(t); err != nil {
            return fmt.Errorf("config: %w", err)
        }
    }
    return nil
}

// Topology builds the topology value from the descriptor.
func (c *Config) Topology() topology.Topology {
    t := topology.Topology{
        MasterName:      c.MasterName,
        Quorum:          c.Quorum,
        DownAfter:       c.DownAfter,
        FailoverTimeout: c.FailoverTimeout,
    }
    for _, n := range c.Nodes {
        t.Nodes = append(t.Nodes, topology.Node{Name: n.Name, Addr: n.Addr, Kind: topology.Kind(n.Kind)})
    }
    return t
}

// ScenarioList converts the descriptor's scenarios into runnable values.
func (c *Config) ScenarioList() ([]scenario.Scenario, error) {
    out := make([]scenario.Scenario, 0, len(c.Scenarios))
    for _, sc := range c.Scenarios {
        spec, err := specFor(sc)
        if err != nil {
            return nil, err
        }
        out = append(out, scenario.Scenario{Name: sc.Name, Partitions: []topology.PartitionSpec{spec}})
    }
    return out, nil
}

// RunnerConfig maps descriptor tunables onto the runner.
func (c *Config) RunnerConfig() scenario.Config {
    return scenario.Config{
        PollInterval:   c.PollInterval,
        ObserveTimeout: c.ObserveTimeout,
        Slack:          c.Slack,
        HardTimeout:    c.HardTimeout,
    }
}

func specFor(sc ScenarioConfig) (topology.PartitionSpec, error) {
    spec := topology.PartitionSpec{Name: sc.Name}
    for _, pair := range sc.Pairs {
        if len(pair) != 2 {
            return spec, fmt.Errorf("config: scenario %q: pair must have exactly two nodes, got %v", sc.Name, pair)
        }
        spec.Pairs = append(spec.Pairs, topology.NewPair(pair[0], pair[1]))
    }
    return spec, nil
}
