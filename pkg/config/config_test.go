package config

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

const descriptor = `
master_name: mymaster
quorum: 2
down_after: 5s
failover_timeout: 60s

poll_interval: 500ms

nodes:
  - {name: redis-1, addr: 10.0.0.1:6379, kind: primary}
  - {name: redis-2, addr: 10.0.0.2:6379, kind: replica}
  - {name: sent-1, addr: 10.0.0.11:26379, kind: sentinel}
  - {name: sent-2, addr: 10.0.0.12:26379, kind: sentinel}
  - {name: sent-3, addr: 10.0.0.13:26379, kind: sentinel}

injector:
  apply: "iptables -A INPUT -s {b_addr} -j DROP"
  heal: "iptables -D INPUT -s {b_addr} -j DROP"
  timeout: 10s

scenarios:
  - name: isolate-primary
    pairs:
      - [sent-1, redis-1]
      - [sent-2, redis-1]
      - [sent-3, redis-1]
  - name: isolate-one
    pairs:
      - [sent-1, redis-1]
`

func TestParse(t *testing.T) {
    cfg, err := Parse([]byte(descriptor))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if cfg.DownAfter != 5*time.Second || cfg.FailoverTimeout != 60*time.Second {
        t.Fatalf("timings = %s/%s", cfg.DownAfter, cfg.FailoverTimeout)
    }

    topo := cfg.Topology()
    if err := topo.Validate(); err != nil {
        t.Fatalf("topology: %v", err)
    }
    if p, ok := topo.Primary(); !ok || p.Name != "redis-1" {
        t.Fatalf("primary = %v", p)
    }
    if got := len(topo.Sentinels()); got != 3 {
        t.Fatalf("sentinels = %d, want 3", got)
    }

    scenarios, err := cfg.ScenarioList()
    if err != nil {
        t.Fatalf("scenario list: %v", err)
    }
    if len(scenarios) != 2 || scenarios[0].Name != "isolate-primary" {
        t.Fatalf("scenarios = %+v", scenarios)
    }
    spec := scenarios[0].Partitions[0]
    if len(spec.Pairs) != 3 || !spec.Severs("redis-1", "sent-2") {
        t.Fatalf("spec = %+v", spec)
    }

    rc := cfg.RunnerConfig()
    if rc.PollInterval != 500*time.Millisecond {
        t.Fatalf("poll interval = %s", rc.PollInterval)
    }
}

func TestLoad(t *testing.T) {
    path := filepath.Join(t.TempDir(), "harness.yaml")
    if err := os.WriteFile(path, []byte(descriptor), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    if _, err := Load(path); err != nil {
        t.Fatalf("load: %v", err)
    }
    if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
        t.Fatalf("expected error for missing file")
    }
}

func TestParse_Rejects(t *testing.T) {
    cases := []struct {
        name   string
        mangle func(string) string
        want   string
    }{
        {"no scenarios", func(s string) string {
            return s[:strings.Index(s, "scenarios:")]
        }, "no scenarios"},
        {"duplicate scenario", func(s string) string {
            return s + "  - name: isolate-one\n    pairs:\n      - [sent-2, redis-1]\n"
        }, "duplicate scenario"},
        {"unknown node in pair", func(s string) string {
            return strings.ReplaceAll(s, "[sent-1, redis-1]", "[sent-9, redis-1]")
        }, "unknown node"},
        {"quorum too high", func(s string) string {
            return strings.Replace(s, "quorum: 2", "quorum: 4", 1)
        }, "quorum"},
        {"bad pair arity", func(s string) string {
            return strings.Replace(s, "- [sent-1, redis-1]\n", "- [sent-1]\n", 1)
        }, "exactly two nodes"},
    }
    for _, tc := range cases {
        _, err := Parse([]byte(tc.mangle(descriptor)))
        if err == nil {
            t.Fatalf("%s: expected error", tc.name)
        }
        if !strings.Contains(err.Error(), tc.want) {
            t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
        }
    }
}
