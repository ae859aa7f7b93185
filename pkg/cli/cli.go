package cli

import (
    "context"
    "fmt"
    "io"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/clusterlab/sentinel-harness/pkg/bootstrap"
    "github.com/clusterlab/sentinel-harness/pkg/config"
    "github.com/clusterlab/sentinel-harness/pkg/expect"
    tracing "github.com/clusterlab/sentinel-harness/pkg/observability/tracing"
    "github.com/clusterlab/sentinel-harness/pkg/report"
    "github.com/clusterlab/sentinel-harness/pkg/store"
)

// AddAll attaches harness subcommands (run/predict/results/status) to the
// provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewPredictCmd())
    root.AddCommand(NewResultsCmd())
    root.AddCommand(NewStatusCmd())
}

// NewRunCmd returns the "run" command: execute every scenario in the
// descriptor against the live cluster.
func NewRunCmd() *cobra.Command {
    var (
        descriptor, statusAddr, storePath string
        jsonOut, verbose, traceEnable     bool
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run failover verification scenarios against the live cluster",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()

            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            h, err := bootstrap.Build(bootstrap.Config{
                DescriptorPath: descriptor,
                StatusAddr:     statusAddr,
                StorePath:      storePath,
                Logger:         log.Default(),
            })
            if err != nil { return err }
            defer h.Close()
            if err := h.Start(ctx); err != nil { return err }

            results, err := h.RunAll(ctx)
            if err != nil { return err }
            if jsonOut {
                if err := report.JSON(os.Stdout, results); err != nil { return err }
            } else {
                report.Console(os.Stdout, results, verbose)
            }
            os.Exit(report.ExitCode(results))
            return nil
        },
    }
    cmd.Flags().StringVar(&descriptor, "config", "harness.yaml", "path to the cluster/scenario descriptor")
    cmd.Flags().StringVar(&statusAddr, "status-addr", "", "serve status/metrics/events on this address (host:port)")
    cmd.Flags().StringVar(&storePath, "store", "", "archive results into this SQLite file")
    cmd.Flags().BoolVar(&jsonOut, "json", false, "emit results as JSON instead of the console report")
    cmd.Flags().BoolVar(&verbose, "verbose", false, "include the full event trace per scenario")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

// NewPredictCmd returns the "predict" command: print the expected outcome
// of each scenario without touching the cluster.
func NewPredictCmd() *cobra.Command {
    var descriptor string
    var slack time.Duration
    cmd := &cobra.Command{
        Use:   "predict",
        Short: "Show the expected outcome of each scenario (no I/O)",
        RunE: func(cmd *cobra.Command, args []string) error {
            desc, err := config.Load(descriptor)
            if err != nil { return err }
            topo := desc.Topology()
            scenarios, err := desc.ScenarioList()
            if err != nil { return err }
            for _, sc := range scenarios {
                outcome, err := expect.Predict(topo, sc.Partitions, slack)
                if err != nil { return err }
                fmt.Printf("%-30s %s\n", sc.Name, outcome)
            }
            return nil
        },
    }
    cmd.Flags().StringVar(&descriptor, "config", "harness.yaml", "path to the cluster/scenario descriptor")
    cmd.Flags().DurationVar(&slack, "slack", 2*time.Second, "scheduling slack added to the failover bound")
    return cmd
}

// NewResultsCmd returns the "results" command: list archived runs.
func NewResultsCmd() *cobra.Command {
    var storePath string
    var limit int
    cmd := &cobra.Command{
        Use:   "results",
        Short: "List archived scenario runs",
        RunE: func(cmd *cobra.Command, args []string) error {
            st, err := store.Open(storePath)
            if err != nil { return err }
            defer st.Close()
            runs, err := st.Recent(limit)
            if err != nil { return err }
            for _, r := range runs {
                fmt.Printf("#%-5d %-30s %-12s %s (%s)\n",
                    r.ID, r.Scenario, r.Verdict, r.Started.Format(time.RFC3339), r.Finished.Sub(r.Started).Round(time.Millisecond))
            }
            return nil
        },
    }
    cmd.Flags().StringVar(&storePath, "store", "harness.db", "SQLite archive file")
    cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
    return cmd
}

// NewStatusCmd returns the "status" command: query a running harness's
// status endpoint.
func NewStatusCmd() *cobra.Command {
    var addr string
    cmd := &cobra.Command{
        Use:   "status",
        Short: "Query a running harness's status endpoint",
        RunE: func(cmd *cobra.Command, args []string) error {
            client := &http.Client{Timeout: 5 * time.Second}
            resp, err := client.Get("http://" + addr + "/status")
            if err != nil { return err }
            defer resp.Body.Close()
            if resp.StatusCode != http.StatusOK {
                return fmt.Errorf("status endpoint returned %s", resp.Status)
            }
            _, err = io.Copy(os.Stdout, resp.Body)
            fmt.Println()
            return err
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:18080", "harness status address (host:port)")
    return cmd
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
