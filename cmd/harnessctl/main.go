package main

import (
    "log"

    "github.com/spf13/cobra"

    harnesscli "github.com/clusterlab/sentinel-harness/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "harnessctl",
        Short:         "Redis Sentinel failover verification harness",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    // Attach all harness commands from pkg/cli for reuse in services
    harnesscli.AddAll(root)
    return root
}
