// Package report renders scenario results for humans and CI.
package report

import (
    "encoding/json"
    "fmt"
    "io"

    "github.com/fatih/color"

    "github.com/clusterlab/sentinel-harness/pkg/verify"
)

var (
    green     = color.New(color.FgGreen).SprintFunc()
    red       = color.New(color.FgRed).SprintFunc()
    yellow    = color.New(color.FgYellow).SprintFunc()
    bold      = color.New(color.Bold).SprintFunc()
    checkMark = green("✓")
    crossMark = red("✗")
    skipMark  = yellow("○")
)

// Console writes a human-readable summary. verbose adds the full ordered
// event trace per scenario.
func Console(w io.Writer, results []verify.Result, verbose bool) {
    passed := 0
    for _, res := range results {
        mark := checkMark
        switch res.Verdict {
        case verify.VerdictFail:
            mark = crossMark
        case verify.VerdictInconclusive:
            mark = skipMark
        default:
            passed++
        }
        fmt.Fprintf(w, " %s %s [%s] expected %s\n", mark, res.Scenario, res.Verdict, res.Expected)
        for _, a := range res.Assertions {
            amark := checkMark
            if !a.Satisfied {
                amark = crossMark
            }
            fmt.Fprintf(w, "   %s %s: %s\n", amark, a.Name, a.Detail)
            for _, e := range a.Events {
                fmt.Fprintf(w, "       offending: %s\n", e)
            }
        }
        if verbose {
            for _, e := range res.Events {
                fmt.Fprintf(w, "     %s\n", e)
            }
        }
    }
    fmt.Fprintln(w)
    if passed == len(results) {
        fmt.Fprintf(w, "%s %d/%d scenarios passed %s\n", bold("PASSED"), passed, len(results), checkMark)
    } else {
        fmt.Fprintf(w, "%s %d/%d scenarios passed\n", bold("FAILED"), passed, len(results))
    }
}

// JSON writes the results as a JSON array for machine consumption.
func JSON(w io.Writer, results []verify.Result) error {
    enc := json.NewEncoder(w)
    enc.SetIndent("", "  ")
    return enc.Encode(results)
}

// ExitCode maps results onto a CI exit status: 1 for any failure, 2 when
// the worst verdict is inconclusive, 0 otherwise.
func ExitCode(results []verify.Result) int {
    code := 0
    for _, res := range results {
        switch res.Verdict {
        case verify.VerdictFail:
            return 1
        case verify.VerdictInconclusive:
            code = 2
        }
    }
    return code
}
