package partition

import "fmt"

// EnvironmentError marks a fault-injection failure caused by the execution
// environment (missing privilege, unknown node, dead injection mechanism)
// rather than by the cluster under test. Scenarios treat it as
// inconclusive, never as a negative test result.
type EnvironmentError struct {
    Op   string
    Spec string
    Err  error
}

func (e *EnvironmentError) Error() string {
    return fmt.Sprintf("partition: %s %s: %v", e.Op, e.Spec, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }
