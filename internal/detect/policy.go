package detect

import "fmt"

// FailurePolicy controls how a failed detector invocation affects the
// request that dispatched it.
type FailurePolicy string

const (
	// FailurePolicyIsolate records the failure on the result and keeps the
	// other detectors' output. The default.
	FailurePolicyIsolate FailurePolicy = "isolate"

	// FailurePolicyAbort fails the whole request on the first failed
	// detector in registration order.
	FailurePolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy validates a policy string, defaulting empty input to
// isolate.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "":
		return FailurePolicyIsolate, nil
	case FailurePolicyIsolate, FailurePolicyAbort:
		return FailurePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, FailurePolicyIsolate, FailurePolicyAbort)
	}
}
