package discovery

import "fmt"

// DiscoveryError reports a failure to acquire or parse a company's
// disclosure page. Per-document download failures are not discovery
// errors; they are absorbed into the run's completion count.
type DiscoveryError struct {
	Symbol string
	Op     string // "fetch" or "parse"
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s failed for %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("discovery %s failed for %s", e.Op, e.Symbol)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
