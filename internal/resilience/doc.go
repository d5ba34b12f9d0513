// Package resilience groups the fault tolerance building blocks used in front
// of the data platform.
//
// The package supports:
//   - A consecutive-failure circuit breaker (circuitbreaker.Policy) gating
//     every backend query and RPC
//   - gobreaker-backed breakers for storage uploads and realtime dials
//   - Retry logic with exponential backoff, jitter and a breaker gate
//
// Usage Example:
//
//	policy := circuitbreaker.NewPolicy(circuitbreaker.DefaultPolicyConfig())
//
//	cfg := retry.DefaultConfig()
//	cfg.Gate = policy.Check
//	err := retry.WithBackoff(ctx, cfg, func(attempt int) error {
//	    err := callBackend(ctx)
//	    if err == nil || apierror.CountsAsFailure(err) {
//	        policy.RecordResult(err == nil)
//	    }
//	    return err
//	})
package resilience
