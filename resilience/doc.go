// Package resilience wraps calls to the metadata database with retry,
// circuit breaking, per-attempt timeouts and concurrency limits.
//
// Each pattern can be used on its own, or composed through an Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        RetryIf:     store.IsTransient,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
// Executors are usually built from configuration with PolicyConfig.Build.
//
// Errors returned by an operation are passed through unchanged. Failures
// introduced by the patterns themselves are reported with the sentinels in
// errors.go. An operation can stop retries early by returning Permanent(err).
package resilience
