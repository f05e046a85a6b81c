// Package retry runs an operation again after transient failures.
//
// The store uses it to survive a database that is still starting up:
//
//	err := retry.Do(func() error {
//		return sqlDB.PingContext(ctx)
//	}, &retry.Config{
//		MaxAttempts: cfg.ConnectAttempts,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.Always,
//		Context:     ctx,
//		Op:          "store.ping",
//		Logger:      log,
//	})
//
// DefaultRetryIf retries typed errors whose ErrorType is transient
// (network, rate_limit, server_error, timeout, database) and never retries
// context cancellation. Actor invocations are deliberately not retried.
package retry
