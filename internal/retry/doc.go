// Package retry waits for a freshly spawned engine to accept connections.
//
// It is the only retry in the program: a refused connection or a "starting up"
// response from the engine is retried with capped exponential backoff, every
// other error is returned on the first attempt.
//
//	executor := retry.NewExecutor(retry.NewStartupClassifier(), retry.NewExponentialBackoff(20))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
