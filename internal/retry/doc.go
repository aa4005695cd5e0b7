// Package retry implements the backoff discipline used around every call to the
// queue service.
//
// Errors opt into retries by implementing Transient() bool; everything else is
// returned after a single attempt:
//
//	policy := retry.NewPolicy(3, time.Second, logger)
//	err := policy.Execute(ctx, "receive", func(ctx context.Context) error {
//	    msgs, err = client.Receive(ctx, opts)
//	    return err
//	})
//	var exhausted *retry.ExhaustedError
//	if errors.As(err, &exhausted) {
//	    // all retryCount+1 attempts failed transiently
//	}
package retry
