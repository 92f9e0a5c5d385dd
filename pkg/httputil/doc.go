// Package httputil provides the HTTP plumbing used to fetch remote SVG
// documents.
//
// # Retry
//
// [Backoff.Retry] runs an operation with a doubling delay. Only errors
// wrapped with [Retryable] are retried; anything else is returned at once:
//
//	b := httputil.Backoff{Attempts: 3, Delay: time.Second}
//	err := b.Retry(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// # Client
//
// [Client.Get] wraps an [http.Client] with that policy. Network failures,
// 429 and 5xx responses are retried; 404 maps to a NOT_FOUND coded error and
// other 4xx responses fail immediately. Every request is reported to the
// HTTP hooks of the observability package.
package httputil
