// Package httpclient is the outbound HTTP stack shared by the provider and
// agent clients.
//
// Every Client combines:
//   - resty for request building, with sonic as the JSON codec
//   - a go-retryablehttp transport that retries idempotent requests
//   - an x/time/rate limiter
//   - a resilience.Breaker that opens after repeated server-side failures
//
// Client errors (4xx other than 429) do not count against the breaker.
// Request.Scope gives each remote instance its own breaker, so one failing
// instance never blocks the others. Request.Unguarded skips the breaker for
// cleanup calls such as stopping an instance.
//
// Example Usage:
//
//	client := httpclient.New(httpclient.Config{
//		Name:    "scrapybara",
//		BaseURL: "https://api.scrapybara.com/v1",
//		Headers: map[string]string{"x-api-key": key},
//	}, logger, metrics)
//	var out startResponse
//	_, err := client.Do(ctx, httpclient.Request{
//		Op: "start_instance", Method: http.MethodPost, Path: "/start",
//		Body: body, Result: &out,
//	})
package httpclient
