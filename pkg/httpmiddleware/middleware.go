// Package httpmiddleware provides composable net/http middleware: panic
// recovery, CORS, rate limiting, request IDs, logging, and OpenTelemetry
// instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies the middlewares to h so that the first listed middleware is
// the outermost: Wrap(h, a, b) serves requests as a(b(h)).
func Wrap(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
