// Package httputil provides shared HTTP response/request utilities for
// handlers.
//
// Every handler file should use these helpers instead of writing raw
// http.ResponseWriter calls. This keeps JSON formatting and error envelopes
// consistent across all endpoints and guarantees that internal error detail
// never reaches a client.
package httputil
