// Package figma implements the HTTP client for the Figma REST API.
//
// # Responsibilities
//
//   - Batched node fetches: GET /v1/files/{key}/nodes?ids=...&depth=1
//   - File metadata fetches: GET /v1/files/{key}?depth=1
//   - Authentication via the X-Figma-Token header
//   - Client-side request rate limiting
//   - Retry with exponential backoff and jitter on rate limiting (429)
//     and server-side failures (5xx)
//
// Design decision: We implement the API calls directly on net/http rather
// than using a generated SDK because:
//  1. The feeder touches exactly two endpoints
//  2. The retry policy must be under our control (deterministic growth,
//     bounded jitter, fixed attempt cap)
//  3. The node documents are open-ended JSON that we keep as maps anyway
//
// # Errors
//
// A non-retryable status, or a retryable one that exhausts all attempts,
// surfaces as *RemoteError carrying the status code and a truncated
// response body. An identifier the API cannot resolve is not an error;
// its entry is simply absent from the returned map.
package figma
