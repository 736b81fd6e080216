package figma

import (
	"errors"
	"fmt"
)

// Client construction errors.
var (
	// ErrNoToken is returned when a client is created without an access token.
	ErrNoToken = errors.New("figma: access token is required (set FIGMA_TOKEN or use --token)")

	// ErrEmptyBatch is returned when FetchNodes is called with no identifiers.
	ErrEmptyBatch = errors.New("figma: node batch must not be empty")
)

// maxErrorBody bounds how much of an error response body is kept in a
// RemoteError. API error payloads are short; anything longer is noise.
const maxErrorBody = 512

// RemoteError is a fatal API failure: either a non-retryable status, or a
// retryable status whose retry budget was exhausted. The in-progress crawl
// aborts when one of these surfaces.
type RemoteError struct {
	// StatusCode is the HTTP status the server returned.
	StatusCode int

	// Body is the response body, truncated to maxErrorBody bytes.
	Body string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("figma: API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("figma: API returned status %d: %s", e.StatusCode, e.Body)
}

// newRemoteError builds a RemoteError with a truncated body.
func newRemoteError(status int, body []byte) *RemoteError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &RemoteError{StatusCode: status, Body: string(body)}
}

// retryable reports whether a status code indicates a transient condition
// worth backing off and retrying: rate limiting or any server-side failure.
func retryable(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}
