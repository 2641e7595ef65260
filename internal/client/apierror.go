package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	catalog "github.com/eugener/arcscout/internal"
)

// errCircuitOpen is the cause recorded when a read skips the network because
// the endpoint breaker is open.
var errCircuitOpen = errors.New("circuit open")

// APIError is a non-success HTTP response from the API.
// It satisfies the httpStatusError interface used for breaker classification.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including path, status, and body.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

// HTTPStatus returns the HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// parseAPIError reads up to 4KB from the response body and returns an APIError.
func parseAPIError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
}

// NetworkError is returned by a read that failed with nothing cached for its
// signature. It matches catalog.ErrTransport and unwraps to the cause.
type NetworkError struct {
	Signature catalog.Signature
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("client: GET %s: %v", e.Signature, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is catalog.ErrTransport.
func (e *NetworkError) Is(target error) bool { return target == catalog.ErrTransport }

// ComputationError is returned by write-style calls. These are never masked
// by cached data.
type ComputationError struct {
	Path string
	Err  error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("client: POST %s: %v", e.Path, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// Is reports whether target is catalog.ErrComputation.
func (e *ComputationError) Is(target error) bool { return target == catalog.ErrComputation }
