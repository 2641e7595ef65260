// Package worker provides background task infrastructure for the client
// session: the metrics endpoint and the DNS cache refresher.
package worker

import "context"

// Worker is a long-running background task.
type Worker interface {
	// Run blocks until ctx is cancelled or an unrecoverable error occurs.
	Run(ctx context.Context) error
}
