package worker

import "context"

// Worker is one long-running process role, such as the HTTP server or the
// delivery consumer. Run blocks until ctx is cancelled or the worker hits a
// fatal error; returning nil or context.Canceled counts as a graceful stop.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}
