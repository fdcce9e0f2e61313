package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// connectTimeout bounds opening a remote backend at startup.
	connectTimeout = 15 * time.Second

	// sweepInterval is how often idle undo histories and rate-limit buckets
	// are dropped.
	sweepInterval = 5 * time.Minute
)
