package instance

import (
	"os"

	"github.com/peakrent/peakrent-backend/pkg/env"
)

// GetID returns the worker instance identifier used as lock owner and log field.
// It falls back to the hostname, then to "worker-0".
func GetID() string {
	if id := env.First("", "PEAKRENT_WORKER_ID", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
