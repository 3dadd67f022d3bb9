package backend

import (
	"context"

	"ahorro/internal/docstore"
	"ahorro/internal/events"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the document store and event broker the services run on.
type BackendResult struct {
	Store  docstore.Store
	Broker events.Broker
	// Ping reports whether the store is reachable; used by readiness checks.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Broker; an empty URL keeps events in process
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	BrokerBuffer int
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
