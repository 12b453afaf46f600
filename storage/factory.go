package storage

import (
	"fmt"
	"log/slog"

	"github.com/ruteri/reputation-registry/interfaces"
)

// StoreFactory creates record stores from location URIs.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	return &StoreFactory{log: logger}
}

// StoreFor creates a record store from a location URI.
//
// Supported schemes:
//   - memory:// - In-process store, lost on restart
//   - sqlite:///path/to/registry.db - Durable SQLite store
func (sf *StoreFactory) StoreFor(location interfaces.StoreLocation) (interfaces.RecordStore, error) {
	switch location.Scheme {
	case "memory":
		return NewMemoryStore(sf.log), nil
	case "sqlite":
		store, err := OpenSQLiteStore(location.Path, sf.log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", location.Path, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidStoreURI, location.Scheme)
	}
}
