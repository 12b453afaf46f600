// Package storage provides record store backends for the reputation registry.
//
// A record store maps logical (namespace, key) pairs to encoded records.
// Backends address records by RecordKey.Slot, the keccak256 of the
// length-prefixed namespace followed by the key, so the core never picks
// physical addresses itself.
//
// # Store URI Format
//
//   - memory:// - in-process map, useful for tests and ephemeral deployments
//   - sqlite:///var/lib/registry/registry.db - durable SQLite database
//
// # Atomicity
//
// Commit applies a batch of writes all-or-nothing. CreateOnly writes fail the
// whole batch with interfaces.ErrSlotOccupied when the slot is already filled,
// which is what guards the singleton config and duplicate agents.
//
// # Usage
//
//	factory := storage.NewStoreFactory(logger)
//	loc, _ := interfaces.NewStoreLocation("sqlite:///var/lib/registry.db")
//	store, err := factory.StoreFor(loc)
package storage
