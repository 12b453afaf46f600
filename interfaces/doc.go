// Package interfaces defines the core types and contracts of the reputation
// registry, separating definitions from implementations.
//
// # Records
//
//   - RegistryConfig: singleton holding the authority and the number of scored wallets
//   - ScoreRecord: one per wallet, holding score, grade, metadata and update bookkeeping
//   - AgentRecord: one per delegated agent, with an active flag
//
// # Storage Interfaces
//
//   - RecordStore: maps logical (namespace, key) pairs to encoded records and
//     commits batches of writes atomically
//   - RecordKey.Slot: the deterministic, collision-free slot derivation any
//     backend may use for physical addressing
//
// # Events
//
//   - Event: ProgramInitialized, ScoreRecorded, AuthorityTransferred, AgentAdded, AgentRemoved
//   - EventSink: receives exactly one event per successful operation
//
// # Error Types
//
// Error kinds are sentinel errors matched with errors.Is, for example
// ErrUnauthorized, ErrScoreOutOfRange or ErrAlreadyInitialized.
package interfaces
