// Package registry implements the permissioned reputation registry: access
// control and the state transitions of initialize, record_score,
// transfer_authority, add_agent and remove_agent.
//
// The registry stores three kinds of records in an interfaces.RecordStore:
//
//   - the singleton RegistryConfig at ("config")
//   - one ScoreRecord per wallet at ("score", wallet)
//   - one AgentRecord per delegated agent at ("agent", agent)
//
// # Access Control
//
// IsAuthorized grants score recording to the config authority and to any
// caller holding an active agent record. Authority transfer and agent
// management are restricted to the authority itself.
//
// # Execution Model
//
// Registry serializes mutating operations. Each operation validates its
// input, loads the records it needs, runs access control, commits all of its
// writes in one batch and then emits exactly one event to the configured
// interfaces.EventSink. A failed operation writes nothing and emits nothing.
//
// # Usage
//
//	store := storage.NewMemoryStore(logger)
//	eventLog := events.NewLog()
//	reg := registry.NewRegistry(store, eventLog, logger)
//
//	if _, err := reg.Initialize(ctx, authority); err != nil {
//	    return err
//	}
//	ev, err := reg.RecordScore(ctx, authority, interfaces.RecordScoreArgs{
//	    Wallet: wallet,
//	    Score:  875,
//	    Grade:  "A",
//	})
package registry
