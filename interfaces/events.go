package interfaces

import "context"

// Event type names, as they appear in event envelopes.
const (
	ProgramInitializedType   = "ProgramInitialized"
	ScoreRecordedType        = "ScoreRecorded"
	AuthorityTransferredType = "AuthorityTransferred"
	AgentAddedType           = "AgentAdded"
	AgentRemovedType         = "AgentRemoved"
)

// Event is a structured notification describing one successful operation.
type Event interface {
	EventType() string
}

// ProgramInitialized is emitted by initialize.
type ProgramInitialized struct {
	Authority Identity `json:"authority"`
	Timestamp uint64   `json:"timestamp"`
}

// ScoreRecorded is emitted by record_score. PreviousScore is nil for the
// first score of a wallet.
type ScoreRecorded struct {
	Wallet        Identity `json:"wallet"`
	Score         uint16   `json:"score"`
	Grade         string   `json:"grade"`
	PreviousScore *uint16  `json:"previous_score"`
	Timestamp     uint64   `json:"timestamp"`
	UpdateCount   uint32   `json:"update_count"`
}

// AuthorityTransferred is emitted by transfer_authority.
type AuthorityTransferred struct {
	OldAuthority Identity `json:"old_authority"`
	NewAuthority Identity `json:"new_authority"`
	Timestamp    uint64   `json:"timestamp"`
}

// AgentAdded is emitted by add_agent.
type AgentAdded struct {
	Agent     Identity `json:"agent"`
	AddedBy   Identity `json:"added_by"`
	Timestamp uint64   `json:"timestamp"`
}

// AgentRemoved is emitted by remove_agent.
type AgentRemoved struct {
	Agent     Identity `json:"agent"`
	RemovedBy Identity `json:"removed_by"`
	Timestamp uint64   `json:"timestamp"`
}

func (ProgramInitialized) EventType() string   { return ProgramInitializedType }
func (ScoreRecorded) EventType() string        { return ScoreRecordedType }
func (AuthorityTransferred) EventType() string { return AuthorityTransferredType }
func (AgentAdded) EventType() string           { return AgentAddedType }
func (AgentRemoved) EventType() string         { return AgentRemovedType }

// EventSink receives the event of every successful operation, in commit order.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}
