package interfaces

import "context"

// RecordScoreArgs are the record_score inputs besides the caller.
type RecordScoreArgs struct {
	Wallet   Identity
	Score    uint16
	Grade    string
	Metadata string
}

// ScoreRegistry is the operation surface of the registry. Every mutating
// method takes the already-authenticated caller identity.
type ScoreRegistry interface {
	// Initialize creates the registry config with caller as authority.
	Initialize(ctx context.Context, caller Identity) (*ProgramInitialized, error)

	// RecordScore creates or updates the score record of args.Wallet.
	RecordScore(ctx context.Context, caller Identity, args RecordScoreArgs) (*ScoreRecorded, error)

	// TransferAuthority replaces the registry authority.
	TransferAuthority(ctx context.Context, caller Identity, newAuthority Identity) (*AuthorityTransferred, error)

	// AddAgent delegates score recording to agent.
	AddAgent(ctx context.Context, caller Identity, agent Identity) (*AgentAdded, error)

	// RemoveAgent deactivates agent.
	RemoveAgent(ctx context.Context, caller Identity, agent Identity) (*AgentRemoved, error)

	// Config returns the registry config, or ErrNotInitialized.
	Config(ctx context.Context) (*RegistryConfig, error)

	// Score returns the score record of wallet, or ErrNotFound.
	Score(ctx context.Context, wallet Identity) (*ScoreRecord, error)

	// Agent returns the record of agent, or ErrNotFound.
	Agent(ctx context.Context, agent Identity) (*AgentRecord, error)

	// Scores looks up several wallets at once. The result is parallel to
	// wallets, with nil for wallets that have no record.
	Scores(ctx context.Context, wallets []Identity) ([]*ScoreRecord, error)

	// Compare returns the records of two wallets side by side. Both must
	// exist, otherwise ErrNotFound.
	Compare(ctx context.Context, first, second Identity) (*ScoreComparison, error)

	// Leaderboard returns up to limit score records, highest score first.
	Leaderboard(ctx context.Context, limit int) ([]ScoreRecord, error)
}
