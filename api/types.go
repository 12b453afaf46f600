package api

import (
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
)

// API routes. Path parameters are hex identities.
const (
	InitializePath  = "/api/v1/initialize"
	ScorePath       = "/api/v1/scores/{wallet}"
	AuthorityPath   = "/api/v1/authority"
	AgentPath       = "/api/v1/agents/{agent}"
	ConfigPath      = "/api/v1/config"
	LeaderboardPath = "/api/v1/leaderboard"
	EventsPath      = "/api/v1/events"
	BatchScoresPath = "/api/v1/batch/scores"
	ComparePath     = "/api/v1/compare"
)

// MaxBodySize is the default limit on request body size.
const MaxBodySize = 64 * 1024

// RecordScoreRequest is the body of POST /api/v1/scores/{wallet}.
type RecordScoreRequest struct {
	Score    uint16 `json:"score"`
	Grade    string `json:"grade"`
	Metadata string `json:"metadata,omitempty"`
}

// TransferAuthorityRequest is the body of POST /api/v1/authority.
type TransferAuthorityRequest struct {
	NewAuthority interfaces.Identity `json:"new_authority"`
}

// EventResponse is returned by every mutating endpoint and carries the
// event of the operation.
type EventResponse struct {
	Type  string           `json:"type"`
	Event interfaces.Event `json:"event"`
}

// LeaderboardResponse is returned by GET /api/v1/leaderboard.
type LeaderboardResponse struct {
	Records []interfaces.ScoreRecord `json:"records"`
}

// BatchScoresRequest is the body of POST /api/v1/batch/scores. It holds
// between 1 and interfaces.MaxBatchSize hex wallets.
type BatchScoresRequest struct {
	Wallets []string `json:"wallets"`
}

// BatchScoreResult is the outcome for one requested wallet. Exactly one of
// Record and Error is set; Code classifies Error.
type BatchScoreResult struct {
	Wallet string                  `json:"wallet"`
	Record *interfaces.ScoreRecord `json:"record,omitempty"`
	Code   string                  `json:"code,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// BatchScoresResponse is returned by POST /api/v1/batch/scores, with results
// in request order.
type BatchScoresResponse struct {
	Results []BatchScoreResult `json:"results"`
	Count   int                `json:"count"`
}

// EventsResponse is returned by GET /api/v1/events.
type EventsResponse struct {
	Events  []events.Envelope `json:"events"`
	LastSeq uint64            `json:"last_seq"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
