package interfaces

import "fmt"

const (
	// MaxScore is the upper bound of a score: 1000 represents 100.0%.
	MaxScore uint16 = 1000

	// MaxGradeLength is the maximum grade length in bytes.
	MaxGradeLength = 3

	// MaxMetadataLength is the maximum metadata length in bytes.
	MaxMetadataLength = 256

	// MaxBatchSize is the largest number of wallets one batch lookup accepts.
	MaxBatchSize = 10
)

// RegistryConfig is the singleton root of authority.
type RegistryConfig struct {
	// Authority is the identity empowered to write scores and manage agents.
	Authority Identity `json:"authority"`

	// TotalScores counts the distinct wallets ever scored.
	TotalScores uint64 `json:"total_scores"`
}

// ScoreRecord holds the reputation of a single wallet.
type ScoreRecord struct {
	Wallet   Identity `json:"wallet"`
	Score    uint16   `json:"score"`
	Grade    string   `json:"grade"`
	Metadata string   `json:"metadata"`

	// LastUpdated is a unix timestamp in seconds.
	LastUpdated uint64 `json:"last_updated"`

	// UpdateCount starts at 1 on creation and grows by one per update.
	UpdateCount uint32 `json:"update_count"`
}

// IsNew reports whether the record has never been written. A record that
// does not exist in the store decodes to the zero value.
func (r *ScoreRecord) IsNew() bool {
	return r.Wallet.IsZero()
}

// AgentRecord delegates score recording to an agent identity.
type AgentRecord struct {
	// Authority is the config authority at the time the agent was added.
	Authority Identity `json:"authority"`
	Agent     Identity `json:"agent"`
	IsActive  bool     `json:"is_active"`

	// CreatedAt is a unix timestamp in seconds.
	CreatedAt uint64 `json:"created_at"`
}

// ScoreComparison puts two score records side by side.
type ScoreComparison struct {
	First  ScoreRecord `json:"first"`
	Second ScoreRecord `json:"second"`

	// Difference is First.Score minus Second.Score.
	Difference int32 `json:"difference"`

	// Leader is the wallet with the higher score, nil on a tie.
	Leader *Identity `json:"leader"`
}

// CompareScores builds the comparison of first against second.
func CompareScores(first, second ScoreRecord) *ScoreComparison {
	c := &ScoreComparison{
		First:      first,
		Second:     second,
		Difference: int32(first.Score) - int32(second.Score),
	}
	switch {
	case c.Difference > 0:
		c.Leader = &first.Wallet
	case c.Difference < 0:
		c.Leader = &second.Wallet
	}
	return c
}

// ValidateScoreInput checks the record_score arguments. Lengths are UTF-8
// byte counts, so a multibyte grade like "ÄÖ" is already 4 long.
func ValidateScoreInput(score uint16, grade, metadata string) error {
	if score > MaxScore {
		return fmt.Errorf("%w: got %d", ErrScoreOutOfRange, score)
	}
	if len(grade) > MaxGradeLength {
		return fmt.Errorf("%w: got %d bytes", ErrGradeTooLong, len(grade))
	}
	if len(metadata) > MaxMetadataLength {
		return fmt.Errorf("%w: got %d bytes", ErrMetadataTooLong, len(metadata))
	}
	return nil
}

// GradeForScore maps a 0-1000 score to a letter grade.
func GradeForScore(score uint16) string {
	switch {
	case score >= 900:
		return "S"
	case score >= 800:
		return "A"
	case score >= 650:
		return "B"
	case score >= 500:
		return "C"
	case score >= 350:
		return "D"
	default:
		return "F"
	}
}
