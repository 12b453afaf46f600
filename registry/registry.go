package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/reputation-registry/interfaces"
)

// Registry executes registry operations against a record store. Mutating
// operations are serialized: each one loads its records, checks access,
// commits one batch and emits one event before the next one starts.
type Registry struct {
	mu    sync.Mutex
	store interfaces.RecordStore
	sink  interfaces.EventSink
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry on top of store, emitting events to sink.
func NewRegistry(store interfaces.RecordStore, sink interfaces.EventSink, log *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		sink:  sink,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize creates the registry config with caller as the authority.
// Anyone may initialize an empty registry; the config slot can only be filled once.
func (r *Registry) Initialize(ctx context.Context, caller interfaces.Identity) (*interfaces.ProgramInitialized, error) {
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: zero identity cannot become authority", interfaces.ErrUnauthorized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Load(ctx, interfaces.ConfigKey()); err == nil {
		return nil, interfaces.ErrAlreadyInitialized
	} else if !errors.Is(err, interfaces.ErrRecordNotFound) {
		return nil, fmt.Errorf("load config: %w", err)
	}

	config := interfaces.RegistryConfig{Authority: caller}
	write, err := encodeRecord(interfaces.ConfigKey(), &config)
	if err != nil {
		return nil, err
	}
	write.Mode = interfaces.CreateOnly

	if err := r.store.Commit(ctx, []interfaces.RecordWrite{write}); err != nil {
		if errors.Is(err, interfaces.ErrSlotOccupied) {
			return nil, interfaces.ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("commit config: %w", err)
	}

	event := &interfaces.ProgramInitialized{
		Authority: caller,
		Timestamp: r.timestamp(),
	}
	r.log.Info("Registry initialized", "authority", caller)
	r.emit(ctx, event)
	return event, nil
}

// RecordScore creates or updates the score record of args.Wallet. The caller
// must be the authority or an active agent. Every successful call increments
// the record's update count; the first call for a wallet also increments the
// config's total score count.
func (r *Registry) RecordScore(ctx context.Context, caller interfaces.Identity, args interfaces.RecordScoreArgs) (*interfaces.ScoreRecorded, error) {
	if err := interfaces.ValidateScoreInput(args.Score, args.Grade, args.Metadata); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	config, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var agent *interfaces.AgentRecord
	if caller != config.Authority {
		agent, err = r.loadAgent(ctx, caller)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
	}

	if !IsAuthorized(caller, config, agent) {
		if agent != nil && !agent.IsActive {
			return nil, fmt.Errorf("%w: %w", interfaces.ErrUnauthorized, interfaces.ErrAgentNotActive)
		}
		return nil, interfaces.ErrUnauthorized
	}

	key := interfaces.ScoreKey(args.Wallet)
	var record interfaces.ScoreRecord
	if err := r.loadInto(ctx, key, &record); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	if record.UpdateCount == math.MaxUint32 {
		return nil, fmt.Errorf("%w: wallet %s", interfaces.ErrUpdateCountExhausted, args.Wallet)
	}

	isNew := record.IsNew()
	var previousScore *uint16
	if !isNew {
		prev := record.Score
		previousScore = &prev
	}

	now := r.timestamp()
	record.Wallet = args.Wallet
	record.Score = args.Score
	record.Grade = args.Grade
	record.Metadata = args.Metadata
	record.LastUpdated = now
	record.UpdateCount++

	scoreWrite, err := encodeRecord(key, &record)
	if err != nil {
		return nil, err
	}
	writes := []interfaces.RecordWrite{scoreWrite}

	if isNew {
		config.TotalScores++
		configWrite, err := encodeRecord(interfaces.ConfigKey(), config)
		if err != nil {
			return nil, err
		}
		writes = append(writes, configWrite)
	}

	if err := r.store.Commit(ctx, writes); err != nil {
		return nil, fmt.Errorf("commit score: %w", err)
	}

	event := &interfaces.ScoreRecorded{
		Wallet:        args.Wallet,
		Score:         args.Score,
		Grade:         args.Grade,
		PreviousScore: previousScore,
		Timestamp:     now,
		UpdateCount:   record.UpdateCount,
	}
	r.log.Info("Score recorded",
		"wallet", args.Wallet,
		"score", args.Score,
		"grade", args.Grade,
		"updateCount", record.UpdateCount,
		"caller", caller)
	r.emit(ctx, event)
	return event, nil
}

// TransferAuthority replaces the authority. Only the current authority may
// call it; agents cannot. The new authority is not validated.
func (r *Registry) TransferAuthority(ctx context.Context, caller interfaces.Identity, newAuthority interfaces.Identity) (*interfaces.AuthorityTransferred, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	config, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !isAuthority(caller, config) {
		return nil, interfaces.ErrUnauthorized
	}

	oldAuthority := config.Authority
	config.Authority = newAuthority

	write, err := encodeRecord(interfaces.ConfigKey(), config)
	if err != nil {
		return nil, err
	}
	if err := r.store.Commit(ctx, []interfaces.RecordWrite{write}); err != nil {
		return nil, fmt.Errorf("commit config: %w", err)
	}

	event := &interfaces.AuthorityTransferred{
		OldAuthority: oldAuthority,
		NewAuthority: newAuthority,
		Timestamp:    r.timestamp(),
	}
	r.log.Info("Authority transferred", "from", oldAuthority, "to", newAuthority)
	r.emit(ctx, event)
	return event, nil
}

// AddAgent creates an active agent record. Only the authority may add agents,
// and an agent can only be added once: a removed agent stays removed.
func (r *Registry) AddAgent(ctx context.Context, caller interfaces.Identity, newAgent interfaces.Identity) (*interfaces.AgentAdded, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	config, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !isAuthority(caller, config) {
		return nil, interfaces.ErrUnauthorized
	}

	if _, err := r.loadAgent(ctx, newAgent); err == nil {
		return nil, fmt.Errorf("%w: agent %s", interfaces.ErrAlreadyExists, newAgent)
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	now := r.timestamp()
	record := interfaces.AgentRecord{
		Authority: config.Authority,
		Agent:     newAgent,
		IsActive:  true,
		CreatedAt: now,
	}
	write, err := encodeRecord(interfaces.AgentKey(newAgent), &record)
	if err != nil {
		return nil, err
	}
	write.Mode = interfaces.CreateOnly

	if err := r.store.Commit(ctx, []interfaces.RecordWrite{write}); err != nil {
		if errors.Is(err, interfaces.ErrSlotOccupied) {
			return nil, fmt.Errorf("%w: agent %s", interfaces.ErrAlreadyExists, newAgent)
		}
		return nil, fmt.Errorf("commit agent: %w", err)
	}

	event := &interfaces.AgentAdded{
		Agent:     newAgent,
		AddedBy:   caller,
		Timestamp: now,
	}
	r.log.Info("Agent added", "agent", newAgent)
	r.emit(ctx, event)
	return event, nil
}

// RemoveAgent deactivates an existing agent record. The record is kept.
func (r *Registry) RemoveAgent(ctx context.Context, caller interfaces.Identity, agentID interfaces.Identity) (*interfaces.AgentRemoved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	config, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !isAuthority(caller, config) {
		return nil, interfaces.ErrUnauthorized
	}

	agent, err := r.loadAgent(ctx, agentID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAgentNotFound, agentID)
	} else if err != nil {
		return nil, err
	}

	agent.IsActive = false
	write, err := encodeRecord(interfaces.AgentKey(agentID), agent)
	if err != nil {
		return nil, err
	}
	if err := r.store.Commit(ctx, []interfaces.RecordWrite{write}); err != nil {
		return nil, fmt.Errorf("commit agent: %w", err)
	}

	event := &interfaces.AgentRemoved{
		Agent:     agent.Agent,
		RemovedBy: caller,
		Timestamp: r.timestamp(),
	}
	r.log.Info("Agent deactivated", "agent", agent.Agent)
	r.emit(ctx, event)
	return event, nil
}

// Config returns the registry config.
func (r *Registry) Config(ctx context.Context) (*interfaces.RegistryConfig, error) {
	return r.loadConfig(ctx)
}

// Score returns the score record of wallet.
func (r *Registry) Score(ctx context.Context, wallet interfaces.Identity) (*interfaces.ScoreRecord, error) {
	var record interfaces.ScoreRecord
	if err := r.loadInto(ctx, interfaces.ScoreKey(wallet), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Scores returns the records of up to MaxBatchSize wallets. Wallets
// without a record yield nil; any other load failure fails the batch.
func (r *Registry) Scores(ctx context.Context, wallets []interfaces.Identity) ([]*interfaces.ScoreRecord, error) {
	if len(wallets) == 0 || len(wallets) > interfaces.MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", interfaces.ErrInvalidBatch, len(wallets))
	}

	records := make([]*interfaces.ScoreRecord, len(wallets))
	for i, wallet := range wallets {
		record, err := r.Score(ctx, wallet)
		if errors.Is(err, interfaces.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records[i] = record
	}
	return records, nil
}

// Compare loads both wallets' records and compares their scores.
func (r *Registry) Compare(ctx context.Context, first, second interfaces.Identity) (*interfaces.ScoreComparison, error) {
	a, err := r.Score(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("first wallet: %w", err)
	}
	b, err := r.Score(ctx, second)
	if err != nil {
		return nil, fmt.Errorf("second wallet: %w", err)
	}
	return interfaces.CompareScores(*a, *b), nil
}

// Agent returns the record of an agent.
func (r *Registry) Agent(ctx context.Context, agentID interfaces.Identity) (*interfaces.AgentRecord, error) {
	return r.loadAgent(ctx, agentID)
}

// Leaderboard returns up to limit score records ordered by score, most
// recently updated first among equal scores. A limit of zero or less returns
// every record.
func (r *Registry) Leaderboard(ctx context.Context, limit int) ([]interfaces.ScoreRecord, error) {
	stored, err := r.store.List(ctx, interfaces.ScoreNamespace)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	records := make([]interfaces.ScoreRecord, 0, len(stored))
	for _, s := range stored {
		var record interfaces.ScoreRecord
		if err := decodeRecord(s.Key, s.Data, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.LastUpdated != b.LastUpdated {
			return a.LastUpdated > b.LastUpdated
		}
		return a.Wallet.String() < b.Wallet.String()
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *Registry) loadConfig(ctx context.Context) (*interfaces.RegistryConfig, error) {
	var config interfaces.RegistryConfig
	if err := r.loadInto(ctx, interfaces.ConfigKey(), &config); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, interfaces.ErrNotInitialized
		}
		return nil, err
	}
	return &config, nil
}

func (r *Registry) loadAgent(ctx context.Context, agentID interfaces.Identity) (*interfaces.AgentRecord, error) {
	var agent interfaces.AgentRecord
	if err := r.loadInto(ctx, interfaces.AgentKey(agentID), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// loadInto decodes the record at key into v, returning ErrNotFound when the
// slot is empty.
func (r *Registry) loadInto(ctx context.Context, key interfaces.RecordKey, v any) error {
	data, err := r.store.Load(ctx, key)
	if errors.Is(err, interfaces.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return decodeRecord(key, data, v)
}

func (r *Registry) timestamp() uint64 {
	return uint64(r.now().Unix())
}

// emit hands the event to the sink. The operation is already committed, so a
// delivery failure is logged rather than returned.
func (r *Registry) emit(ctx context.Context, event interfaces.Event) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Emit(ctx, event); err != nil {
		r.log.Error("Failed to emit event", "type", event.EventType(), "err", err)
	}
}
