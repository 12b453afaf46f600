package registry

import (
	"context"

	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the ScoreRegistry interface
type MockRegistry struct {
	mock.Mock
}

// Initialize mocks the Initialize method
func (m *MockRegistry) Initialize(ctx context.Context, caller interfaces.Identity) (*interfaces.ProgramInitialized, error) {
	args := m.Called(ctx, caller)
	ev, _ := args.Get(0).(*interfaces.ProgramInitialized)
	return ev, args.Error(1)
}

// RecordScore mocks the RecordScore method
func (m *MockRegistry) RecordScore(ctx context.Context, caller interfaces.Identity, a interfaces.RecordScoreArgs) (*interfaces.ScoreRecorded, error) {
	args := m.Called(ctx, caller, a)
	ev, _ := args.Get(0).(*interfaces.ScoreRecorded)
	return ev, args.Error(1)
}

// TransferAuthority mocks the TransferAuthority method
func (m *MockRegistry) TransferAuthority(ctx context.Context, caller interfaces.Identity, newAuthority interfaces.Identity) (*interfaces.AuthorityTransferred, error) {
	args := m.Called(ctx, caller, newAuthority)
	ev, _ := args.Get(0).(*interfaces.AuthorityTransferred)
	return ev, args.Error(1)
}

// AddAgent mocks the AddAgent method
func (m *MockRegistry) AddAgent(ctx context.Context, caller interfaces.Identity, agent interfaces.Identity) (*interfaces.AgentAdded, error) {
	args := m.Called(ctx, caller, agent)
	ev, _ := args.Get(0).(*interfaces.AgentAdded)
	return ev, args.Error(1)
}

// RemoveAgent mocks the RemoveAgent method
func (m *MockRegistry) RemoveAgent(ctx context.Context, caller interfaces.Identity, agent interfaces.Identity) (*interfaces.AgentRemoved, error) {
	args := m.Called(ctx, caller, agent)
	ev, _ := args.Get(0).(*interfaces.AgentRemoved)
	return ev, args.Error(1)
}

// Config mocks the Config method
func (m *MockRegistry) Config(ctx context.Context) (*interfaces.RegistryConfig, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(*interfaces.RegistryConfig)
	return cfg, args.Error(1)
}

// Score mocks the Score method
func (m *MockRegistry) Score(ctx context.Context, wallet interfaces.Identity) (*interfaces.ScoreRecord, error) {
	args := m.Called(ctx, wallet)
	rec, _ := args.Get(0).(*interfaces.ScoreRecord)
	return rec, args.Error(1)
}

// Agent mocks the Agent method
func (m *MockRegistry) Agent(ctx context.Context, agent interfaces.Identity) (*interfaces.AgentRecord, error) {
	args := m.Called(ctx, agent)
	rec, _ := args.Get(0).(*interfaces.AgentRecord)
	return rec, args.Error(1)
}

// Scores mocks the Scores method
func (m *MockRegistry) Scores(ctx context.Context, wallets []interfaces.Identity) ([]*interfaces.ScoreRecord, error) {
	args := m.Called(ctx, wallets)
	recs, _ := args.Get(0).([]*interfaces.ScoreRecord)
	return recs, args.Error(1)
}

// Compare mocks the Compare method
func (m *MockRegistry) Compare(ctx context.Context, first, second interfaces.Identity) (*interfaces.ScoreComparison, error) {
	args := m.Called(ctx, first, second)
	cmp, _ := args.Get(0).(*interfaces.ScoreComparison)
	return cmp, args.Error(1)
}

// Leaderboard mocks the Leaderboard method
func (m *MockRegistry) Leaderboard(ctx context.Context, limit int) ([]interfaces.ScoreRecord, error) {
	args := m.Called(ctx, limit)
	recs, _ := args.Get(0).([]interfaces.ScoreRecord)
	return recs, args.Error(1)
}

// MockRecordStore mocks the RecordStore interface
type MockRecordStore struct {
	mock.Mock
}

// Load mocks the Load method
func (m *MockRecordStore) Load(ctx context.Context, key interfaces.RecordKey) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// List mocks the List method
func (m *MockRecordStore) List(ctx context.Context, namespace interfaces.Namespace) ([]interfaces.StoredRecord, error) {
	args := m.Called(ctx, namespace)
	recs, _ := args.Get(0).([]interfaces.StoredRecord)
	return recs, args.Error(1)
}

// Commit mocks the Commit method
func (m *MockRecordStore) Commit(ctx context.Context, writes []interfaces.RecordWrite) error {
	args := m.Called(ctx, writes)
	return args.Error(0)
}

// Name mocks the Name method
func (m *MockRecordStore) Name() string {
	return "mock"
}

// Close mocks the Close method
func (m *MockRecordStore) Close() error {
	return nil
}

var _ interfaces.ScoreRegistry = (*Registry)(nil)
var _ interfaces.ScoreRegistry = (*MockRegistry)(nil)
