package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storeBackends returns a fresh instance of every backend under test.
func storeBackends(t *testing.T) map[string]interfaces.RecordStore {
	t.Helper()

	sqliteStore, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "registry.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]interfaces.RecordStore{
		"memory": NewMemoryStore(testLogger()),
		"sqlite": sqliteStore,
	}
}

func TestRecordStore_LoadMissing(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), interfaces.ConfigKey())
			assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)
		})
	}
}

func TestRecordStore_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	wallet := interfaces.Identity{0x0a}

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Commit(ctx, []interfaces.RecordWrite{
				{Key: interfaces.ConfigKey(), Data: []byte("config-v1"), Mode: interfaces.CreateOnly},
				{Key: interfaces.ScoreKey(wallet), Data: []byte("score-v1")},
			})
			require.NoError(t, err)

			data, err := store.Load(ctx, interfaces.ConfigKey())
			require.NoError(t, err)
			assert.Equal(t, []byte("config-v1"), data)

			// upsert overwrites in place
			err = store.Commit(ctx, []interfaces.RecordWrite{
				{Key: interfaces.ScoreKey(wallet), Data: []byte("score-v2")},
			})
			require.NoError(t, err)

			data, err = store.Load(ctx, interfaces.ScoreKey(wallet))
			require.NoError(t, err)
			assert.Equal(t, []byte("score-v2"), data)
		})
	}
}

func TestRecordStore_CreateOnlyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	wallet := interfaces.Identity{0x0b}

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Commit(ctx, []interfaces.RecordWrite{
				{Key: interfaces.ConfigKey(), Data: []byte("first"), Mode: interfaces.CreateOnly},
			}))

			// the score write precedes the failing create and must not survive
			err := store.Commit(ctx, []interfaces.RecordWrite{
				{Key: interfaces.ScoreKey(wallet), Data: []byte("score")},
				{Key: interfaces.ConfigKey(), Data: []byte("second"), Mode: interfaces.CreateOnly},
			})
			assert.ErrorIs(t, err, interfaces.ErrSlotOccupied)

			data, err := store.Load(ctx, interfaces.ConfigKey())
			require.NoError(t, err)
			assert.Equal(t, []byte("first"), data)

			_, err = store.Load(ctx, interfaces.ScoreKey(wallet))
			assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)
		})
	}
}

func TestRecordStore_List(t *testing.T) {
	ctx := context.Background()
	wallets := []interfaces.Identity{{0x01}, {0x02}, {0x03}}

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			var writes []interfaces.RecordWrite
			for _, w := range wallets {
				writes = append(writes, interfaces.RecordWrite{Key: interfaces.ScoreKey(w), Data: w.Bytes()})
			}
			writes = append(writes, interfaces.RecordWrite{Key: interfaces.AgentKey(wallets[0]), Data: []byte("agent")})
			require.NoError(t, store.Commit(ctx, writes))

			records, err := store.List(ctx, interfaces.ScoreNamespace)
			require.NoError(t, err)
			require.Len(t, records, 3)

			seen := map[interfaces.Identity]bool{}
			for _, rec := range records {
				assert.Equal(t, interfaces.ScoreNamespace, rec.Key.Namespace)
				id, err := interfaces.NewIdentityFromBytes(rec.Key.Key)
				require.NoError(t, err)
				assert.Equal(t, id.Bytes(), rec.Data)
				seen[id] = true
			}
			assert.Len(t, seen, 3)

			agents, err := store.List(ctx, interfaces.AgentNamespace)
			require.NoError(t, err)
			assert.Len(t, agents, 1)

			configs, err := store.List(ctx, interfaces.ConfigNamespace)
			require.NoError(t, err)
			assert.Empty(t, configs)
		})
	}
}

func TestMemoryStore_DuplicateCreateInBatch(t *testing.T) {
	store := NewMemoryStore(testLogger())
	err := store.Commit(context.Background(), []interfaces.RecordWrite{
		{Key: interfaces.AgentKey(interfaces.Identity{0x01}), Data: []byte("a"), Mode: interfaces.CreateOnly},
		{Key: interfaces.AgentKey(interfaces.Identity{0x01}), Data: []byte("b"), Mode: interfaces.CreateOnly},
	})
	assert.ErrorIs(t, err, interfaces.ErrSlotOccupied)

	_, err = store.Load(context.Background(), interfaces.AgentKey(interfaces.Identity{0x01}))
	assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	data := []byte("original")
	require.NoError(t, store.Commit(ctx, []interfaces.RecordWrite{{Key: interfaces.ConfigKey(), Data: data}}))

	data[0] = 'X'
	loaded, err := store.Load(ctx, interfaces.ConfigKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)

	loaded[0] = 'Y'
	again, err := store.Load(ctx, interfaces.ConfigKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	store, err := OpenSQLiteStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, []interfaces.RecordWrite{
		{Key: interfaces.ConfigKey(), Data: []byte("persisted"), Mode: interfaces.CreateOnly},
	}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load(ctx, interfaces.ConfigKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

func TestSQLiteStore_NilLogger(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "registry.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NotPanics(t, func() {
		require.NoError(t, store.Commit(ctx, []interfaces.RecordWrite{
			{Key: interfaces.ConfigKey(), Data: []byte("config"), Mode: interfaces.CreateOnly},
		}))
	})
	data, err := store.Load(ctx, interfaces.ConfigKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("config"), data)
}

func TestStoreFactory_StoreFor(t *testing.T) {
	factory := NewStoreFactory(testLogger())

	loc, err := interfaces.NewStoreLocation("memory://")
	require.NoError(t, err)
	store, err := factory.StoreFor(loc)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	loc, err = interfaces.NewStoreLocation("sqlite://" + filepath.Join(t.TempDir(), "f.db"))
	require.NoError(t, err)
	store, err = factory.StoreFor(loc)
	require.NoError(t, err)
	defer store.Close()
	assert.Contains(t, store.Name(), "sqlite-")

	_, err = factory.StoreFor(interfaces.StoreLocation{Scheme: "ipfs"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidStoreURI)
}
