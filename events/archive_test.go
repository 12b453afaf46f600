package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockArchive implements Archive for testing
type MockArchive struct {
	mock.Mock
	name string
}

func (m *MockArchive) Deliver(ctx context.Context, env Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *MockArchive) Fetch(ctx context.Context, seq uint64) (Envelope, error) {
	args := m.Called(ctx, seq)
	return args.Get(0).(Envelope), args.Error(1)
}

func (m *MockArchive) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockArchive) Name() string {
	return m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnvelope(seq uint64) Envelope {
	event := &interfaces.AgentAdded{Agent: testIdentity(2), AddedBy: testIdentity(1), Timestamp: 1700000000 + seq}
	return Envelope{Seq: seq, Type: event.EventType(), Event: event}
}

func TestMultiArchive_Available(t *testing.T) {
	tests := []struct {
		name      string
		available []bool
		expected  bool
	}{
		{name: "all archives available", available: []bool{true, true}, expected: true},
		{name: "some archives available", available: []bool{false, true, false}, expected: true},
		{name: "no archives available", available: []bool{false, false}, expected: false},
		{name: "no archives", available: []bool{}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var archives []Archive
			for i, available := range tt.available {
				m := &MockArchive{name: fmt.Sprintf("mock-%d", i)}
				m.On("Available", mock.Anything).Return(available).Maybe()
				archives = append(archives, m)
			}

			multi := NewMultiArchive(archives, discardLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, archive := range archives {
				archive.(*MockArchive).AssertExpectations(t)
			}
		})
	}
}

func TestMultiArchive_Fetch(t *testing.T) {
	env := testEnvelope(3)
	testErr := errors.New("test error")

	t.Run("first archive has the event", func(t *testing.T) {
		first := &MockArchive{name: "first"}
		first.On("Available", mock.Anything).Return(true)
		first.On("Fetch", mock.Anything, uint64(3)).Return(env, nil)
		second := &MockArchive{name: "second"}

		got, err := NewMultiArchive([]Archive{first, second}, discardLogger()).Fetch(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, env, got)
		first.AssertExpectations(t)
		second.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("falls back past unavailable and failing archives", func(t *testing.T) {
		down := &MockArchive{name: "down"}
		down.On("Available", mock.Anything).Return(false)
		failing := &MockArchive{name: "failing"}
		failing.On("Available", mock.Anything).Return(true)
		failing.On("Fetch", mock.Anything, uint64(3)).Return(Envelope{}, testErr)
		good := &MockArchive{name: "good"}
		good.On("Available", mock.Anything).Return(true)
		good.On("Fetch", mock.Anything, uint64(3)).Return(env, nil)

		got, err := NewMultiArchive([]Archive{down, failing, good}, discardLogger()).Fetch(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, env, got)
		down.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("all archives fail", func(t *testing.T) {
		a := &MockArchive{name: "a"}
		a.On("Available", mock.Anything).Return(true)
		a.On("Fetch", mock.Anything, uint64(3)).Return(Envelope{}, ErrNotArchived)

		_, err := NewMultiArchive([]Archive{a}, discardLogger()).Fetch(context.Background(), 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotArchived)
		assert.Contains(t, err.Error(), "a:")
	})

	t.Run("no archive available", func(t *testing.T) {
		a := &MockArchive{name: "a"}
		a.On("Available", mock.Anything).Return(false)

		_, err := NewMultiArchive([]Archive{a}, discardLogger()).Fetch(context.Background(), 3)
		assert.ErrorIs(t, err, ErrNotArchived)
	})
}

func TestMultiArchive_Deliver(t *testing.T) {
	env := testEnvelope(1)
	testErr := errors.New("test error")

	t.Run("partial failure is tolerated", func(t *testing.T) {
		failing := &MockArchive{name: "failing"}
		failing.On("Available", mock.Anything).Return(true)
		failing.On("Deliver", mock.Anything, env).Return(testErr)
		good := &MockArchive{name: "good"}
		good.On("Available", mock.Anything).Return(true)
		good.On("Deliver", mock.Anything, env).Return(nil)
		down := &MockArchive{name: "down"}
		down.On("Available", mock.Anything).Return(false)

		err := NewMultiArchive([]Archive{failing, good, down}, discardLogger()).Deliver(context.Background(), env)
		require.NoError(t, err)
		failing.AssertExpectations(t)
		good.AssertExpectations(t)
		down.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	})

	t.Run("total failure is reported", func(t *testing.T) {
		failing := &MockArchive{name: "failing"}
		failing.On("Available", mock.Anything).Return(true)
		failing.On("Deliver", mock.Anything, env).Return(testErr)

		err := NewMultiArchive([]Archive{failing}, discardLogger()).Deliver(context.Background(), env)
		require.Error(t, err)
		assert.ErrorIs(t, err, testErr)
	})
}

func TestMultiArchive_Name(t *testing.T) {
	multi := NewMultiArchive([]Archive{&MockArchive{name: "a"}, &MockArchive{name: "b"}}, nil)
	assert.Equal(t, "multi:[a,b]", multi.Name())
}

func TestFileArchive(t *testing.T) {
	dir := t.TempDir() + "/events"
	archive, err := NewFileArchive(dir, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, archive.Available(ctx))
	assert.Equal(t, "file-events", archive.Name())

	_, err = archive.Fetch(ctx, 1)
	assert.ErrorIs(t, err, ErrNotArchived)

	env := testEnvelope(1)
	require.NoError(t, archive.Deliver(ctx, env))

	got, err := archive.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestFileArchiveAsLogSubscriber(t *testing.T) {
	archive, err := NewFileArchive(t.TempDir(), discardLogger())
	require.NoError(t, err)
	log := NewLog(WithSubscribers(archive))
	ctx := context.Background()

	require.NoError(t, log.Emit(ctx, &interfaces.ProgramInitialized{Authority: testIdentity(1), Timestamp: 10}))
	require.NoError(t, log.Emit(ctx, &interfaces.AuthorityTransferred{OldAuthority: testIdentity(1), NewAuthority: testIdentity(3), Timestamp: 11}))

	got, err := archive.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AuthorityTransferredType, got.Type)
	assert.Equal(t, testIdentity(3), got.Event.(*interfaces.AuthorityTransferred).NewAuthority)
}

func TestFileArchiveSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileArchive(dir, discardLogger())
	require.NoError(t, err)
	log := NewLog(WithSubscribers(first))
	require.NoError(t, log.Emit(ctx, &interfaces.ProgramInitialized{Authority: testIdentity(1), Timestamp: 10}))

	// A restarted process opens the same directory with a fresh log.
	second, err := NewFileArchive(dir, discardLogger())
	require.NoError(t, err)
	start, err := ResumeSeq(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), start)

	log = NewLog(WithStartSeq(start), WithSubscribers(second))
	require.NoError(t, log.Emit(ctx, &interfaces.AgentAdded{Agent: testIdentity(2), AddedBy: testIdentity(1), Timestamp: 11}))
	assert.Equal(t, uint64(2), log.LastSeq())

	got, err := second.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ProgramInitializedType, got.Type)

	got, err = second.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AgentAddedType, got.Type)

	// Without resuming, the colliding envelope is refused instead of
	// replacing the archived one.
	log = NewLog(WithSubscribers(second))
	err = log.Emit(ctx, &interfaces.AgentRemoved{Agent: testIdentity(2), RemovedBy: testIdentity(1), Timestamp: 12})
	assert.ErrorIs(t, err, ErrAlreadyArchived)

	got, err = second.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ProgramInitializedType, got.Type)
}

func TestFileArchiveLastArchivedSeq(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewFileArchive(dir, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	last, err := archive.LastArchivedSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	for _, seq := range []uint64{3, 12, 7} {
		require.NoError(t, archive.Deliver(ctx, testEnvelope(seq)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000000000000000099.json.tmp"), []byte("x"), 0644))

	last, err = archive.LastArchivedSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), last)
}

func TestResumeSeq(t *testing.T) {
	ctx := context.Background()
	a, err := NewFileArchive(t.TempDir(), discardLogger())
	require.NoError(t, err)
	b, err := NewFileArchive(t.TempDir(), discardLogger())
	require.NoError(t, err)
	require.NoError(t, a.Deliver(ctx, testEnvelope(4)))
	require.NoError(t, b.Deliver(ctx, testEnvelope(9)))

	// Archives without an index do not contribute.
	unindexed := new(MockArchive)

	seq, err := ResumeSeq(ctx, a, unindexed, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), seq)

	seq, err = NewMultiArchive([]Archive{a, b}, discardLogger()).LastArchivedSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), seq)

	seq, err = ResumeSeq(ctx, unindexed)
	require.NoError(t, err)
	assert.Zero(t, seq)
}

// fakeIPFS serves the subset of the IPFS HTTP API used by IPFSArchive.
type fakeIPFS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeIPFS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v0/id":
		_, _ = w.Write([]byte(`{"ID":"12D3KooWFake"}`))
	case "/api/v0/version":
		_, _ = w.Write([]byte(`{"Version":"0.30.0","Commit":"","Repo":"15","System":"amd64/linux","Golang":"go1.22"}`))
	case "/api/v0/add":
		data, err := readMultipartFile(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		cid := fmt.Sprintf("QmFake%d", len(f.objects)+1)
		f.objects[cid] = data
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"Name":%q,"Hash":%q,"Size":"%d"}`, cid, cid, len(data))
	case "/api/v0/cat":
		f.mu.Lock()
		data, ok := f.objects[r.URL.Query().Get("arg")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"Message":"not found","Code":0,"Type":"error"}`))
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func readMultipartFile(r *http.Request) ([]byte, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	reader := multipart.NewReader(r.Body, params["boundary"])
	var data []byte
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(part.Header.Get("Content-Type"), "application/x-directory") {
			continue
		}
		body, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		data = append(data, body...)
	}
}

func TestIPFSArchive(t *testing.T) {
	node := &fakeIPFS{objects: make(map[string][]byte)}
	server := httptest.NewServer(node)
	defer server.Close()

	archive := NewIPFSArchive(strings.TrimPrefix(server.URL, "http://"), discardLogger())
	ctx := context.Background()

	assert.True(t, archive.Available(ctx))

	_, err := archive.Fetch(ctx, 1)
	assert.ErrorIs(t, err, ErrNotArchived)

	env := testEnvelope(1)
	require.NoError(t, archive.Deliver(ctx, env))

	cid, ok := archive.CID(1)
	require.True(t, ok)
	assert.Equal(t, "QmFake1", cid)

	got, err := archive.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestIPFSArchiveUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	archive := NewIPFSArchive(addr, discardLogger())
	assert.False(t, archive.Available(context.Background()))
	assert.Error(t, archive.Deliver(context.Background(), testEnvelope(1)))
}
