package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// IPFSArchive adds each envelope to an IPFS node. IPFS addresses content by
// hash, so the archive remembers the CID of every envelope it delivered and
// can only fetch those.
type IPFSArchive struct {
	shell *shell.Shell
	addr  string
	log   *slog.Logger

	mu   sync.RWMutex
	cids map[uint64]string
}

// NewIPFSArchive connects to the IPFS HTTP API at addr, e.g. "127.0.0.1:5001".
func NewIPFSArchive(addr string, log *slog.Logger) *IPFSArchive {
	return &IPFSArchive{
		shell: shell.NewShell(addr),
		addr:  addr,
		log:   log,
		cids:  make(map[uint64]string),
	}
}

func (a *IPFSArchive) Deliver(ctx context.Context, env Envelope) error {
	start := time.Now()
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	cid, err := a.shell.Add(bytes.NewReader(data))
	if err != nil {
		a.log.Error("Failed to add event to IPFS",
			slog.Uint64("seq", env.Seq),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to add event to IPFS: %w", err)
	}

	a.mu.Lock()
	a.cids[env.Seq] = cid
	a.mu.Unlock()

	a.log.Info("Archived event to IPFS",
		slog.Uint64("seq", env.Seq),
		slog.String("ipfsCID", cid),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// CID returns the content identifier of a delivered envelope.
func (a *IPFSArchive) CID(seq uint64) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cid, ok := a.cids[seq]
	return cid, ok
}

func (a *IPFSArchive) Fetch(ctx context.Context, seq uint64) (Envelope, error) {
	cid, ok := a.CID(seq)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: no CID for event %d", ErrNotArchived, seq)
	}

	reader, err := a.shell.Cat(cid)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to fetch %s from IPFS: %w", cid, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to read %s from IPFS: %w", cid, err)
	}

	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", cid, err)
	}
	return raw.Decode()
}

// Available checks if the IPFS node is accessible.
func (a *IPFSArchive) Available(ctx context.Context) bool {
	return a.shell.IsUp()
}

func (a *IPFSArchive) Name() string {
	return fmt.Sprintf("ipfs-%s", a.addr)
}
