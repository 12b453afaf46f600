package cryptoutils

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ruteri/reputation-registry/interfaces"
)

const (
	// DefaultFreshnessWindow is how far a request timestamp may be from the
	// verifier's clock, in either direction.
	DefaultFreshnessWindow = 5 * time.Minute

	// DefaultNonceCapacity is the number of nonces remembered at once.
	DefaultNonceCapacity = 1 << 17
)

var (
	ErrStaleRequest    = errors.New("request timestamp outside the accepted window")
	ErrReplayedRequest = errors.New("request nonce already used")
)

// Verifier authenticates signed requests and rejects replays. A request is
// accepted once: its timestamp must be within the freshness window, and its
// caller and nonce pair must not have been seen while the timestamp is fresh.
type Verifier struct {
	window time.Duration
	now    func() time.Time

	mu sync.Mutex
	// seen maps caller/nonce to the time the entry stops mattering.
	seen lru.BasicLRU[string, time.Time]
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock overrides the time source.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithNonceCapacity sets how many nonces are remembered. Once full, the
// least recently added nonce is forgotten first.
func WithNonceCapacity(n int) VerifierOption {
	return func(v *Verifier) {
		v.seen = lru.NewBasicLRU[string, time.Time](n)
	}
}

// NewVerifier creates a verifier accepting timestamps within window of its
// clock. A window of zero or less selects DefaultFreshnessWindow.
func NewVerifier(window time.Duration, opts ...VerifierOption) *Verifier {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	v := &Verifier{
		window: window,
		now:    time.Now,
		seen:   lru.NewBasicLRU[string, time.Time](DefaultNonceCapacity),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify authenticates r and records its nonce. It returns the caller.
func (v *Verifier) Verify(r *http.Request) (interfaces.Identity, error) {
	signed, err := RecoverCaller(r)
	if err != nil {
		return interfaces.Identity{}, err
	}

	now := v.now()
	if signed.Timestamp.Before(now.Add(-v.window)) || signed.Timestamp.After(now.Add(v.window)) {
		return interfaces.Identity{}, fmt.Errorf("%w: signed at %d, now %d", ErrStaleRequest, signed.Timestamp.Unix(), now.Unix())
	}

	key := signed.Caller.String() + "/" + signed.Nonce

	v.mu.Lock()
	defer v.mu.Unlock()

	v.pruneLocked(now)
	if expiry, ok := v.seen.Peek(key); ok && now.Before(expiry) {
		return interfaces.Identity{}, fmt.Errorf("%w: %s", ErrReplayedRequest, signed.Nonce)
	}
	v.seen.Add(key, signed.Timestamp.Add(v.window))
	return signed.Caller, nil
}

// pruneLocked drops expired nonces from the old end of the cache.
func (v *Verifier) pruneLocked(now time.Time) {
	for {
		_, expiry, ok := v.seen.GetOldest()
		if !ok || now.Before(expiry) {
			return
		}
		v.seen.RemoveOldest()
	}
}
