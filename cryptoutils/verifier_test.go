package cryptoutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verifierNow = time.Unix(1700000000, 0)

// capture signs a request once and returns a function producing copies of
// it, the way an observer on the wire could resend it.
func capture(t *testing.T, at time.Time, nonce string) func() *http.Request {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	const path = "/api/v1/scores/0x3333333333333333333333333333333333333333"
	const body = `{"score":100,"grade":"F"}`
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, SignRequestAt(req, key, at, nonce))

	return func() *http.Request {
		out := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		out.Header = req.Header.Clone()
		return out
	}
}

func fixedVerifierClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}

func TestVerifierRejectsReplay(t *testing.T) {
	now := verifierNow
	v := NewVerifier(time.Minute, WithVerifierClock(fixedVerifierClock(&now)))
	resend := capture(t, verifierNow, "nonce-1")

	_, err := v.Verify(resend())
	require.NoError(t, err)

	_, err = v.Verify(resend())
	assert.ErrorIs(t, err, ErrReplayedRequest)

	// Once the timestamp is stale the request stays rejected.
	now = verifierNow.Add(2 * time.Minute)
	_, err = v.Verify(resend())
	assert.ErrorIs(t, err, ErrStaleRequest)
}

func TestVerifierFreshnessWindow(t *testing.T) {
	now := verifierNow
	v := NewVerifier(time.Minute, WithVerifierClock(fixedVerifierClock(&now)))

	tests := []struct {
		name string
		at   time.Time
		err  error
	}{
		{name: "now", at: verifierNow},
		{name: "at the past edge", at: verifierNow.Add(-time.Minute)},
		{name: "at the future edge", at: verifierNow.Add(time.Minute)},
		{name: "too old", at: verifierNow.Add(-time.Minute - time.Second), err: ErrStaleRequest},
		{name: "too far ahead", at: verifierNow.Add(time.Minute + time.Second), err: ErrStaleRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(capture(t, tt.at, tt.name)())
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestVerifierNoncesArePerCaller(t *testing.T) {
	now := verifierNow
	v := NewVerifier(time.Minute, WithVerifierClock(fixedVerifierClock(&now)))

	// Two callers may pick the same nonce.
	_, err := v.Verify(capture(t, verifierNow, "shared")())
	require.NoError(t, err)
	_, err = v.Verify(capture(t, verifierNow, "shared")())
	require.NoError(t, err)
}

func TestVerifierForgetsExpiredNonces(t *testing.T) {
	now := verifierNow
	v := NewVerifier(time.Minute, WithVerifierClock(fixedVerifierClock(&now)), WithNonceCapacity(8))

	for i := 0; i < 5; i++ {
		_, err := v.Verify(capture(t, verifierNow, "n")())
		require.NoError(t, err)
	}
	assert.Equal(t, 5, v.seen.Len())

	now = verifierNow.Add(time.Minute + time.Second)
	_, err := v.Verify(capture(t, now, "n")())
	require.NoError(t, err)
	assert.Equal(t, 1, v.seen.Len())
}

func TestVerifierPassesSignatureErrors(t *testing.T) {
	v := NewVerifier(0)
	_, err := v.Verify(httptest.NewRequest(http.MethodPost, "/api/v1/initialize", nil))
	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Equal(t, DefaultFreshnessWindow, v.window)
}
