package cryptoutils

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/reputation-registry/interfaces"
)

// Header constants used to authenticate registry API requests.
const (
	// CallerHeader carries the hex identity the request is made on behalf of.
	CallerHeader = "X-Registry-Caller"

	// SignatureHeader carries the hex-encoded 65-byte recoverable signature
	// over RequestDigest.
	SignatureHeader = "X-Registry-Signature"

	// TimestampHeader carries the signing time in unix seconds.
	TimestampHeader = "X-Registry-Timestamp"

	// NonceHeader carries a value unique to each signed request.
	NonceHeader = "X-Registry-Nonce"

	// MaxNonceLength bounds the nonce header.
	MaxNonceLength = 128
)

var (
	ErrMissingSignature  = errors.New("missing caller, signature, timestamp or nonce header")
	ErrInvalidSignature  = errors.New("invalid request signature")
	ErrSignatureMismatch = errors.New("signature does not match caller")
)

// RequestDigest is the EIP-191 text hash of
// "METHOD\nPATH\nTIMESTAMP\nNONCE\nBODY", with the timestamp in decimal.
func RequestDigest(method, path string, timestamp int64, nonce string, body []byte) []byte {
	ts := strconv.FormatInt(timestamp, 10)
	msg := make([]byte, 0, len(method)+len(path)+len(ts)+len(nonce)+len(body)+4)
	msg = append(msg, method...)
	msg = append(msg, '\n')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = append(msg, ts...)
	msg = append(msg, '\n')
	msg = append(msg, nonce...)
	msg = append(msg, '\n')
	msg = append(msg, body...)
	return accounts.TextHash(msg)
}

// IdentityFromKey returns the identity controlled by key.
func IdentityFromKey(key *ecdsa.PrivateKey) interfaces.Identity {
	return interfaces.Identity(crypto.PubkeyToAddress(key.PublicKey))
}

// SignRequest signs req with key at the current time under a fresh nonce
// and sets the authentication headers. The body is read and restored.
func SignRequest(req *http.Request, key *ecdsa.PrivateKey) error {
	return SignRequestAt(req, key, time.Now(), uuid.NewString())
}

// SignRequestAt is SignRequest with an explicit signing time and nonce.
func SignRequestAt(req *http.Request, key *ecdsa.PrivateKey, at time.Time, nonce string) error {
	body, err := readAndRestoreBody(req)
	if err != nil {
		return err
	}

	timestamp := at.Unix()
	sig, err := crypto.Sign(RequestDigest(req.Method, req.URL.Path, timestamp, nonce, body), key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set(CallerHeader, IdentityFromKey(key).String())
	req.Header.Set(SignatureHeader, hexutil.Encode(sig))
	req.Header.Set(TimestampHeader, strconv.FormatInt(timestamp, 10))
	req.Header.Set(NonceHeader, nonce)
	return nil
}

// SignedRequest is what RecoverCaller learns from an authenticated request.
type SignedRequest struct {
	Caller    interfaces.Identity
	Timestamp time.Time
	Nonce     string
}

// RecoverCaller authenticates r. It recovers the signer from the signature
// header and checks it against the claimed caller. The body is restored for
// later handlers. Freshness and nonce reuse are checked by Verifier.
func RecoverCaller(r *http.Request) (SignedRequest, error) {
	callerHex := r.Header.Get(CallerHeader)
	sigHex := r.Header.Get(SignatureHeader)
	tsText := r.Header.Get(TimestampHeader)
	nonce := r.Header.Get(NonceHeader)
	if callerHex == "" || sigHex == "" || tsText == "" || nonce == "" {
		return SignedRequest{}, ErrMissingSignature
	}
	if len(nonce) > MaxNonceLength {
		return SignedRequest{}, fmt.Errorf("%w: nonce longer than %d bytes", ErrInvalidSignature, MaxNonceLength)
	}

	caller, err := interfaces.NewIdentityFromHex(callerHex)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%w: caller: %v", ErrInvalidSignature, err)
	}

	timestamp, err := strconv.ParseInt(tsText, 10, 64)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidSignature, err)
	}

	sig, err := decodeSignature(sigHex)
	if err != nil {
		return SignedRequest{}, err
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return SignedRequest{}, err
	}

	pub, err := crypto.SigToPub(RequestDigest(r.Method, r.URL.Path, timestamp, nonce, body), sig)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if signer := interfaces.Identity(crypto.PubkeyToAddress(*pub)); signer != caller {
		return SignedRequest{}, ErrSignatureMismatch
	}
	return SignedRequest{Caller: caller, Timestamp: time.Unix(timestamp, 0), Nonce: nonce}, nil
}

// decodeSignature accepts signatures with or without 0x prefix and with a
// recovery id of 0/1 or 27/28.
func decodeSignature(s string) ([]byte, error) {
	if !has0xPrefix(s) {
		s = "0x" + s
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	return sig, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
