package cryptoutils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/vault/shamir"
)

var ErrInvalidShare = errors.New("invalid key share")

// SplitKey splits a private key into hex-encoded Shamir shares, any
// threshold of which recover the key.
func SplitKey(key *ecdsa.PrivateKey, shares, threshold int) ([]string, error) {
	if threshold < 2 || threshold > shares {
		return nil, fmt.Errorf("threshold must be between 2 and %d, got %d", shares, threshold)
	}

	parts, err := shamir.Split(crypto.FromECDSA(key), shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split key: %w", err)
	}

	encoded := make([]string, len(parts))
	for i, part := range parts {
		encoded[i] = hex.EncodeToString(part)
	}
	return encoded, nil
}

// CombineKey recovers a private key from hex-encoded shares. Fewer shares
// than the threshold yield a wrong key, which is caught only when the
// expected identity is compared by the caller.
func CombineKey(shares []string) (*ecdsa.PrivateKey, error) {
	if len(shares) < 2 {
		return nil, fmt.Errorf("%w: at least 2 shares are required", ErrInvalidShare)
	}

	parts := make([][]byte, len(shares))
	for i, share := range shares {
		part, err := hex.DecodeString(share)
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", ErrInvalidShare, i, err)
		}
		parts[i] = part
	}

	secret, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}
	key, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("combined shares are not a valid key: %w", err)
	}
	return key, nil
}
