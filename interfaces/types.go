package interfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an opaque 20-byte account reference (wallet, agent or authority).
// The zero value is the unset identity.
type Identity [20]byte

// NewIdentityFromBytes creates an identity from a 20-byte slice.
func NewIdentityFromBytes(b []byte) (Identity, error) {
	if len(b) != 20 {
		return Identity{}, errors.New("invalid identity length: must be 20 bytes")
	}

	var id Identity
	copy(id[:], b)
	return id, nil
}

// NewIdentityFromHex parses a 40-character hex identity, with or without 0x prefix.
func NewIdentityFromHex(s string) (Identity, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(clean) != 40 {
		return Identity{}, errors.New("invalid identity length: hex string must be 40 characters")
	}
	if !common.IsHexAddress(clean) {
		return Identity{}, fmt.Errorf("invalid hex format: %q", s)
	}
	return Identity(common.HexToAddress(clean)), nil
}

// String returns the EIP-55 checksummed hex representation.
func (id Identity) String() string {
	return common.Address(id).Hex()
}

// Bytes returns the raw 20-byte identity.
func (id Identity) Bytes() []byte {
	return id[:]
}

// IsZero reports whether id is the unset identity.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Address converts the identity to a go-ethereum address.
func (id Identity) Address() common.Address {
	return common.Address(id)
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := NewIdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
