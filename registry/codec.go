package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ruteri/reputation-registry/interfaces"
)

// Records are stored RLP-encoded, which is canonical for a given value.

func encodeRecord(key interfaces.RecordKey, v any) (interfaces.RecordWrite, error) {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return interfaces.RecordWrite{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return interfaces.RecordWrite{Key: key, Data: data}, nil
}

func decodeRecord(key interfaces.RecordKey, data []byte, v any) error {
	if err := rlp.DecodeBytes(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
