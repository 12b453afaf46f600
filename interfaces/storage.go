package interfaces

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/crypto"
)

// Namespace is a logical record category.
type Namespace string

const (
	// ConfigNamespace holds the singleton RegistryConfig under an empty key.
	ConfigNamespace Namespace = "config"
	// ScoreNamespace holds ScoreRecords keyed by wallet.
	ScoreNamespace Namespace = "score"
	// AgentNamespace holds AgentRecords keyed by agent.
	AgentNamespace Namespace = "agent"
)

// Slot is the physical address of a record, derived from its RecordKey.
type Slot [32]byte

// String returns hex representation.
func (s Slot) String() string {
	return hex.EncodeToString(s[:])
}

// RecordKey is the logical address of a record.
type RecordKey struct {
	Namespace Namespace
	Key       []byte
}

// ConfigKey addresses the registry config.
func ConfigKey() RecordKey {
	return RecordKey{Namespace: ConfigNamespace}
}

// ScoreKey addresses the score record of a wallet.
func ScoreKey(wallet Identity) RecordKey {
	return RecordKey{Namespace: ScoreNamespace, Key: wallet.Bytes()}
}

// AgentKey addresses the record of an agent.
func AgentKey(agent Identity) RecordKey {
	return RecordKey{Namespace: AgentNamespace, Key: agent.Bytes()}
}

// Slot derives the record slot as keccak256(len(namespace) || namespace || key).
// The length prefix keeps namespaces from bleeding into keys, so slots never
// collide across namespaces.
func (k RecordKey) Slot() Slot {
	buf := make([]byte, 0, 1+len(k.Namespace)+len(k.Key))
	buf = append(buf, byte(len(k.Namespace)))
	buf = append(buf, k.Namespace...)
	buf = append(buf, k.Key...)
	return Slot(crypto.Keccak256Hash(buf))
}

// String returns "namespace/hexkey" for logging.
func (k RecordKey) String() string {
	if len(k.Key) == 0 {
		return string(k.Namespace)
	}
	return fmt.Sprintf("%s/%x", k.Namespace, k.Key)
}

// WriteMode controls how a write treats an occupied slot.
type WriteMode int

const (
	// Upsert creates the record or overwrites it in place.
	Upsert WriteMode = iota
	// CreateOnly fails the whole batch with ErrSlotOccupied if the slot is filled.
	CreateOnly
)

// RecordWrite is a single record mutation in a batch.
type RecordWrite struct {
	Key  RecordKey
	Data []byte
	Mode WriteMode
}

// StoredRecord is a record as returned by listing.
type StoredRecord struct {
	Key  RecordKey
	Data []byte
}

var (
	// ErrRecordNotFound is returned by Load when the slot is empty.
	ErrRecordNotFound = errors.New("record not found")

	// ErrSlotOccupied is returned by Commit when a CreateOnly write targets a filled slot.
	ErrSlotOccupied = errors.New("slot already occupied")

	// ErrInvalidStoreURI is returned when a store location URI is malformed or unsupported.
	ErrInvalidStoreURI = errors.New("invalid store location URI")
)

// RecordStore persists encoded records by logical key.
type RecordStore interface {
	// Load returns the record at key, or ErrRecordNotFound.
	Load(ctx context.Context, key RecordKey) ([]byte, error)

	// List returns every record in a namespace, ordered by slot.
	List(ctx context.Context, namespace Namespace) ([]StoredRecord, error)

	// Commit applies all writes or none of them.
	Commit(ctx context.Context, writes []RecordWrite) error

	// Name returns identifier for logging.
	Name() string

	// Close releases the store's resources.
	Close() error
}

// StoreLocation represents a parsed record store URI.
type StoreLocation struct {
	Raw    string
	Scheme string
	Path   string
	Query  url.Values
}

// NewStoreLocation parses a store URI such as memory:// or sqlite:///var/lib/registry.db.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidStoreURI, err)
	}

	switch parsed.Scheme {
	case "memory", "sqlite":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStoreURI, parsed.Scheme)
	}

	path := parsed.Path
	if parsed.Host != "" {
		// sqlite://relative/path.db
		path = parsed.Host + path
	}
	if parsed.Scheme == "sqlite" && path == "" {
		return StoreLocation{}, fmt.Errorf("%w: sqlite location requires a path", ErrInvalidStoreURI)
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Path:   path,
		Query:  parsed.Query(),
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}
