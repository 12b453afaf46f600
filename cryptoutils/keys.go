package cryptoutils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	vault "github.com/hashicorp/vault/api"
)

// KeySource provides the private key a client signs requests with.
type KeySource interface {
	PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error)
}

// HexKey is a private key given as a hex string, with or without 0x prefix.
type HexKey string

func (k HexKey) PrivateKey(context.Context) (*ecdsa.PrivateKey, error) {
	return ParsePrivateKeyHex(string(k))
}

// FileKey is a file holding a hex-encoded private key.
type FileKey string

func (k FileKey) PrivateKey(context.Context) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(string(k))
	if err != nil {
		return nil, fmt.Errorf("failed to load key from %s: %w", string(k), err)
	}
	return key, nil
}

// ParsePrivateKeyHex parses a secp256k1 private key.
func ParsePrivateKeyHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if has0xPrefix(s) {
		s = s[2:]
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// GenerateKey creates a new secp256k1 private key and returns it hex-encoded
// together with its identity.
func GenerateKey() (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	return fmt.Sprintf("%x", crypto.FromECDSA(key)), IdentityFromKey(key).String(), nil
}

// VaultKey reads a hex private key from a HashiCorp Vault KV v2 secret.
type VaultKey struct {
	client    *vault.Client
	mountPath string
	dataPath  string
	field     string
	log       *slog.Logger
}

// VaultKeyConfig locates the secret holding the key.
type VaultKeyConfig struct {
	// Address of the Vault server, e.g. https://vault.example.com:8200.
	Address string
	Token   string
	// MountPath of the KV v2 engine, e.g. "secret".
	MountPath string
	// DataPath of the secret within the mount, e.g. "registry/agent".
	DataPath string
	// Field of the secret holding the hex key. Defaults to "private_key".
	Field string
}

// NewVaultKey creates a Vault-backed key source.
func NewVaultKey(cfg VaultKeyConfig, log *slog.Logger) (*VaultKey, error) {
	config := vault.DefaultConfig()
	config.Address = cfg.Address
	config.Timeout = 30 * time.Second

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	field := cfg.Field
	if field == "" {
		field = "private_key"
	}

	return &VaultKey{
		client:    client,
		mountPath: strings.Trim(cfg.MountPath, "/"),
		dataPath:  strings.Trim(cfg.DataPath, "/"),
		field:     field,
		log:       log,
	}, nil
}

// PrivateKey reads and parses the key.
func (k *VaultKey) PrivateKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	// Vault KV v2 path structure
	path := fmt.Sprintf("%s/data/%s", k.mountPath, k.dataPath)

	secret, err := k.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		k.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("failed to read key from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("invalid data format in Vault response")
	}
	value, ok := data[k.field].(string)
	if !ok {
		return nil, fmt.Errorf("field %q not found in Vault secret", k.field)
	}

	k.log.Debug("Loaded private key from Vault", slog.String("path", path))
	return ParsePrivateKeyHex(value)
}
