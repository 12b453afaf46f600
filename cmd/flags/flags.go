package flags

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/reputation-registry/api"
	"github.com/ruteri/reputation-registry/common"
	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/events"
	"github.com/urfave/cli/v2"
)

var ErrNoKeySource = errors.New("one of --private-key, --private-key-file or --vault-addr is required")

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer builds the API server config from the server flags.
// Limits left at zero fall back to the api defaults.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	cfg := api.HTTPServerConfig{
		ListenAddr:      cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:     cCtx.String(MetricsAddrFlag.Name),
		Log:             logger,
		EnablePprof:     cCtx.Bool(PprofFlag.Name),
		DrainDuration:   time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		MaxBodySize:     cCtx.Int64(MaxBodySizeFlag.Name),
		SignatureWindow: cCtx.Duration(SignatureWindowFlag.Name),
	}
	return cfg.WithDefaults()
}

// S3Config returns the event archive settings, or nil when no bucket is set.
func S3Config(cCtx *cli.Context) *events.S3Config {
	bucket := cCtx.String(S3BucketFlag.Name)
	if bucket == "" {
		return nil
	}
	return &events.S3Config{
		Bucket:    bucket,
		Prefix:    cCtx.String(S3PrefixFlag.Name),
		Region:    cCtx.String(S3RegionFlag.Name),
		Endpoint:  cCtx.String(S3EndpointFlag.Name),
		AccessKey: cCtx.String(S3AccessKeyFlag.Name),
		SecretKey: cCtx.String(S3SecretKeyFlag.Name),
	}
}

// Archives builds the event archives configured by the archive flags.
// IPFS is left out when withIPFS is unset since only the process that
// delivered an envelope knows its CID.
func Archives(cCtx *cli.Context, logger *slog.Logger, withIPFS bool) ([]events.Archive, error) {
	var archives []events.Archive
	if s3cfg := S3Config(cCtx); s3cfg != nil {
		archive, err := events.NewS3Archive(*s3cfg, logger)
		if err != nil {
			return nil, err
		}
		archives = append(archives, archive)
	}
	if dir := cCtx.String(EventDirFlag.Name); dir != "" {
		archive, err := events.NewFileArchive(dir, logger)
		if err != nil {
			return nil, err
		}
		archives = append(archives, archive)
	}
	if addr := cCtx.String(IPFSAPIFlag.Name); withIPFS && addr != "" {
		archives = append(archives, events.NewIPFSArchive(addr, logger))
	}
	return archives, nil
}

// KeySource picks the signing key source from the key flags. An inline key
// takes precedence over a key file, which takes precedence over Vault.
func KeySource(cCtx *cli.Context, logger *slog.Logger) (cryptoutils.KeySource, error) {
	if key := cCtx.String(PrivateKeyFlag.Name); key != "" {
		return cryptoutils.HexKey(key), nil
	}
	if file := cCtx.String(PrivateKeyFileFlag.Name); file != "" {
		return cryptoutils.FileKey(file), nil
	}
	if addr := cCtx.String(VaultAddrFlag.Name); addr != "" {
		vaultKey, err := cryptoutils.NewVaultKey(cryptoutils.VaultKeyConfig{
			Address:   addr,
			Token:     cCtx.String(VaultTokenFlag.Name),
			MountPath: cCtx.String(VaultMountFlag.Name),
			DataPath:  cCtx.String(VaultPathFlag.Name),
			Field:     cCtx.String(VaultFieldFlag.Name),
		}, logger)
		if err != nil {
			return nil, err
		}
		return vaultKey, nil
	}
	return nil, ErrNoKeySource
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"REGISTRY_LISTEN_ADDR"},
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to report not-ready before shutting down",
}
var MaxBodySizeFlag = &cli.Int64Flag{
	Name:  "max-body-size",
	Value: api.MaxBodySize,
	Usage: "largest accepted request body in bytes",
}
var SignatureWindowFlag = &cli.DurationFlag{
	Name:  "signature-window",
	Value: cryptoutils.DefaultFreshnessWindow,
	Usage: "how far a signed request timestamp may be from the server clock",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var StoreFlag = &cli.StringFlag{
	Name:    "store",
	Value:   "memory://",
	Usage:   "record store location: memory:// or sqlite:///path/to/registry.db",
	EnvVars: []string{"REGISTRY_STORE"},
}
var EventRetentionFlag = &cli.IntFlag{
	Name:  "event-retention",
	Value: 10000,
	Usage: "number of events kept in memory for the events endpoint (0 keeps all)",
}

var S3BucketFlag = &cli.StringFlag{
	Name:    "s3-bucket",
	Usage:   "archive every event to this S3 bucket",
	EnvVars: []string{"REGISTRY_S3_BUCKET"},
}
var S3PrefixFlag = &cli.StringFlag{
	Name:  "s3-prefix",
	Value: "events",
	Usage: "object key prefix of archived events",
}
var S3RegionFlag = &cli.StringFlag{
	Name:    "s3-region",
	Value:   "us-east-1",
	Usage:   "S3 region",
	EnvVars: []string{"AWS_REGION"},
}
var S3EndpointFlag = &cli.StringFlag{
	Name:  "s3-endpoint",
	Usage: "custom S3-compatible endpoint, e.g. http://127.0.0.1:9000",
}
var S3AccessKeyFlag = &cli.StringFlag{
	Name:    "s3-access-key",
	Usage:   "static S3 access key (default credential chain if unset)",
	EnvVars: []string{"AWS_ACCESS_KEY_ID"},
}
var S3SecretKeyFlag = &cli.StringFlag{
	Name:    "s3-secret-key",
	Usage:   "static S3 secret key",
	EnvVars: []string{"AWS_SECRET_ACCESS_KEY"},
}

var EventDirFlag = &cli.StringFlag{
	Name:  "event-dir",
	Usage: "archive every event as a JSON file in this directory",
}
var IPFSAPIFlag = &cli.StringFlag{
	Name:  "ipfs-api",
	Usage: "archive every event to the IPFS node with this API address, e.g. 127.0.0.1:5001",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry server address",
	EnvVars: []string{"REGISTRY_SERVER_ADDR"},
}
var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "hex secp256k1 private key to sign requests with",
	EnvVars: []string{"REGISTRY_PRIVATE_KEY"},
}
var PrivateKeyFileFlag = &cli.StringFlag{
	Name:  "private-key-file",
	Usage: "file holding a hex secp256k1 private key",
}
var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Usage:   "read the private key from this Vault server",
	EnvVars: []string{"VAULT_ADDR"},
}
var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token",
	EnvVars: []string{"VAULT_TOKEN"},
}
var VaultMountFlag = &cli.StringFlag{
	Name:  "vault-mount",
	Value: "secret",
	Usage: "KV v2 mount path of the key secret",
}
var VaultPathFlag = &cli.StringFlag{
	Name:  "vault-path",
	Value: "reputation-registry/signer",
	Usage: "path of the key secret within the mount",
}
var VaultFieldFlag = &cli.StringFlag{
	Name:  "vault-field",
	Value: "private_key",
	Usage: "secret field holding the hex key",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MaxBodySizeFlag,
	SignatureWindowFlag,
	MetricsAddrFlag,
	StoreFlag,
	EventRetentionFlag,
	S3BucketFlag,
	S3PrefixFlag,
	S3RegionFlag,
	S3EndpointFlag,
	S3AccessKeyFlag,
	S3SecretKeyFlag,
	EventDirFlag,
	IPFSAPIFlag,
}

var ArchiveFlags = []cli.Flag{
	S3BucketFlag,
	S3PrefixFlag,
	S3RegionFlag,
	S3EndpointFlag,
	S3AccessKeyFlag,
	S3SecretKeyFlag,
	EventDirFlag,
}

var KeyFlags = []cli.Flag{
	PrivateKeyFlag,
	PrivateKeyFileFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultMountFlag,
	VaultPathFlag,
	VaultFieldFlag,
}
