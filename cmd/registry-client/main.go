package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/reputation-registry/api/clients"
	"github.com/ruteri/reputation-registry/cmd/flags"
	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagWallet = &cli.StringFlag{
	Name:     "wallet",
	Required: true,
	Usage:    "wallet identity, 40-char hex string",
}
var flagAgent = &cli.StringFlag{
	Name:     "agent",
	Required: true,
	Usage:    "agent identity, 40-char hex string",
}
var flagNewAuthority = &cli.StringFlag{
	Name:     "new-authority",
	Required: true,
	Usage:    "identity of the new authority, 40-char hex string",
}
var flagScore = &cli.UintFlag{
	Name:     "score",
	Required: true,
	Usage:    "score between 0 and 1000",
}
var flagGrade = &cli.StringFlag{
	Name:  "grade",
	Usage: "grade of up to 3 bytes (derived from the score if unset)",
}
var flagMetadata = &cli.StringFlag{
	Name:  "metadata",
	Usage: "free-form metadata of up to 256 bytes",
}
var flagWallets = &cli.StringSliceFlag{
	Name:     "wallets",
	Required: true,
	Usage:    "wallets to look up, 40-char hex strings (at most 10)",
}
var flagFirst = &cli.StringFlag{
	Name:     "first",
	Required: true,
	Usage:    "first wallet to compare, 40-char hex string",
}
var flagSecond = &cli.StringFlag{
	Name:     "second",
	Required: true,
	Usage:    "second wallet to compare, 40-char hex string",
}
var flagLimit = &cli.IntFlag{
	Name:  "limit",
	Value: 0,
	Usage: "maximum number of results (0 for all)",
}
var flagSince = &cli.Uint64Flag{
	Name:  "since",
	Value: 0,
	Usage: "return events with a sequence number greater than this",
}
var flagSeq = &cli.Uint64Flag{
	Name:     "seq",
	Required: true,
	Usage:    "sequence number of the archived event",
}

var flagShares = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "number of shares to create",
}
var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "number of shares needed to recover the key",
}
var flagShare = &cli.StringSliceFlag{
	Name:     "share",
	Required: true,
	Usage:    "hex key share, repeat for every share",
}
var flagExpectIdentity = &cli.StringFlag{
	Name:  "expect-identity",
	Usage: "fail unless the recovered key has this identity",
}

const usage string = `Sign and send reputation registry requests.

Mutating commands need a signing key from --private-key, --private-key-file
or a Vault secret (--vault-addr). Queries need no key.`

func main() {
	keyFlags := append([]cli.Flag{flags.ServerAddrFlag}, flags.KeyFlags...)

	app := &cli.App{
		Name:  "registry-client",
		Usage: usage,
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("registry-client")}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate a new signing key and print it with its identity",
				Action: func(cCtx *cli.Context) error {
					key, identity, err := cryptoutils.GenerateKey()
					if err != nil {
						return err
					}
					return printJSON(map[string]string{"private_key": key, "identity": identity})
				},
			},
			{
				Name:  "whoami",
				Usage: "print the identity of the signing key",
				Flags: flags.KeyFlags,
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					caller, err := c.Caller()
					if err != nil {
						return err
					}
					fmt.Println(caller.String())
					return nil
				},
			},
			{
				Name:  "initialize",
				Usage: "create the registry with the signer as authority",
				Flags: keyFlags,
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return printResult(c.Initialize(cCtx.Context))
				},
			},
			{
				Name:  "record-score",
				Usage: "create or update the score of a wallet",
				Flags: append([]cli.Flag{flagWallet, flagScore, flagGrade, flagMetadata}, keyFlags...),
				Action: func(cCtx *cli.Context) error {
					wallet, err := interfaces.NewIdentityFromHex(cCtx.String(flagWallet.Name))
					if err != nil {
						return fmt.Errorf("could not parse wallet: %w", err)
					}
					score := cCtx.Uint(flagScore.Name)
					if score > uint(interfaces.MaxScore) {
						return fmt.Errorf("%w: got %d", interfaces.ErrScoreOutOfRange, score)
					}
					grade := cCtx.String(flagGrade.Name)
					if grade == "" {
						grade = interfaces.GradeForScore(uint16(score))
					}

					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return printResult(c.RecordScore(cCtx.Context, interfaces.RecordScoreArgs{
						Wallet:   wallet,
						Score:    uint16(score),
						Grade:    grade,
						Metadata: cCtx.String(flagMetadata.Name),
					}))
				},
			},
			{
				Name:  "transfer-authority",
				Usage: "hand the registry authority to another identity",
				Flags: append([]cli.Flag{flagNewAuthority}, keyFlags...),
				Action: func(cCtx *cli.Context) error {
					newAuthority, err := interfaces.NewIdentityFromHex(cCtx.String(flagNewAuthority.Name))
					if err != nil {
						return fmt.Errorf("could not parse new authority: %w", err)
					}
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return printResult(c.TransferAuthority(cCtx.Context, newAuthority))
				},
			},
			{
				Name:  "add-agent",
				Usage: "allow an agent to record scores",
				Flags: append([]cli.Flag{flagAgent}, keyFlags...),
				Action: func(cCtx *cli.Context) error {
					agent, err := interfaces.NewIdentityFromHex(cCtx.String(flagAgent.Name))
					if err != nil {
						return fmt.Errorf("could not parse agent: %w", err)
					}
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return printResult(c.AddAgent(cCtx.Context, agent))
				},
			},
			{
				Name:  "remove-agent",
				Usage: "deactivate an agent",
				Flags: append([]cli.Flag{flagAgent}, keyFlags...),
				Action: func(cCtx *cli.Context) error {
					agent, err := interfaces.NewIdentityFromHex(cCtx.String(flagAgent.Name))
					if err != nil {
						return fmt.Errorf("could not parse agent: %w", err)
					}
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					return printResult(c.RemoveAgent(cCtx.Context, agent))
				},
			},
			{
				Name:  "config",
				Usage: "print the registry config",
				Flags: []cli.Flag{flags.ServerAddrFlag},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.Config(cCtx.Context))
				},
			},
			{
				Name:  "score",
				Usage: "print the score record of a wallet",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagWallet},
				Action: func(cCtx *cli.Context) error {
					wallet, err := interfaces.NewIdentityFromHex(cCtx.String(flagWallet.Name))
					if err != nil {
						return fmt.Errorf("could not parse wallet: %w", err)
					}
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.Score(cCtx.Context, wallet))
				},
			},
			{
				Name:  "batch-score",
				Usage: "print the score records of several wallets",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagWallets},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.BatchScores(cCtx.Context, cCtx.StringSlice(flagWallets.Name)))
				},
			},
			{
				Name:  "compare",
				Usage: "compare the scores of two wallets",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagFirst, flagSecond},
				Action: func(cCtx *cli.Context) error {
					first, err := interfaces.NewIdentityFromHex(cCtx.String(flagFirst.Name))
					if err != nil {
						return fmt.Errorf("could not parse first wallet: %w", err)
					}
					second, err := interfaces.NewIdentityFromHex(cCtx.String(flagSecond.Name))
					if err != nil {
						return fmt.Errorf("could not parse second wallet: %w", err)
					}
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.Compare(cCtx.Context, first, second))
				},
			},
			{
				Name:  "agent",
				Usage: "print the record of an agent",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagAgent},
				Action: func(cCtx *cli.Context) error {
					agent, err := interfaces.NewIdentityFromHex(cCtx.String(flagAgent.Name))
					if err != nil {
						return fmt.Errorf("could not parse agent: %w", err)
					}
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.Agent(cCtx.Context, agent))
				},
			},
			{
				Name:  "leaderboard",
				Usage: "print the highest scores",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagLimit},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					return printResult(c.Leaderboard(cCtx.Context, cCtx.Int(flagLimit.Name)))
				},
			},
			{
				Name:  "events",
				Usage: "print recent registry events",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagSince, flagLimit},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, false)
					if err != nil {
						return err
					}
					envs, lastSeq, err := c.Events(cCtx.Context, cCtx.Uint64(flagSince.Name), cCtx.Int(flagLimit.Name))
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"events": envs, "last_seq": lastSeq})
				},
			},
			{
				Name:  "archived-event",
				Usage: "fetch an event from the S3 or directory archive",
				Flags: append([]cli.Flag{flagSeq}, flags.ArchiveFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					archives, err := flags.Archives(cCtx, logger, false)
					if err != nil {
						return err
					}
					if len(archives) == 0 {
						return errors.New("one of --s3-bucket or --event-dir is required")
					}
					archive := events.NewMultiArchive(archives, logger)
					return printResult(archive.Fetch(cCtx.Context, cCtx.Uint64(flagSeq.Name)))
				},
			},
			{
				Name:  "split-key",
				Usage: "split the signing key into Shamir shares",
				Flags: append([]cli.Flag{flagShares, flagThreshold}, flags.KeyFlags...),
				Action: func(cCtx *cli.Context) error {
					source, err := flags.KeySource(cCtx, flags.SetupLogger(cCtx))
					if err != nil {
						return err
					}
					key, err := source.PrivateKey(cCtx.Context)
					if err != nil {
						return fmt.Errorf("could not load signing key: %w", err)
					}
					shares, err := cryptoutils.SplitKey(key, cCtx.Int(flagShares.Name), cCtx.Int(flagThreshold.Name))
					if err != nil {
						return err
					}
					return printJSON(map[string]any{
						"identity":  cryptoutils.IdentityFromKey(key).String(),
						"threshold": cCtx.Int(flagThreshold.Name),
						"shares":    shares,
					})
				},
			},
			{
				Name:  "combine-key",
				Usage: "recover a signing key from Shamir shares",
				Flags: []cli.Flag{flagShare, flagExpectIdentity},
				Action: func(cCtx *cli.Context) error {
					key, err := cryptoutils.CombineKey(cCtx.StringSlice(flagShare.Name))
					if err != nil {
						return err
					}
					identity := cryptoutils.IdentityFromKey(key)
					if expected := cCtx.String(flagExpectIdentity.Name); expected != "" {
						want, err := interfaces.NewIdentityFromHex(expected)
						if err != nil {
							return fmt.Errorf("could not parse expected identity: %w", err)
						}
						if want != identity {
							return fmt.Errorf("recovered key belongs to %s, expected %s: too few or mismatched shares", identity, want)
						}
					}
					return printJSON(map[string]string{
						"private_key": fmt.Sprintf("%x", crypto.FromECDSA(key)),
						"identity":    identity.String(),
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newClient creates an API client, loading the signing key when sign is set.
func newClient(cCtx *cli.Context, sign bool) (*clients.RegistryClient, error) {
	serverAddr := cCtx.String(flags.ServerAddrFlag.Name)
	if !sign {
		return clients.NewRegistryClient(serverAddr, nil), nil
	}

	source, err := flags.KeySource(cCtx, flags.SetupLogger(cCtx))
	if err != nil {
		return nil, err
	}
	key, err := source.PrivateKey(cCtx.Context)
	if err != nil {
		return nil, fmt.Errorf("could not load signing key: %w", err)
	}
	return clients.NewRegistryClient(serverAddr, key), nil
}

func printResult[T any](v T, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
