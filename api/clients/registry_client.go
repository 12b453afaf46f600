package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ruteri/reputation-registry/api"
	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
)

// ErrNoSigningKey is returned by mutating calls of a client without a key.
var ErrNoSigningKey = errors.New("client has no signing key")

// RegistryClient calls the registry API. Mutating calls are signed with the
// client's private key, which determines the caller identity.
type RegistryClient struct {
	baseURL    string
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
}

// NewRegistryClient creates a client for the API at baseURL. privateKey may
// be nil for a read-only client.
//
// Parameters:
//   - baseURL: The base URL of the API (e.g., "http://localhost:8080")
//   - privateKey: The caller's secp256k1 key
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewRegistryClient(baseURL string, privateKey *ecdsa.PrivateKey, timeout ...time.Duration) *RegistryClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RegistryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		privateKey: privateKey,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// Caller returns the identity requests are signed as.
func (c *RegistryClient) Caller() (interfaces.Identity, error) {
	if c.privateKey == nil {
		return interfaces.Identity{}, ErrNoSigningKey
	}
	return cryptoutils.IdentityFromKey(c.privateKey), nil
}

func (c *RegistryClient) Initialize(ctx context.Context) (*interfaces.ProgramInitialized, error) {
	var event interfaces.ProgramInitialized
	if err := c.mutate(ctx, http.MethodPost, api.InitializePath, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *RegistryClient) RecordScore(ctx context.Context, args interfaces.RecordScoreArgs) (*interfaces.ScoreRecorded, error) {
	body := api.RecordScoreRequest{Score: args.Score, Grade: args.Grade, Metadata: args.Metadata}
	var event interfaces.ScoreRecorded
	if err := c.mutate(ctx, http.MethodPost, scorePath(args.Wallet), body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *RegistryClient) TransferAuthority(ctx context.Context, newAuthority interfaces.Identity) (*interfaces.AuthorityTransferred, error) {
	body := api.TransferAuthorityRequest{NewAuthority: newAuthority}
	var event interfaces.AuthorityTransferred
	if err := c.mutate(ctx, http.MethodPost, api.AuthorityPath, body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *RegistryClient) AddAgent(ctx context.Context, agent interfaces.Identity) (*interfaces.AgentAdded, error) {
	var event interfaces.AgentAdded
	if err := c.mutate(ctx, http.MethodPost, agentPath(agent), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *RegistryClient) RemoveAgent(ctx context.Context, agent interfaces.Identity) (*interfaces.AgentRemoved, error) {
	var event interfaces.AgentRemoved
	if err := c.mutate(ctx, http.MethodDelete, agentPath(agent), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *RegistryClient) Config(ctx context.Context) (*interfaces.RegistryConfig, error) {
	var config interfaces.RegistryConfig
	if err := c.do(ctx, http.MethodGet, api.ConfigPath, nil, false, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *RegistryClient) Score(ctx context.Context, wallet interfaces.Identity) (*interfaces.ScoreRecord, error) {
	var record interfaces.ScoreRecord
	if err := c.do(ctx, http.MethodGet, scorePath(wallet), nil, false, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *RegistryClient) Agent(ctx context.Context, agent interfaces.Identity) (*interfaces.AgentRecord, error) {
	var record interfaces.AgentRecord
	if err := c.do(ctx, http.MethodGet, agentPath(agent), nil, false, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// BatchScores looks up several wallets, given as hex, in one request.
// Per-wallet failures are reported in the results, not as an error.
func (c *RegistryClient) BatchScores(ctx context.Context, wallets []string) ([]api.BatchScoreResult, error) {
	var resp api.BatchScoresResponse
	if err := c.do(ctx, http.MethodPost, api.BatchScoresPath, api.BatchScoresRequest{Wallets: wallets}, false, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *RegistryClient) Compare(ctx context.Context, first, second interfaces.Identity) (*interfaces.ScoreComparison, error) {
	query := url.Values{}
	query.Set("first", first.String())
	query.Set("second", second.String())
	var comparison interfaces.ScoreComparison
	if err := c.do(ctx, http.MethodGet, api.ComparePath+"?"+query.Encode(), nil, false, &comparison); err != nil {
		return nil, err
	}
	return &comparison, nil
}

// Leaderboard returns up to limit records, every record when limit is zero.
func (c *RegistryClient) Leaderboard(ctx context.Context, limit int) ([]interfaces.ScoreRecord, error) {
	path := api.LeaderboardPath
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp api.LeaderboardResponse
	if err := c.do(ctx, http.MethodGet, path, nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Events returns up to limit events after since, together with the sequence
// number of the latest event.
func (c *RegistryClient) Events(ctx context.Context, since uint64, limit int) ([]events.Envelope, uint64, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatUint(since, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp api.EventsResponse
	if err := c.do(ctx, http.MethodGet, api.EventsPath+"?"+query.Encode(), nil, false, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Events, resp.LastSeq, nil
}

// mutate performs a signed request and decodes the event of the response.
func (c *RegistryClient) mutate(ctx context.Context, method, path string, body any, event interfaces.Event) error {
	var resp struct {
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}
	if err := c.do(ctx, method, path, body, true, &resp); err != nil {
		return err
	}
	if resp.Type != event.EventType() {
		return fmt.Errorf("unexpected event type %q, expected %q", resp.Type, event.EventType())
	}
	if err := json.Unmarshal(resp.Event, event); err != nil {
		return fmt.Errorf("could not parse %s event: %w", resp.Type, err)
	}
	return nil
}

func (c *RegistryClient) do(ctx context.Context, method, path string, body any, sign bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if sign {
		if c.privateKey == nil {
			return ErrNoSigningKey
		}
		if err := cryptoutils.SignRequest(req, c.privateKey); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &api.APIError{StatusCode: resp.StatusCode, Code: api.CodeInternal, Message: "unreadable response"}
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Code == "" {
		return &api.APIError{StatusCode: resp.StatusCode, Code: api.CodeInternal, Message: strings.TrimSpace(string(bodyBytes))}
	}
	return &api.APIError{StatusCode: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
}

func scorePath(wallet interfaces.Identity) string {
	return strings.Replace(api.ScorePath, "{wallet}", wallet.String(), 1)
}

func agentPath(agent interfaces.Identity) string {
	return strings.Replace(api.AgentPath, "{agent}", agent.String(), 1)
}
