package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/reputation-registry/api"
	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/ruteri/reputation-registry/metrics"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Code is the ErrorResponse code, api.CodeBadRequest when empty.
	Code string

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Code: api.CodeBadRequest, Err: fmt.Errorf(format, args...)}
}

// bodyError reports an oversized body as 413 and anything else as a bad request.
func bodyError(err error) *RequestError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Code: api.CodeBodyTooLarge, Err: err}
	}
	return badRequest("invalid request body: %v", err)
}

// EventSource is the read side of the event log.
type EventSource interface {
	Since(seq uint64, limit int) []events.Envelope
	LastSeq() uint64
}

// Handler processes HTTP requests for the reputation registry. Mutating
// requests are authenticated with a cryptoutils.Verifier and the recovered
// identity is passed to the registry as the caller.
type Handler struct {
	registry    interfaces.ScoreRegistry
	events      EventSource
	metrics     *metrics.APIMetrics
	verifier    *cryptoutils.Verifier
	maxBodySize int64
	log         *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithVerifier replaces the default request verifier.
func WithVerifier(v *cryptoutils.Verifier) Option {
	return func(h *Handler) {
		h.verifier = v
	}
}

// WithMaxBodySize limits request bodies to n bytes.
func WithMaxBodySize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
//
// Parameters:
//   - registry: The registry operations are dispatched to
//   - eventSource: The event log served by HandleEvents
//   - apiMetrics: Request counters, may be nil
//   - log: Structured logger for operational insights
//
// Without options requests are verified with cryptoutils.DefaultFreshnessWindow
// and bodies are limited to api.MaxBodySize.
func NewHandler(registry interfaces.ScoreRegistry, eventSource EventSource, apiMetrics *metrics.APIMetrics, log *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry:    registry,
		events:      eventSource,
		metrics:     apiMetrics,
		maxBodySize: api.MaxBodySize,
		log:         log,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.verifier == nil {
		h.verifier = cryptoutils.NewVerifier(cryptoutils.DefaultFreshnessWindow)
	}
	return h
}

// RegisterRoutes mounts every registry route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(api.InitializePath, h.HandleInitialize)
	r.Post(api.ScorePath, h.HandleRecordScore)
	r.Get(api.ScorePath, h.HandleScore)
	r.Post(api.AuthorityPath, h.HandleTransferAuthority)
	r.Post(api.AgentPath, h.HandleAddAgent)
	r.Delete(api.AgentPath, h.HandleRemoveAgent)
	r.Get(api.AgentPath, h.HandleAgent)
	r.Get(api.ConfigPath, h.HandleConfig)
	r.Get(api.LeaderboardPath, h.HandleLeaderboard)
	r.Get(api.EventsPath, h.HandleEvents)
	r.Post(api.BatchScoresPath, h.HandleBatchScores)
	r.Get(api.ComparePath, h.HandleCompare)
}

// HandleInitialize creates the registry with the caller as authority.
//
// URL format: POST /api/v1/initialize
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	const op = "initialize"
	caller, ok := h.authenticate(w, r, op)
	if !ok {
		return
	}

	event, err := h.registry.Initialize(r.Context(), caller)
	if err != nil {
		h.writeError(w, op, err, "caller", caller)
		return
	}
	h.writeEvent(w, op, event)
}

// scoreBody is decoded with a wide score type so that out-of-range values
// surface as ErrScoreOutOfRange instead of a decoding error.
type scoreBody struct {
	Score    *int64 `json:"score"`
	Grade    string `json:"grade"`
	Metadata string `json:"metadata"`
}

// HandleRecordScore creates or updates a wallet's score.
//
// URL format: POST /api/v1/scores/{wallet}
// Request body: {"score": 0-1000, "grade": "A", "metadata": "..."}
func (h *Handler) HandleRecordScore(w http.ResponseWriter, r *http.Request) {
	const op = "record_score"
	wallet, err := identityParam(r, "wallet")
	if err != nil {
		h.writeError(w, op, err)
		return
	}

	caller, ok := h.authenticate(w, r, op)
	if !ok {
		return
	}

	var body scoreBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, op, err)
		return
	}
	if body.Score == nil {
		h.writeError(w, op, badRequest("score is required"))
		return
	}
	if *body.Score < 0 {
		h.writeError(w, op, badRequest("score must not be negative"))
		return
	}
	if *body.Score > int64(interfaces.MaxScore) {
		h.writeError(w, op, fmt.Errorf("%w: got %d", interfaces.ErrScoreOutOfRange, *body.Score))
		return
	}

	event, err := h.registry.RecordScore(r.Context(), caller, interfaces.RecordScoreArgs{
		Wallet:   wallet,
		Score:    uint16(*body.Score),
		Grade:    body.Grade,
		Metadata: body.Metadata,
	})
	if err != nil {
		h.writeError(w, op, err, "caller", caller, "wallet", wallet)
		return
	}
	h.writeEvent(w, op, event)
}

// HandleTransferAuthority hands the authority to another identity.
//
// URL format: POST /api/v1/authority
// Request body: {"new_authority": "0x..."}
func (h *Handler) HandleTransferAuthority(w http.ResponseWriter, r *http.Request) {
	const op = "transfer_authority"
	caller, ok := h.authenticate(w, r, op)
	if !ok {
		return
	}

	var body struct {
		NewAuthority *interfaces.Identity `json:"new_authority"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, op, err)
		return
	}
	if body.NewAuthority == nil {
		h.writeError(w, op, badRequest("new_authority is required"))
		return
	}

	event, err := h.registry.TransferAuthority(r.Context(), caller, *body.NewAuthority)
	if err != nil {
		h.writeError(w, op, err, "caller", caller)
		return
	}
	h.writeEvent(w, op, event)
}

// HandleAddAgent registers an active agent.
//
// URL format: POST /api/v1/agents/{agent}
func (h *Handler) HandleAddAgent(w http.ResponseWriter, r *http.Request) {
	const op = "add_agent"
	agent, err := identityParam(r, "agent")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	caller, ok := h.authenticate(w, r, op)
	if !ok {
		return
	}

	event, err := h.registry.AddAgent(r.Context(), caller, agent)
	if err != nil {
		h.writeError(w, op, err, "caller", caller, "agent", agent)
		return
	}
	h.writeEvent(w, op, event)
}

// HandleRemoveAgent deactivates an agent.
//
// URL format: DELETE /api/v1/agents/{agent}
func (h *Handler) HandleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	const op = "remove_agent"
	agent, err := identityParam(r, "agent")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	caller, ok := h.authenticate(w, r, op)
	if !ok {
		return
	}

	event, err := h.registry.RemoveAgent(r.Context(), caller, agent)
	if err != nil {
		h.writeError(w, op, err, "caller", caller, "agent", agent)
		return
	}
	h.writeEvent(w, op, event)
}

// HandleConfig returns the registry config.
//
// URL format: GET /api/v1/config
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	const op = "config"
	config, err := h.registry.Config(r.Context())
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	h.writeJSON(w, op, http.StatusOK, config)
}

// HandleScore returns a wallet's score record.
//
// URL format: GET /api/v1/scores/{wallet}
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "score"
	wallet, err := identityParam(r, "wallet")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	record, err := h.registry.Score(r.Context(), wallet)
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	h.writeJSON(w, op, http.StatusOK, record)
}

// HandleAgent returns an agent record.
//
// URL format: GET /api/v1/agents/{agent}
func (h *Handler) HandleAgent(w http.ResponseWriter, r *http.Request) {
	const op = "agent"
	agent, err := identityParam(r, "agent")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	record, err := h.registry.Agent(r.Context(), agent)
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	h.writeJSON(w, op, http.StatusOK, record)
}

// HandleBatchScores looks up several wallets in one request. Malformed or
// unscored wallets get a per-wallet error instead of failing the batch.
//
// URL format: POST /api/v1/batch/scores
// Request body: {"wallets": ["0x...", ...]}
func (h *Handler) HandleBatchScores(w http.ResponseWriter, r *http.Request) {
	const op = "batch_scores"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var body api.BatchScoresRequest
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, op, err)
		return
	}
	if len(body.Wallets) == 0 || len(body.Wallets) > interfaces.MaxBatchSize {
		h.writeError(w, op, fmt.Errorf("%w: got %d", interfaces.ErrInvalidBatch, len(body.Wallets)))
		return
	}

	results := make([]api.BatchScoreResult, len(body.Wallets))
	var wallets []interfaces.Identity
	var positions []int
	for i, value := range body.Wallets {
		results[i].Wallet = value
		wallet, err := interfaces.NewIdentityFromHex(value)
		if err != nil {
			results[i].Code = api.CodeBadRequest
			results[i].Error = fmt.Sprintf("invalid wallet: %v", err)
			continue
		}
		wallets = append(wallets, wallet)
		positions = append(positions, i)
	}

	if len(wallets) > 0 {
		records, err := h.registry.Scores(r.Context(), wallets)
		if err != nil {
			h.writeError(w, op, err)
			return
		}
		for j, record := range records {
			result := &results[positions[j]]
			if record == nil {
				result.Code = api.CodeNotFound
				result.Error = "no score recorded"
				continue
			}
			result.Record = record
		}
	}

	h.writeJSON(w, op, http.StatusOK, api.BatchScoresResponse{Results: results, Count: len(results)})
}

// HandleCompare returns two wallets' records side by side.
//
// URL format: GET /api/v1/compare?first=0x...&second=0x...
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "compare"
	first, err := identityQuery(r, "first")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	second, err := identityQuery(r, "second")
	if err != nil {
		h.writeError(w, op, err)
		return
	}

	comparison, err := h.registry.Compare(r.Context(), first, second)
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	h.writeJSON(w, op, http.StatusOK, comparison)
}

// HandleLeaderboard returns the highest scores.
//
// URL format: GET /api/v1/leaderboard?limit=N
// Without limit every record is returned.
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "leaderboard"
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	records, err := h.registry.Leaderboard(r.Context(), int(limit))
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	if records == nil {
		records = []interfaces.ScoreRecord{}
	}
	h.writeJSON(w, op, http.StatusOK, api.LeaderboardResponse{Records: records})
}

// HandleEvents returns events with a sequence number greater than since.
//
// URL format: GET /api/v1/events?since=SEQ&limit=N
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	const op = "events"
	since, err := intQuery(r, "since")
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.writeError(w, op, err)
		return
	}

	envs := h.events.Since(uint64(since), int(limit))
	if envs == nil {
		envs = []events.Envelope{}
	}
	h.writeJSON(w, op, http.StatusOK, api.EventsResponse{Events: envs, LastSeq: h.events.LastSeq()})
}

// authenticate limits the body size and recovers the caller from the
// request signature. On failure the response has been written.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, op string) (interfaces.Identity, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	caller, err := h.verifier.Verify(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, op, bodyError(err))
		} else {
			h.writeError(w, op, err)
		}
		return interfaces.Identity{}, false
	}
	return caller, true
}

func identityParam(r *http.Request, name string) (interfaces.Identity, error) {
	value := chi.URLParam(r, name)
	id, err := interfaces.NewIdentityFromHex(value)
	if err != nil {
		return interfaces.Identity{}, badRequest("invalid %s %q: %v", name, value, err)
	}
	return id, nil
}

func identityQuery(r *http.Request, name string) (interfaces.Identity, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return interfaces.Identity{}, badRequest("%s is required", name)
	}
	id, err := interfaces.NewIdentityFromHex(value)
	if err != nil {
		return interfaces.Identity{}, badRequest("invalid %s %q: %v", name, value, err)
	}
	return id, nil
}

func intQuery(r *http.Request, name string) (int64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s %q", name, value)
	}
	return n, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bodyError(err)
	}
	return nil
}

func (h *Handler) writeEvent(w http.ResponseWriter, op string, event interfaces.Event) {
	h.writeJSON(w, op, http.StatusOK, api.EventResponse{Type: event.EventType(), Event: event})
}

func (h *Handler) writeJSON(w http.ResponseWriter, op string, status int, v any) {
	h.metrics.ObserveRequest(op, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "operation", op, "err", err)
	}
}

// writeError maps err to a status code and writes an ErrorResponse.
// Server errors are logged at error level, rejected requests at debug level.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	var code string
	var status int

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		code, status = reqErr.Code, reqErr.StatusCode
		if code == "" {
			code = api.CodeBadRequest
		}
	} else {
		code, status = api.Classify(err)
	}

	logAttrs := append([]any{"operation", op, "code", code, "err", err}, attrs...)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", logAttrs...)
	} else {
		h.log.Debug("Request rejected", logAttrs...)
	}

	h.writeJSON(w, op, status, api.ErrorResponse{Code: code, Error: err.Error()})
}
