package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/interfaces"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeScoreOutOfRange    = "score_out_of_range"
	CodeGradeTooLong       = "grade_too_long"
	CodeMetadataTooLong    = "metadata_too_long"
	CodeAgentNotActive     = "agent_not_active"
	CodeUnauthorized       = "unauthorized"
	CodeAlreadyInitialized = "already_initialized"
	CodeAlreadyExists      = "already_exists"
	CodeNotInitialized     = "not_initialized"
	CodeUpdateCountMax     = "update_count_exhausted"
	CodeAgentNotFound      = "agent_not_found"
	CodeNotFound           = "not_found"
	CodeInvalidBatch       = "invalid_batch"
	CodeInvalidSignature   = "invalid_signature"
	CodeStaleRequest       = "stale_request"
	CodeReplayedRequest    = "replayed_request"
	CodeBadRequest         = "bad_request"
	CodeBodyTooLarge       = "body_too_large"
	CodeInternal           = "internal"
)

type errorKind struct {
	code   string
	status int
	match  error
	errs   []error
}

// errorKinds is ordered: the first matching kind classifies an error.
var errorKinds = []errorKind{
	{CodeScoreOutOfRange, http.StatusBadRequest, interfaces.ErrScoreOutOfRange, []error{interfaces.ErrScoreOutOfRange}},
	{CodeGradeTooLong, http.StatusBadRequest, interfaces.ErrGradeTooLong, []error{interfaces.ErrGradeTooLong}},
	{CodeMetadataTooLong, http.StatusBadRequest, interfaces.ErrMetadataTooLong, []error{interfaces.ErrMetadataTooLong}},
	{CodeAgentNotActive, http.StatusForbidden, interfaces.ErrAgentNotActive, []error{interfaces.ErrUnauthorized, interfaces.ErrAgentNotActive}},
	{CodeUnauthorized, http.StatusForbidden, interfaces.ErrUnauthorized, []error{interfaces.ErrUnauthorized}},
	{CodeAlreadyInitialized, http.StatusConflict, interfaces.ErrAlreadyInitialized, []error{interfaces.ErrAlreadyInitialized}},
	{CodeAlreadyExists, http.StatusConflict, interfaces.ErrAlreadyExists, []error{interfaces.ErrAlreadyExists}},
	{CodeNotInitialized, http.StatusConflict, interfaces.ErrNotInitialized, []error{interfaces.ErrNotInitialized}},
	{CodeUpdateCountMax, http.StatusConflict, interfaces.ErrUpdateCountExhausted, []error{interfaces.ErrUpdateCountExhausted}},
	{CodeAgentNotFound, http.StatusNotFound, interfaces.ErrAgentNotFound, []error{interfaces.ErrAgentNotFound}},
	{CodeNotFound, http.StatusNotFound, interfaces.ErrNotFound, []error{interfaces.ErrNotFound}},
	{CodeInvalidBatch, http.StatusBadRequest, interfaces.ErrInvalidBatch, []error{interfaces.ErrInvalidBatch}},
	{CodeStaleRequest, http.StatusUnauthorized, cryptoutils.ErrStaleRequest, []error{cryptoutils.ErrStaleRequest}},
	{CodeReplayedRequest, http.StatusUnauthorized, cryptoutils.ErrReplayedRequest, []error{cryptoutils.ErrReplayedRequest}},
	{CodeInvalidSignature, http.StatusUnauthorized, cryptoutils.ErrMissingSignature, []error{cryptoutils.ErrMissingSignature}},
	{CodeInvalidSignature, http.StatusUnauthorized, cryptoutils.ErrInvalidSignature, []error{cryptoutils.ErrInvalidSignature}},
	{CodeInvalidSignature, http.StatusUnauthorized, cryptoutils.ErrSignatureMismatch, []error{cryptoutils.ErrSignatureMismatch}},
}

// Classify maps an error to its API code and HTTP status.
func Classify(err error) (code string, status int) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.match) {
			return kind.code, kind.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// APIError is a non-2xx response as seen by a client. It unwraps to the
// registry errors its code stands for, so errors.Is works across the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() []error {
	for _, kind := range errorKinds {
		if kind.code == e.Code && kind.code != CodeInvalidSignature {
			return kind.errs
		}
	}
	return nil
}
