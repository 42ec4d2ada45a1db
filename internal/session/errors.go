package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/five82/gsclient/internal/gsapi"
)

var (
	ErrTransportTimeout = errors.New("session: transport timeout")
	ErrHTTP             = errors.New("session: http error")
	ErrParse            = errors.New("session: parse error")
	ErrInvalidToken     = errors.New("session: invalid communication token")
	ErrInvalidSession   = errors.New("session: invalid session")
	ErrMustBeLoggedIn   = errors.New("session: must be logged in")
	ErrCancelled        = errors.New("session: request cancelled")
	ErrRateLimited      = errors.New("session: rate limited")
	ErrMaintenance      = errors.New("session: service under maintenance")
	ErrInvalidClient    = errors.New("session: invalid client")
	ErrProtocolFault    = errors.New("session: protocol fault")

	// ErrWaitTimeout is returned by Await when the ceiling passes first. The
	// request itself keeps running.
	ErrWaitTimeout = errors.New("session: wait ceiling reached")
)

// FaultError is a protocol fault reported by the server. It unwraps to one of
// the session error kinds.
type FaultError struct {
	Kind    error
	Code    int
	Message string
}

func (e *FaultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (fault %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("%v (fault %d): %s", e.Kind, e.Code, e.Message)
}

func (e *FaultError) Unwrap() error {
	return e.Kind
}

func faultKind(code int) error {
	switch code {
	case gsapi.FaultInvalidToken:
		return ErrInvalidToken
	case gsapi.FaultInvalidSession, gsapi.FaultFetchingToken:
		return ErrInvalidSession
	case gsapi.FaultMustBeLoggedIn:
		return ErrMustBeLoggedIn
	case gsapi.FaultRateLimited:
		return ErrRateLimited
	case gsapi.FaultMaintenance:
		return ErrMaintenance
	case gsapi.FaultInvalidClient:
		return ErrInvalidClient
	default:
		return ErrProtocolFault
	}
}

// classify turns a raw transport outcome into either the result payload or a
// typed error.
func classify(body []byte, status int, transportErr error) (json.RawMessage, error) {
	if transportErr != nil {
		if errors.Is(transportErr, gsapi.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTransportTimeout, transportErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrHTTP, transportErr)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrHTTP, status)
	}
	resp, err := gsapi.DecodeResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if resp.Fault != nil {
		return nil, &FaultError{Kind: faultKind(resp.Fault.Code), Code: resp.Fault.Code, Message: resp.Fault.Message}
	}
	return resp.Result, nil
}

// outcomeLabel names err for metrics and logs.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrTransportTimeout):
		return "timeout"
	case errors.Is(err, ErrHTTP):
		return "http_error"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrInvalidSession):
		return "invalid_session"
	case errors.Is(err, ErrMustBeLoggedIn):
		return "must_be_logged_in"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMaintenance):
		return "maintenance"
	case errors.Is(err, ErrInvalidClient):
		return "invalid_client"
	default:
		return "fault"
	}
}
