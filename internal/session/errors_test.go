package session

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/five82/gsclient/internal/gsapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		err        error
		want       error
		wantResult string
	}{
		{name: "result", body: `{"result":{"a":1}}`, status: http.StatusOK, wantResult: `{"a":1}`},
		{name: "null result", body: `{"result":null}`, status: http.StatusOK, wantResult: `null`},
		{name: "empty fault ignored", body: `{"fault":{},"result":3}`, status: http.StatusOK, wantResult: `3`},
		{name: "timeout", err: fmt.Errorf("wrapped: %w", gsapi.ErrTimeout), want: ErrTransportTimeout},
		{name: "transport", err: errors.New("connection refused"), want: ErrHTTP},
		{name: "status", body: `{"result":1}`, status: http.StatusBadGateway, want: ErrHTTP},
		{name: "garbage", body: `<html>`, status: http.StatusOK, want: ErrParse},
		{name: "missing result", body: `{"header":{}}`, status: http.StatusOK, want: ErrParse},
		{name: "fetching token", body: `{"fault":{"code":0}}`, status: http.StatusOK, want: ErrInvalidSession},
		{name: "must be logged in", body: `{"fault":{"code":8}}`, status: http.StatusOK, want: ErrMustBeLoggedIn},
		{name: "maintenance", body: `{"fault":{"code":10}}`, status: http.StatusOK, want: ErrMaintenance},
		{name: "invalid session", body: `{"fault":{"code":16}}`, status: http.StatusOK, want: ErrInvalidSession},
		{name: "invalid token", body: `{"fault":{"code":256}}`, status: http.StatusOK, want: ErrInvalidToken},
		{name: "rate limited", body: `{"fault":{"code":512}}`, status: http.StatusOK, want: ErrRateLimited},
		{name: "invalid client", body: `{"fault":{"code":1024}}`, status: http.StatusOK, want: ErrInvalidClient},
		{name: "unknown code", body: `{"fault":{"code":4096,"message":"?"}}`, status: http.StatusOK, want: ErrProtocolFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classify([]byte(tt.body), tt.status, tt.err)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("classify err = %v, want nil", err)
				}
				if string(result) != tt.wantResult {
					t.Fatalf("result = %s, want %s", result, tt.wantResult)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("classify err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFaultError_CarriesCodeAndMessage(t *testing.T) {
	_, err := classify([]byte(`{"fault":{"code":512,"message":"slow down"}}`), http.StatusOK, nil)

	var fe *FaultError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %#v, want *FaultError", err)
	}
	if fe.Code != 512 || fe.Message != "slow down" {
		t.Fatalf("fault = %+v, want code 512 with message", fe)
	}
	if got := err.Error(); got != "session: rate limited (fault 512): slow down" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestOutcomeLabel(t *testing.T) {
	cases := map[string]error{
		"ok":                nil,
		"cancelled":         ErrCancelled,
		"timeout":           fmt.Errorf("%w: x", ErrTransportTimeout),
		"invalid_token":     &FaultError{Kind: ErrInvalidToken, Code: 256},
		"must_be_logged_in": &FaultError{Kind: ErrMustBeLoggedIn, Code: 8},
		"fault":             &FaultError{Kind: ErrProtocolFault, Code: 3},
	}
	for want, err := range cases {
		if got := outcomeLabel(err); got != want {
			t.Fatalf("outcomeLabel(%v) = %q, want %q", err, got, want)
		}
	}
}
