package gsapi

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParams_MarshalPreservesOrder(t *testing.T) {
	p := Params{{Key: "z", Value: 1}, {Key: "a", Value: "x"}, {Key: "m", Value: false}}
	got, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(got) != `{"z":1,"a":"x","m":false}` {
		t.Fatalf("Marshal = %s", got)
	}

	if v, ok := p.Get("a"); !ok || v != "x" {
		t.Fatalf("Get(a) = (%v, %v), want (x, true)", v, ok)
	}
	if _, ok := p.Get("missing"); ok {
		t.Fatalf("Get(missing) ok = true, want false")
	}
}

func TestEnvelope_MarshalNestsHeaderLast(t *testing.T) {
	env := Envelope{
		Method:     "getCommunicationToken",
		Parameters: Params{{Key: "secretKey", Value: "abc"}},
		Header:     Header{Client: "htmlshark", ClientRevision: 20130520, Token: "t", Session: "s", UUID: "u"},
	}
	got, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	want := `{"method":"getCommunicationToken","parameters":{"secretKey":"abc","header":` +
		`{"client":"htmlshark","clientRevision":20130520,"token":"t","country":{},"session":"s","privacy":0,"uuid":"u"}}}`
	if string(got) != want {
		t.Fatalf("Marshal =\n%s\nwant\n%s", got, want)
	}
}

func TestEnvelope_MarshalReportsBadParam(t *testing.T) {
	env := Envelope{Method: "m", Parameters: Params{{Key: "ch", Value: make(chan int)}}}
	if _, err := json.Marshal(env); err == nil {
		t.Fatalf("Marshal returned nil error, want unsupported type error")
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantFault int
		hasFault  bool
		result    string
		malformed bool
	}{
		{name: "result", body: `{"result":{"userID":7}}`, result: `{"userID":7}`},
		{name: "null fault ignored", body: `{"fault":null,"result":"s"}`, result: `"s"`},
		{name: "empty fault ignored", body: `{"fault":{},"result":"s"}`, result: `"s"`},
		{name: "fault", body: `{"fault":{"code":256,"message":"invalid token"}}`, hasFault: true, wantFault: FaultInvalidToken},
		{name: "not json", body: `<html>`, malformed: true},
		{name: "no result", body: `{"other":1}`, malformed: true},
		{name: "bad fault", body: `{"fault":"oops"}`, malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tt.body))
			if tt.malformed {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("err = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResponse returned error: %v", err)
			}
			if tt.hasFault {
				if resp.Fault == nil || resp.Fault.Code != tt.wantFault {
					t.Fatalf("Fault = %#v, want code %d", resp.Fault, tt.wantFault)
				}
				return
			}
			if resp.Fault != nil {
				t.Fatalf("Fault = %#v, want nil", resp.Fault)
			}
			if string(resp.Result) != tt.result {
				t.Fatalf("Result = %s, want %s", resp.Result, tt.result)
			}
		})
	}
}

func TestParseParams_KeepsOrderAndValues(t *testing.T) {
	p, err := ParseParams([]byte(` {"zeta": 1, "alpha": {"x": [1,2]}, "mid": "s"} `))
	if err != nil {
		t.Fatalf("ParseParams returned error: %v", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(data), `{"zeta":1,"alpha":{"x":[1,2]},"mid":"s"}`; got != want {
		t.Fatalf("round trip = %s, want %s", got, want)
	}
}

func TestParseParams_EmptyAndInvalid(t *testing.T) {
	if p, err := ParseParams([]byte("  ")); err != nil || p != nil {
		t.Fatalf("ParseParams(empty) = %v, %v, want nil, nil", p, err)
	}
	for _, in := range []string{`[1,2]`, `{"a":}`, `{"a":1} {"b":2}`, `"x"`} {
		if _, err := ParseParams([]byte(in)); err == nil {
			t.Fatalf("ParseParams(%s) returned nil error", in)
		}
	}
}
