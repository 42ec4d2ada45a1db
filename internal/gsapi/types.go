package gsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Fault codes reported in the "fault" object of a response body.
const (
	FaultFetchingToken  = 0
	FaultMustBeLoggedIn = 8
	FaultMaintenance    = 10
	FaultInvalidSession = 16
	FaultInvalidToken   = 256
	FaultRateLimited    = 512
	FaultInvalidClient  = 1024
)

// ErrMalformedResponse marks a body that is not a result/fault envelope.
var ErrMalformedResponse = errors.New("gsapi: malformed response")

// Param is one named request parameter.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered parameter list. It encodes as a JSON object whose keys
// keep their insertion order.
type Params []Param

// Get returns the first value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.writeObject(&buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p Params) writeObject(buf *bytes.Buffer, tail *Param) error {
	buf.WriteByte('{')
	write := func(i int, kv Param) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return fmt.Errorf("encode param %q: %w", kv.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}
	for i, kv := range p {
		if err := write(i, kv); err != nil {
			return err
		}
	}
	if tail != nil {
		if err := write(len(p), *tail); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// ParseParams decodes a JSON object into Params, keeping key order. Empty
// input yields nil.
func ParseParams(data []byte) (Params, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parse params: want a JSON object")
	}

	var out Params
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse params %q: %w", key, err)
		}
		out = append(out, Param{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse params: trailing data")
	}
	return out, nil
}

// Header identifies the client and carries the signed token. It travels
// inside the parameters object of every request.
type Header struct {
	Client         string          `json:"client"`
	ClientRevision int             `json:"clientRevision"`
	Token          string          `json:"token"`
	Country        json.RawMessage `json:"country"`
	Session        string          `json:"session"`
	Privacy        int             `json:"privacy"`
	UUID           string          `json:"uuid"`
}

// Envelope is a complete request body.
type Envelope struct {
	Method     string
	Parameters Params
	Header     Header
}

// MarshalJSON encodes {"method": m, "parameters": {..., "header": {...}}}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	header := e.Header
	if len(header.Country) == 0 {
		header.Country = json.RawMessage("{}")
	}

	var buf bytes.Buffer
	method, err := json.Marshal(e.Method)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"method":`)
	buf.Write(method)
	buf.WriteString(`,"parameters":`)
	if err := e.Parameters.writeObject(&buf, &Param{Key: "header", Value: header}); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fault is a protocol-level error delivered inside an HTTP 200 body.
type Fault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a decoded response body. Exactly one of Result or Fault is set.
type Response struct {
	Result json.RawMessage `json:"result"`
	Fault  *Fault          `json:"fault"`
}

// DecodeResponse parses a raw response body.
func DecodeResponse(body []byte) (Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if f, ok := raw["fault"]; ok && !isEmpty(f) {
		var fault Fault
		if err := json.Unmarshal(f, &fault); err != nil {
			return Response{}, fmt.Errorf("%w: fault: %v", ErrMalformedResponse, err)
		}
		return Response{Fault: &fault}, nil
	}
	result, ok := raw["result"]
	if !ok {
		return Response{}, fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}
	return Response{Result: result}, nil
}

// isEmpty treats null and {} as "no fault".
func isEmpty(raw json.RawMessage) bool {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return false
	}
	s := compact.String()
	return s == "" || s == "null" || s == "{}"
}
