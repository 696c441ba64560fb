// Package protocol implements the self-delimiting JSON wire framing shared
// by the server and client: one JSON document per request, one per
// response, no length prefix, no pipelining.
package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// Command is the tagged-union request payload: exactly one of Get, Set, or
// Rm is set.
type Command struct {
	Get *GetCommand `json:"Get,omitempty"`
	Set *SetCommand `json:"Set,omitempty"`
	Rm  *RmCommand  `json:"Rm,omitempty"`
}

// GetCommand requests the value bound to Key.
type GetCommand struct {
	Key string `json:"key"`
}

// SetCommand requests that Key be bound to Value.
type SetCommand struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RmCommand requests that Key be removed.
type RmCommand struct {
	Key string `json:"key"`
}

// NewGet builds a Get command.
func NewGet(key string) Command { return Command{Get: &GetCommand{Key: key}} }

// NewSet builds a Set command.
func NewSet(key, value string) Command { return Command{Set: &SetCommand{Key: key, Value: value}} }

// NewRm builds a Rm command.
func NewRm(key string) Command { return Command{Rm: &RmCommand{Key: key}} }

// Request is one client-issued, server-dispatched call, correlated by Id.
type Request struct {
	ID      uint64  `json:"id"`
	Command Command `json:"command"`
}

// Result is the tagged-union response payload. Exactly one of Success or Err
// is present on the wire; Success itself may be present with a JSON null
// (absent key on Get, or success of Set/Remove) or a string value (Get hit).
// That "present but null" vs "absent" distinction can't be expressed with
// plain omitempty tags, so Result implements custom JSON marshaling.
type Result struct {
	// HasSuccess is true when the wire value was {"Success": ...}.
	HasSuccess bool
	// Success holds the value for a successful Get hit; nil for Get misses
	// and for Set/Remove successes.
	Success *string
	// Err holds the message when the wire value was {"Err": "..."}.
	Err *string
}

// OkNone is {"Success": null}: Set/Remove success, or Get over an absent key.
func OkNone() Result { return Result{HasSuccess: true} }

// OkValue is {"Success": "value"}: a Get hit.
func OkValue(v string) Result { return Result{HasSuccess: true, Success: &v} }

// ErrMsg is {"Err": "message"}.
func ErrMsg(msg string) Result { return Result{Err: &msg} }

// IsErr reports whether r represents {"Err": ...}.
func (r Result) IsErr() bool { return !r.HasSuccess && r.Err != nil }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.HasSuccess {
		return json.Marshal(struct {
			Success *string `json:"Success"`
		}{Success: r.Success})
	}
	msg := ""
	if r.Err != nil {
		msg = *r.Err
	}
	return json.Marshal(struct {
		Err string `json:"Err"`
	}{Err: msg})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if successRaw, ok := raw["Success"]; ok {
		r.HasSuccess = true
		r.Err = nil
		if string(successRaw) == "null" {
			r.Success = nil
			return nil
		}
		var s string
		if err := json.Unmarshal(successRaw, &s); err != nil {
			return err
		}
		r.Success = &s
		return nil
	}

	if errRaw, ok := raw["Err"]; ok {
		var msg string
		if err := json.Unmarshal(errRaw, &msg); err != nil {
			return err
		}
		r.HasSuccess = false
		r.Success = nil
		r.Err = &msg
		return nil
	}

	return fmt.Errorf("protocol: result has neither Success nor Err key: %s", data)
}

// Response is the server's answer to a Request with the matching Id.
type Response struct {
	ID     uint64 `json:"id"`
	Result Result `json:"response"`
}

// Encoder writes self-delimiting JSON documents to an underlying writer,
// flushing (if the writer supports it) is the caller's responsibility.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder wraps w for writing framed messages.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// EncodeRequest writes req as one JSON document.
func (e *Encoder) EncodeRequest(req Request) error { return e.enc.Encode(req) }

// EncodeResponse writes resp as one JSON document.
func (e *Encoder) EncodeResponse(resp Response) error { return e.enc.Encode(resp) }

// Decoder reads self-delimiting JSON documents from an underlying reader.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder wraps r for reading framed messages.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// DecodeRequest reads the next request document.
func (d *Decoder) DecodeRequest() (Request, error) {
	var req Request
	err := d.dec.Decode(&req)
	return req, err
}

// DecodeResponse reads the next response document.
func (d *Decoder) DecodeResponse() (Response, error) {
	var resp Response
	err := d.dec.Decode(&resp)
	return resp, err
}
