package kvs

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

// Class tags every error this module returns, so callers can grep log lines
// back to their origin regardless of which Kind produced them.
var Class = errs.Class("kvs")

// Kind classifies a failure the way the wire protocol and the engine
// contract need to distinguish it, independent of any particular Go error
// value's identity.
type Kind int

const (
	// KindUnknown is the zero value; never intentionally returned.
	KindUnknown Kind = iota
	// KindKeyNotFound means remove was called on a key with no live entry.
	KindKeyNotFound
	// KindIO means the underlying file or network I/O failed.
	KindIO
	// KindCodec means a record or wire message failed to encode/decode.
	KindCodec
	// KindProtocol means a wire frame was well-formed JSON but violated the
	// request/response contract (e.g. a correlation id mismatch).
	KindProtocol
	// KindEngineInternal means an invariant the engine relies on was
	// violated, such as the index pointing at a Remove record.
	KindEngineInternal
)

func (k Kind) String() string {
	switch k {
	case KindKeyNotFound:
		return "key_not_found"
	case KindIO:
		return "io"
	case KindCodec:
		return "codec"
	case KindProtocol:
		return "protocol"
	case KindEngineInternal:
		return "engine_internal"
	default:
		return "unknown"
	}
}

// Err is the concrete error type returned by every exported operation in
// this module. It carries a Kind for programmatic dispatch and wraps the
// underlying cause, if any, for errors.Is/errors.As chains.
type Err struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Err) Error() string {
	if e.Err != nil {
		return Class.New("%s: %s: %v", e.Op, e.Kind, e.Err).Error()
	}
	return Class.New("%s: %s", e.Op, e.Kind).Error()
}

func (e *Err) Unwrap() error { return e.Err }

// newErr constructs an *Err, preserving Kind if cause is already one so
// wrapping a kvs error doesn't erase its classification.
func newErr(op string, kind Kind, cause error) *Err {
	var existing *Err
	if errors.As(cause, &existing) {
		kind = existing.Kind
	}
	return &Err{Kind: kind, Op: op, Err: cause}
}

// ErrKeyNotFound reports whether err (or any error it wraps) is a
// key-not-found failure.
func ErrKeyNotFound(err error) bool {
	return KindOf(err) == KindKeyNotFound
}

// KindOf extracts the Kind carried by err, or KindUnknown if err is nil or
// was not produced by this module.
func KindOf(err error) Kind {
	var e *Err
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return KindUnknown
	}
	return KindUnknown
}

func keyNotFoundErr(op, key string) *Err {
	return &Err{Kind: KindKeyNotFound, Op: op, Err: fmt.Errorf("key not found: %q", key)}
}

func ioErr(op string, cause error) *Err {
	return newErr(op, KindIO, cause)
}

func codecErr(op string, cause error) *Err {
	return newErr(op, KindCodec, cause)
}

func protocolErr(op string, cause error) *Err {
	return newErr(op, KindProtocol, cause)
}

func internalErr(op string, cause error) *Err {
	return newErr(op, KindEngineInternal, cause)
}

// NewKeyNotFoundError builds a classified error for a remove against a key
// with no live binding, for use by Engine implementations outside this
// package (e.g. engine/boltengine).
func NewKeyNotFoundError(op, key string) error { return keyNotFoundErr(op, key) }

// NewIOError classifies cause as an I/O failure.
func NewIOError(op string, cause error) error { return ioErr(op, cause) }

// NewCodecError classifies cause as a serialization/deserialization failure.
func NewCodecError(op string, cause error) error { return codecErr(op, cause) }

// NewProtocolError classifies cause as a wire-protocol violation.
func NewProtocolError(op string, cause error) error { return protocolErr(op, cause) }

// NewEngineInternalError classifies cause as an invariant violation.
func NewEngineInternalError(op string, cause error) error { return internalErr(op, cause) }
