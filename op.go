package kvs

import "encoding/json"

// Op is a single mutation record, the only unit ever appended to the log.
// It round-trips identically as both the on-disk and on-wire representation,
// encoded as {"Set":{"key":...,"value":...}} or {"Rm":{"key":...}}.
type Op struct {
	Set *SetOp `json:"Set,omitempty"`
	Rm  *RmOp  `json:"Rm,omitempty"`
}

// SetOp records a key being bound to a value.
type SetOp struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RmOp records a key being removed.
type RmOp struct {
	Key string `json:"key"`
}

// NewSetOp builds a Set record.
func NewSetOp(key, value string) Op {
	return Op{Set: &SetOp{Key: key, Value: value}}
}

// NewRmOp builds a Remove record.
func NewRmOp(key string) Op {
	return Op{Rm: &RmOp{Key: key}}
}

// IsSet reports whether op is a Set record.
func (op Op) IsSet() bool { return op.Set != nil }

// IsRm reports whether op is a Remove record.
func (op Op) IsRm() bool { return op.Rm != nil }

// Key returns the key named by op regardless of its variant.
func (op Op) Key() string {
	switch {
	case op.Set != nil:
		return op.Set.Key
	case op.Rm != nil:
		return op.Rm.Key
	default:
		return ""
	}
}

// Encode returns op's JSON encoding.
func (op Op) Encode() ([]byte, error) {
	return json.Marshal(op)
}
