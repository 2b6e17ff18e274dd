package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key of a JSON object.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Object is a JSON object decoded with its key order intact. Route and day
// keys are positional on the wire, so a Go map would lose information.
type Object []Field

func (o *Object) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*o = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode object: expected '{', got %v", tok)
	}

	out := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode object: unexpected key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode object value %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	*o = out
	return nil
}

// Get returns the raw value of the first present key.
func (o Object) Get(keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		for _, f := range o {
			if f.Key == key && !isNull(f.Value) {
				return f.Value, true
			}
		}
	}
	return nil, false
}

// String returns the first present key decoded as text.
func (o Object) String(keys ...string) string {
	raw, ok := o.Get(keys...)
	if !ok {
		return ""
	}
	var t Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return string(t)
}

// Number returns the first present key decoded as a number.
func (o Object) Number(keys ...string) Number {
	raw, ok := o.Get(keys...)
	if !ok {
		return 0
	}
	var n Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}
