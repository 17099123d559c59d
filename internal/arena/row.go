package arena

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is one record of a query result. Keys keep the order in which the
// backend serialized them, so the first row decides the column order.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from alternating key/value pairs.
func NewRow(pairs ...any) Row {
	r := Row{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

// Keys returns the column names in wire order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value for key and whether it was present.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.keys) }

// Set assigns key, appending it to the key order when new.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// UnmarshalJSON decodes a JSON object while recording key order.
// Numbers are kept as json.Number so large integers print exactly.
func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", tok)
	}

	*r = Row{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row value for %q: %w", key, err)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the row as an object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
