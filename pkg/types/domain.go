package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ModelDescriptor describes a local model directory parsed from its model.json manifest.
type ModelDescriptor struct {
	// Model name, taken from the manifest or the directory name.
	// example: animatediff-v3
	Name string `json:"name" example:"animatediff-v3"`
	// Absolute path to the model directory.
	// example: /home/user/ovid/models/animatediff-v3
	Path string `json:"path" example:"/home/user/ovid/models/animatediff-v3"`
	// Pipeline kind used to dispatch generation.
	// example: animatediff
	Pipeline string `json:"pipeline" example:"animatediff"`
	// Remaining manifest keys in declaration order, never "name" or "pipeline".
	Extra Extra `json:"extra"`
}

// RemoteFile is one downloadable artifact of a remote model bundle.
type RemoteFile struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
	// Path relative to the model's target directory.
	Path string `json:"path"`
}

// RemoteModel is a downloadable model bundle declared by the registry catalog.
type RemoteModel struct {
	Name  string       `json:"name"`
	Dir   string       `json:"dir"`
	Files []RemoteFile `json:"files"`
}

// Extra is an insertion-ordered mapping of manifest keys to arbitrary JSON values.
// The zero value is an empty mapping ready to use.
type Extra struct {
	keys   []string
	values map[string]any
}

// Set stores v under key. Re-setting a key keeps its original position.
func (e *Extra) Set(key string, v any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = v
}

// Get returns the value stored under key.
func (e Extra) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// String returns the value under key when it is a non-empty JSON string.
func (e Extra) String(key string) (string, bool) {
	v, ok := e.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Has reports whether key is present.
func (e Extra) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (e Extra) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Len returns the number of entries.
func (e Extra) Len() int { return len(e.keys) }

// MarshalJSON encodes the mapping as a JSON object preserving key order.
func (e Extra) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, fmt.Errorf("extra %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys.
func (e *Extra) UnmarshalJSON(data []byte) error {
	*e = Extra{}
	return DecodeObject(data, func(key string, raw json.RawMessage) error {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		e.Set(key, v)
		return nil
	})
}

// DecodeObject walks the top-level JSON object in data and calls fn for every
// member in document order. It fails when data is not a single JSON object.
func DecodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}
