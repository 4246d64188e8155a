package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Document carries the free-form options attached to a cart line (engraving
// text, picked combo entries, ...). Content equality is defined by canonical
// serialization: two documents with the same keys and values are equal no
// matter the order the keys arrived in.
type Document map[string]any

// IsZero reports whether the document has no entries.
func (d Document) IsZero() bool {
	return len(d) == 0
}

// Canonical serializes the document deterministically: object keys sorted
// recursively, numbers rendered without exponent noise, no insignificant
// whitespace. The output is stable across processes and suitable for hashing.
func (d Document) Canonical() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return canonicalize(map[string]any(d))
}

func canonicalize(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if v {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case string:
		return json.Marshal(v)
	case json.Number:
		return canonicalNumber(v.String())
	case float64:
		return canonicalNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		return []byte(strconv.Itoa(v)), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case map[string]any:
		return canonicalObject(v)
	case Document:
		return canonicalObject(map[string]any(v))
	case []any:
		return canonicalArray(v)
	default:
		// Fall back to plain JSON for exotic values; re-decode so nested
		// maps/slices still get sorted.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var decoded any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, err
		}
		if _, again := decoded.(map[string]any); again {
			return canonicalize(decoded)
		}
		if _, again := decoded.([]any); again {
			return canonicalize(decoded)
		}
		return raw, nil
	}
}

func canonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := canonicalize(obj[k])
		if err != nil {
			return nil, fmt.Errorf("canonicalize key %q: %w", k, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Arrays inside option documents are selection sets, not sequences, so
// elements are ordered by their own canonical form.
func canonicalArray(arr []any) ([]byte, error) {
	encoded := make([]string, 0, len(arr))
	for i, item := range arr {
		itemJSON, err := canonicalize(item)
		if err != nil {
			return nil, fmt.Errorf("canonicalize index %d: %w", i, err)
		}
		encoded = append(encoded, string(itemJSON))
	}
	sort.Strings(encoded)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range encoded {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(item)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func canonicalNumber(s string) ([]byte, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return []byte(strconv.FormatInt(i, 10)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}
