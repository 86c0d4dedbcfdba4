// Package canonical converts JSON-like credential payloads into deterministic
// byte strings and hashes them. Two rule-sets coexist: STRICT is the signing
// source of truth for every newly generated proof; LEGACY_TOP_LEVEL exists
// solely to reproduce hashes computed before strict canonicalization was
// introduced and must never be used for generation.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	dErrors "attesto/pkg/domain-errors"
)

// RuleSet identifies a canonicalization rule-set.
type RuleSet string

const (
	// RuleSetStrict sorts object keys lexicographically at every nesting
	// level and rejects values without a lossless JSON representation.
	RuleSetStrict RuleSet = "STRICT"
	// RuleSetLegacyTopLevel sorts only top-level keys; nested object key
	// order is left as originally presented. Verification-only.
	RuleSetLegacyTopLevel RuleSet = "LEGACY_TOP_LEVEL"
)

// ParseRuleSet maps a wire tag to a RuleSet. An empty tag defaults to STRICT
// for validation paths; generation paths must pass the rule-set explicitly.
func ParseRuleSet(tag string) (RuleSet, error) {
	switch tag {
	case "", string(RuleSetStrict):
		return RuleSetStrict, nil
	case string(RuleSetLegacyTopLevel):
		return RuleSetLegacyTopLevel, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown canonicalization rule-set %q", tag))
	}
}

// CanonicalizationError reports a value that cannot be represented losslessly
// under the requested rule-set.
type CanonicalizationError struct {
	Path   string
	Reason string
}

func (e *CanonicalizationError) Error() string {
	if e.Path == "" {
		return "canonicalization failed: " + e.Reason
	}
	return fmt.Sprintf("canonicalization failed at %s: %s", e.Path, e.Reason)
}

// Canonicalize converts a JSON-like value into a deterministic string under
// the given rule-set. Structurally equal inputs produce byte-identical
// output regardless of original key order. Pure: no I/O, no randomness.
//
// Raw JSON input ([]byte or json.RawMessage) is preferred; it preserves
// number literals exactly and, under LEGACY_TOP_LEVEL, the original nested
// key order. Decoded Go values (map[string]any etc.) are also accepted.
func Canonicalize(value any, ruleSet RuleSet) (string, error) {
	switch ruleSet {
	case RuleSetStrict:
		return canonicalizeStrict(value)
	case RuleSetLegacyTopLevel:
		return canonicalizeLegacyTopLevel(value)
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown canonicalization rule-set %q", string(ruleSet)))
	}
}

func canonicalizeStrict(value any) (string, error) {
	var sb strings.Builder
	if err := writeStrict(&sb, value, "$"); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// writeStrict recursively serializes a value with object keys sorted at
// every nesting level. Arrays preserve order (order is semantically
// significant).
func writeStrict(sb *strings.Builder, value any, path string) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case string:
		return writeJSONScalar(sb, v, path)
	case json.Number:
		sb.WriteString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &CanonicalizationError{Path: path, Reason: "non-finite number"}
		}
		return writeJSONScalar(sb, v, path)
	case float32:
		return writeStrict(sb, float64(v), path)
	case int:
		sb.WriteString(strconv.Itoa(v))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case json.RawMessage:
		decoded, err := decodeRaw(v)
		if err != nil {
			return &CanonicalizationError{Path: path, Reason: "invalid JSON: " + err.Error()}
		}
		return writeStrict(sb, decoded, path)
	case []byte:
		return writeStrict(sb, json.RawMessage(v), path)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeJSONScalar(sb, k, path); err != nil {
				return err
			}
			sb.WriteByte(':')
			if err := writeStrict(sb, v[k], path+"."+k); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case map[string]json.RawMessage:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeJSONScalar(sb, k, path); err != nil {
				return err
			}
			sb.WriteByte(':')
			if err := writeStrict(sb, v[k], path+"."+k); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeStrict(sb, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	default:
		// Native date/time objects, channels, structs and other non-plain
		// types have no declared lossless JSON form under STRICT.
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("unsupported type %T", value)}
	}
	return nil
}

// canonicalizeLegacyTopLevel serializes with only a top-level key sort.
// Nested values are emitted as compacted raw bytes, preserving their
// original key order when the caller supplies the original JSON document.
// Intentionally less strict than STRICT.
func canonicalizeLegacyTopLevel(value any) (string, error) {
	raw, err := toRawJSON(value)
	if err != nil {
		return "", &CanonicalizationError{Reason: err.Error()}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// Non-object top level: nothing to sort, compact as-is.
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", &CanonicalizationError{Reason: "invalid JSON: " + err.Error()}
		}
		return buf.String(), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return "", &CanonicalizationError{Reason: "invalid JSON object: " + err.Error()}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeJSONScalar(&sb, k, "$"); err != nil {
			return "", err
		}
		sb.WriteByte(':')
		var buf bytes.Buffer
		if err := json.Compact(&buf, fields[k]); err != nil {
			return "", &CanonicalizationError{Path: "$." + k, Reason: "invalid JSON: " + err.Error()}
		}
		sb.Write(buf.Bytes())
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

// toRawJSON returns the value as raw JSON bytes, marshalling decoded Go
// values when necessary.
func toRawJSON(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(value)
	}
}

// decodeRaw parses raw JSON preserving number literals via json.Number.
func decodeRaw(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeJSONScalar emits a scalar in encoding/json's fixed, locale-independent
// form.
func writeJSONScalar(sb *strings.Builder, v any, path string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &CanonicalizationError{Path: path, Reason: err.Error()}
	}
	sb.Write(b)
	return nil
}
