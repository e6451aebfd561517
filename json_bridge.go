package runic

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

// ============================================================
// JSON Bridge
// ============================================================
//
// Converts between JSON and Value for transcoding. Two modes:
//   - Strict (default): bytes become base64 strings, variants become
//     plain {"tag": ..., "value": ...} objects, fully JSON compatible
//   - Extended: uses $runic markers for lossless round-trip

// BridgeOpts configures JSON bridge behavior.
type BridgeOpts struct {
	// Extended enables $runic markers for lossless round-trip of
	// bytes, packed blobs, variants and non-string map keys. When
	// false (default) those collapse into plain JSON shapes.
	Extended bool
}

// DefaultBridgeOpts returns the default (strict) options.
func DefaultBridgeOpts() BridgeOpts {
	return BridgeOpts{Extended: false}
}

// ValueFromJSON converts JSON bytes to a Value using strict mode.
func ValueFromJSON(data []byte) (*Value, error) {
	return ValueFromJSONWithOpts(data, DefaultBridgeOpts())
}

// ValueFromJSONWithOpts converts JSON bytes to a Value with options.
func ValueFromJSONWithOpts(data []byte, opts BridgeOpts) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("runic: JSON parse error: %w", err)
	}
	return fromJSONValue(v, opts)
}

func fromJSONValue(v any, opts BridgeOpts) (*Value, error) {
	switch val := v.(type) {
	case nil:
		return Unit(), nil

	case bool:
		return Bool(val), nil

	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("runic: invalid JSON number %q: %w", val, err)
		}
		return Float(f), nil

	case float64:
		if val == math.Trunc(val) && val >= -9007199254740991 && val <= 9007199254740991 {
			return Int(int64(val)), nil
		}
		return Float(val), nil

	case string:
		return Str(val), nil

	case []any:
		items := make([]*Value, 0, len(val))
		for i, elem := range val {
			item, err := fromJSONValue(elem, opts)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return List(items...), nil

	case map[string]any:
		if opts.Extended {
			if marker, ok := val["$runic"].(string); ok {
				return fromRunicMarker(marker, val, opts)
			}
		}
		entries := make([]Entry, 0, len(val))
		for k, elem := range val {
			item, err := fromJSONValue(elem, opts)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			entries = append(entries, Entry{Key: Str(k), Value: item})
		}
		return MapValue(entries...), nil

	default:
		return nil, fmt.Errorf("runic: unsupported JSON type %T", v)
	}
}

func fromRunicMarker(markerType string, obj map[string]any, opts BridgeOpts) (*Value, error) {
	switch markerType {
	case "bytes", "pack":
		b64, ok := obj["base64"].(string)
		if !ok {
			return nil, fmt.Errorf("runic: $runic %s marker missing base64", markerType)
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("runic: invalid base64: %w", err)
		}
		if markerType == "pack" {
			return Pack(data), nil
		}
		return Bytes(data), nil

	case "variant":
		tag, err := fromJSONValue(obj["tag"], opts)
		if err != nil {
			return nil, fmt.Errorf("runic: variant tag: %w", err)
		}
		value, err := fromJSONValue(obj["value"], opts)
		if err != nil {
			return nil, fmt.Errorf("runic: variant value: %w", err)
		}
		return Variant(tag, value), nil

	case "map":
		raw, ok := obj["entries"].([]any)
		if !ok {
			return nil, fmt.Errorf("runic: $runic map marker missing entries")
		}
		entries := make([]Entry, 0, len(raw))
		for i, elem := range raw {
			pair, ok := elem.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("runic: $runic map entry %d is not a pair", i)
			}
			k, err := fromJSONValue(pair[0], opts)
			if err != nil {
				return nil, err
			}
			v, err := fromJSONValue(pair[1], opts)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: k, Value: v})
		}
		return MapValue(entries...), nil

	default:
		return nil, fmt.Errorf("runic: unknown $runic marker type %q", markerType)
	}
}

// ValueToJSON converts a Value to JSON bytes using strict mode.
func ValueToJSON(v *Value) ([]byte, error) {
	return ValueToJSONWithOpts(v, DefaultBridgeOpts())
}

// ValueToJSONWithOpts converts a Value to JSON bytes with options.
func ValueToJSONWithOpts(v *Value, opts BridgeOpts) ([]byte, error) {
	jsonVal, err := toJSONValue(v, opts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonVal)
}

func toJSONValue(v *Value, opts BridgeOpts) (any, error) {
	switch v.Kind() {
	case KindUnit:
		return nil, nil

	case KindBool:
		return v.boolVal, nil

	case KindUint:
		return v.uintVal, nil

	case KindInt:
		return v.intVal, nil

	case KindFloat:
		if math.IsNaN(v.floatVal) || math.IsInf(v.floatVal, 0) {
			return nil, fmt.Errorf("runic: NaN and infinity are not representable in JSON")
		}
		return v.floatVal, nil

	case KindString:
		return v.strVal, nil

	case KindBytes, KindPack:
		b64 := base64.StdEncoding.EncodeToString(v.bytesVal)
		if opts.Extended {
			marker := "bytes"
			if v.kind == KindPack {
				marker = "pack"
			}
			return map[string]any{"$runic": marker, "base64": b64}, nil
		}
		return b64, nil

	case KindList:
		out := make([]any, len(v.listVal))
		for i, item := range v.listVal {
			jv, err := toJSONValue(item, opts)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil

	case KindMap:
		if stringKeyed(v.mapVal) {
			out := make(map[string]any, len(v.mapVal))
			for _, e := range v.mapVal {
				jv, err := toJSONValue(e.Value, opts)
				if err != nil {
					return nil, err
				}
				out[e.Key.strVal] = jv
			}
			return out, nil
		}
		if !opts.Extended {
			return nil, fmt.Errorf("runic: non-string map keys need the extended bridge")
		}
		entries := make([]any, len(v.mapVal))
		for i, e := range v.mapVal {
			jk, err := toJSONValue(e.Key, opts)
			if err != nil {
				return nil, err
			}
			jv, err := toJSONValue(e.Value, opts)
			if err != nil {
				return nil, err
			}
			entries[i] = []any{jk, jv}
		}
		return map[string]any{"$runic": "map", "entries": entries}, nil

	case KindVariant:
		jt, err := toJSONValue(v.variantVal.Tag, opts)
		if err != nil {
			return nil, err
		}
		jv, err := toJSONValue(v.variantVal.Value, opts)
		if err != nil {
			return nil, err
		}
		if opts.Extended {
			return map[string]any{"$runic": "variant", "tag": jt, "value": jv}, nil
		}
		return map[string]any{"tag": jt, "value": jv}, nil

	default:
		return nil, fmt.Errorf("runic: cannot bridge value kind %s", v.Kind())
	}
}
