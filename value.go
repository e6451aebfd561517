package runic

import (
	"fmt"
	"math"
)

// ValueKind identifies the dynamic type of a Value.
type ValueKind uint8

const (
	KindUnit ValueKind = iota
	KindBool
	KindUint
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindVariant
	KindPack
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindVariant:
		return "variant"
	case KindPack:
		return "pack"
	default:
		return "unknown"
	}
}

// Value is a dynamically typed value, the target of schema-less
// decoding from the descriptive format. Any Value can be re-encoded
// against any Encoder, which makes it the pivot for transcoding.
type Value struct {
	kind ValueKind

	// Scalar values (only one valid based on kind)
	boolVal  bool
	uintVal  uint64
	intVal   int64
	floatVal float64
	strVal   string
	bytesVal []byte

	// Container values
	listVal []*Value
	mapVal  []Entry

	// Variant
	variantVal *VariantValue
}

// Entry is one key/value pair of a dynamic map. Keys are themselves
// values; index-keyed structs decode with uint keys, named ones with
// string keys.
type Entry struct {
	Key   *Value
	Value *Value
}

// VariantValue is a tagged union: a discriminant and its payload.
type VariantValue struct {
	Tag   *Value
	Value *Value
}

// ============================================================
// Constructors
// ============================================================

// Unit creates the unit value.
func Unit() *Value {
	return &Value{kind: KindUnit}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Uint creates an unsigned integer value.
func Uint(v uint64) *Value {
	return &Value{kind: KindUint, uintVal: v}
}

// Int creates a signed integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Bytes creates a bytes value.
func Bytes(v []byte) *Value {
	return &Value{kind: KindBytes, bytesVal: v}
}

// List creates a list value.
func List(values ...*Value) *Value {
	return &Value{kind: KindList, listVal: values}
}

// MapValue creates a map value from entries.
func MapValue(entries ...Entry) *Value {
	return &Value{kind: KindMap, mapVal: entries}
}

// Variant creates a tagged union value.
func Variant(tag, value *Value) *Value {
	return &Value{kind: KindVariant, variantVal: &VariantValue{Tag: tag, Value: value}}
}

// Pack creates an opaque packed blob value.
func Pack(blob []byte) *Value {
	return &Value{kind: KindPack, bytesVal: blob}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind. A nil Value is unit.
func (v *Value) Kind() ValueKind {
	if v == nil {
		return KindUnit
	}
	return v.kind
}

// IsUnit returns true if this is the unit value.
func (v *Value) IsUnit() bool {
	return v == nil || v.kind == KindUnit
}

func (v *Value) want(k ValueKind) error {
	if v == nil {
		return fmt.Errorf("runic: nil value")
	}
	if v.kind != k {
		return fmt.Errorf("runic: expected %s, got %s", k, v.kind)
	}
	return nil
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if err := v.want(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsUint returns the unsigned integer value. Non-negative signed
// values convert.
func (v *Value) AsUint() (uint64, error) {
	if v != nil && v.kind == KindInt && v.intVal >= 0 {
		return uint64(v.intVal), nil
	}
	if err := v.want(KindUint); err != nil {
		return 0, err
	}
	return v.uintVal, nil
}

// AsInt returns the signed integer value. Unsigned values convert when
// they fit.
func (v *Value) AsInt() (int64, error) {
	if v != nil && v.kind == KindUint && v.uintVal <= math.MaxInt64 {
		return int64(v.uintVal), nil
	}
	if err := v.want(KindInt); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if err := v.want(KindFloat); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsString returns the string value.
func (v *Value) AsString() (string, error) {
	if err := v.want(KindString); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsBytes returns the bytes value.
func (v *Value) AsBytes() ([]byte, error) {
	if err := v.want(KindBytes); err != nil {
		return nil, err
	}
	return v.bytesVal, nil
}

// AsList returns the list elements.
func (v *Value) AsList() ([]*Value, error) {
	if err := v.want(KindList); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsMap returns the map entries.
func (v *Value) AsMap() ([]Entry, error) {
	if err := v.want(KindMap); err != nil {
		return nil, err
	}
	return v.mapVal, nil
}

// AsVariant returns the variant tag and payload.
func (v *Value) AsVariant() (*VariantValue, error) {
	if err := v.want(KindVariant); err != nil {
		return nil, err
	}
	return v.variantVal, nil
}

// AsPack returns the packed blob.
func (v *Value) AsPack() ([]byte, error) {
	if err := v.want(KindPack); err != nil {
		return nil, err
	}
	return v.bytesVal, nil
}

// ============================================================
// Encode / Decode
// ============================================================

// MarshalRunic writes the value against any encoder, so a dynamically
// decoded tree can be re-encoded into any of the three formats.
func (v *Value) MarshalRunic(cx *Context, enc Encoder) error {
	switch v.Kind() {
	case KindUnit:
		return enc.EncodeUnit()
	case KindBool:
		return enc.EncodeBool(v.boolVal)
	case KindUint:
		return enc.EncodeUint64(v.uintVal)
	case KindInt:
		return enc.EncodeInt64(v.intVal)
	case KindFloat:
		return enc.EncodeFloat64(v.floatVal)
	case KindString:
		return enc.EncodeString(v.strVal)
	case KindBytes:
		return enc.EncodeBytes(v.bytesVal)
	case KindList:
		seq, err := enc.EncodeSequence(len(v.listVal))
		if err != nil {
			return err
		}
		for i, item := range v.listVal {
			cx.EnterIndex(i)
			sub, err := seq.EncodeNext()
			if err == nil {
				err = item.MarshalRunic(cx, sub)
			}
			cx.Leave()
			if err != nil {
				return err
			}
		}
		return seq.End()
	case KindMap:
		me, err := enc.EncodeMap(len(v.mapVal))
		if err != nil {
			return err
		}
		for _, entry := range v.mapVal {
			ke, err := me.EncodeKey()
			if err != nil {
				return err
			}
			if err := entry.Key.MarshalRunic(cx, ke); err != nil {
				return err
			}
			ve, err := me.EncodeValue()
			if err != nil {
				return err
			}
			if err := entry.Value.MarshalRunic(cx, ve); err != nil {
				return err
			}
		}
		return me.End()
	case KindVariant:
		ve, err := enc.EncodeVariant()
		if err != nil {
			return err
		}
		te, err := ve.EncodeTag()
		if err != nil {
			return err
		}
		if err := v.variantVal.Tag.MarshalRunic(cx, te); err != nil {
			return err
		}
		pe, err := ve.EncodeValue()
		if err != nil {
			return err
		}
		if err := v.variantVal.Value.MarshalRunic(cx, pe); err != nil {
			return err
		}
		return ve.End()
	case KindPack:
		pe, err := enc.EncodePack()
		if err != nil {
			return err
		}
		if err := pe.PackBytes(v.bytesVal); err != nil {
			return err
		}
		return pe.End()
	default:
		return usagef("cannot encode value kind %s", v.Kind())
	}
}

// decodeValue reads one descriptive value into a dynamic tree. Only
// the descriptive format carries enough type information for this; the
// entry point is DescriptiveEncoding.DecodeValue.
func decodeValue(cx *Context, d *descriptiveDecoder, depth int) (*Value, error) {
	if d.used {
		return nil, usagef("descriptive decoder already consumed")
	}
	if depth >= maxNestingDepth {
		return nil, cx.Report(cx.Mark(), fmt.Errorf("%w: %d levels", ErrTooDeep, depth))
	}
	b, err := d.r.PeekByte()
	if err != nil {
		return nil, cx.Report(cx.Mark(), err)
	}
	switch Tag(b).Kind() {
	case KindPrefix:
		s, err := d.DecodeString()
		if err != nil {
			return nil, err
		}
		return Str(s), nil
	case KindSequence:
		seq, err := d.DecodeSequence()
		if err != nil {
			return nil, err
		}
		items := make([]*Value, 0, seq.Len())
		for i := 0; ; i++ {
			sub, ok, err := seq.DecodeNext()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			cx.EnterIndex(i)
			item, err := decodeValue(cx, sub.(*descriptiveDecoder), depth+1)
			cx.Leave()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if err := seq.End(); err != nil {
			return nil, err
		}
		return List(items...), nil
	case KindContinuation:
		u, err := d.DecodeUint64()
		if err != nil {
			return nil, err
		}
		return Uint(u), nil
	}

	m := Marker(Tag(b).Data())
	if Tag(b).IsEscape() {
		// Marker tags are never escaped; surface through the decoder.
		return nil, cx.Report(cx.Mark(), fmt.Errorf("%w: escaped marker", ErrUnexpectedTag))
	}
	switch {
	case m == MarkerUnit:
		if err := d.DecodeUnit(); err != nil {
			return nil, err
		}
		return Unit(), nil
	case m == MarkerTrue || m == MarkerFalse:
		v, err := d.DecodeBool()
		if err != nil {
			return nil, err
		}
		return Bool(v), nil
	case m.isUnsigned():
		u, err := d.DecodeUint64()
		if err != nil {
			return nil, err
		}
		return Uint(u), nil
	case m.isSigned():
		i, err := d.DecodeInt64()
		if err != nil {
			return nil, err
		}
		return Int(i), nil
	case m == MarkerF32 || m == MarkerF64:
		f, err := d.DecodeFloat64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case m == MarkerBytes:
		b, err := d.DecodeBytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return Bytes(out), nil
	case m == MarkerMap:
		md, err := d.DecodeMap()
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, md.Len())
		for {
			kd, ok, err := md.DecodeKey()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			key, err := decodeValue(cx, kd.(*descriptiveDecoder), depth+1)
			if err != nil {
				return nil, err
			}
			vd, err := md.DecodeValue()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(cx, vd.(*descriptiveDecoder), depth+1)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Value: val})
		}
		if err := md.End(); err != nil {
			return nil, err
		}
		return MapValue(entries...), nil
	case m == MarkerVariant:
		vd, err := d.DecodeVariant()
		if err != nil {
			return nil, err
		}
		td, err := vd.DecodeTag()
		if err != nil {
			return nil, err
		}
		tag, err := decodeValue(cx, td.(*descriptiveDecoder), depth+1)
		if err != nil {
			return nil, err
		}
		pd, err := vd.DecodeValue()
		if err != nil {
			return nil, err
		}
		payload, err := decodeValue(cx, pd.(*descriptiveDecoder), depth+1)
		if err != nil {
			return nil, err
		}
		if err := vd.End(); err != nil {
			return nil, err
		}
		return Variant(tag, payload), nil
	case m == MarkerPack:
		pd, err := d.DecodePack()
		if err != nil {
			return nil, err
		}
		p := pd.(*packDecoder)
		blob, err := p.Bytes(p.r.Remaining())
		if err != nil {
			return nil, err
		}
		if err := p.End(); err != nil {
			return nil, err
		}
		out := make([]byte, len(blob))
		copy(out, blob)
		return Pack(out), nil
	default:
		return nil, cx.Report(cx.Mark(), fmt.Errorf("%w: %s", ErrUnexpectedTag, m))
	}
}

// ============================================================
// Interface bridge
// ============================================================

// Interface converts the value to plain Go data: unit becomes nil,
// maps become map[string]any when every key is a string, otherwise a
// []Entry is preserved as-is.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindUnit:
		return nil
	case KindBool:
		return v.boolVal
	case KindUint:
		return v.uintVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.strVal
	case KindBytes:
		return v.bytesVal
	case KindList:
		out := make([]any, len(v.listVal))
		for i, item := range v.listVal {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		if stringKeyed(v.mapVal) {
			out := make(map[string]any, len(v.mapVal))
			for _, e := range v.mapVal {
				k, _ := e.Key.AsString()
				out[k] = e.Value.Interface()
			}
			return out
		}
		return v.mapVal
	case KindVariant:
		return map[string]any{
			"tag":   v.variantVal.Tag.Interface(),
			"value": v.variantVal.Value.Interface(),
		}
	case KindPack:
		return v.bytesVal
	default:
		return nil
	}
}

func stringKeyed(entries []Entry) bool {
	for _, e := range entries {
		if e.Key.Kind() != KindString {
			return false
		}
	}
	return true
}

// FromInterface converts plain Go data to a Value. It accepts the
// types produced by the standard decoders of JSON, CBOR, MessagePack
// and YAML.
func FromInterface(v any) (*Value, error) {
	switch x := v.(type) {
	case nil:
		return Unit(), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Uint(uint64(x)), nil
	case uint8:
		return Uint(uint64(x)), nil
	case uint16:
		return Uint(uint64(x)), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Str(x), nil
	case []byte:
		return Bytes(x), nil
	case []any:
		items := make([]*Value, len(x))
		for i, item := range x {
			iv, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			items[i] = iv
		}
		return List(items...), nil
	case map[string]any:
		entries := make([]Entry, 0, len(x))
		for k, item := range x {
			iv, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: Str(k), Value: iv})
		}
		return MapValue(entries...), nil
	case map[any]any:
		entries := make([]Entry, 0, len(x))
		for k, item := range x {
			kv, err := FromInterface(k)
			if err != nil {
				return nil, err
			}
			iv, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: kv, Value: iv})
		}
		return MapValue(entries...), nil
	default:
		return nil, fmt.Errorf("runic: cannot convert %T to a value", v)
	}
}
