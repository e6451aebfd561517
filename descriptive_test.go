package runic

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestDescriptiveRoundTrip(t *testing.T) {
	in := sampleOrder()
	data, err := DefaultDescriptive.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out testOrder
	if err := DefaultDescriptive.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(in, &out) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, *in)
	}
}

func TestDescriptiveSkipsUnknownFields(t *testing.T) {
	base := sampleOrder()
	v2 := &testOrderV2{testOrder: *base, Priority: 2, Comment: "later"}
	data, err := DefaultDescriptive.EncodeBytes(v2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testOrder
	if err := DefaultDescriptive.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(base, &out) {
		t.Errorf("skip corrupted known fields: got %+v", out)
	}
}

func encodeDescriptive(t *testing.T, f func(Encoder) error) []byte {
	t.Helper()
	cx := NewContext(StrategySame, NewSystem())
	w := NewBufWriter(0)
	if err := f(DefaultDescriptive.NewEncoder(cx, w)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return w.Bytes()
}

func descriptiveDecoderFor(data []byte) Decoder {
	cx := NewContext(StrategySame, NewSystem())
	return DefaultDescriptive.NewDecoder(cx, NewReader(data))
}

func TestDescriptiveNumericCoercion(t *testing.T) {
	t.Run("u8_widens_to_u64", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint8(200) })
		got, err := descriptiveDecoderFor(data).DecodeUint64()
		if err != nil || got != 200 {
			t.Errorf("DecodeUint64 = %d, %v; want 200, nil", got, err)
		}
	})

	t.Run("u64_narrows_when_it_fits", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint64(250) })
		got, err := descriptiveDecoderFor(data).DecodeUint8()
		if err != nil || got != 250 {
			t.Errorf("DecodeUint8 = %d, %v; want 250, nil", got, err)
		}
	})

	t.Run("u64_overflow_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint64(256) })
		_, err := descriptiveDecoderFor(data).DecodeUint8()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("error = %v, want ErrOverflow", err)
		}
	})

	t.Run("nonnegative_int_as_uint", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeInt32(77) })
		got, err := descriptiveDecoderFor(data).DecodeUint16()
		if err != nil || got != 77 {
			t.Errorf("DecodeUint16 = %d, %v; want 77, nil", got, err)
		}
	})

	t.Run("negative_int_as_uint_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeInt32(-1) })
		_, err := descriptiveDecoderFor(data).DecodeUint32()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("error = %v, want ErrOverflow", err)
		}
	})

	t.Run("uint_as_int_when_it_fits", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint16(1000) })
		got, err := descriptiveDecoderFor(data).DecodeInt32()
		if err != nil || got != 1000 {
			t.Errorf("DecodeInt32 = %d, %v; want 1000, nil", got, err)
		}
	})

	t.Run("huge_uint_as_int_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint64(math.MaxUint64) })
		_, err := descriptiveDecoderFor(data).DecodeInt64()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("error = %v, want ErrOverflow", err)
		}
	})

	t.Run("exact_int_as_float", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeInt32(-12345) })
		got, err := descriptiveDecoderFor(data).DecodeFloat64()
		if err != nil || got != -12345 {
			t.Errorf("DecodeFloat64 = %v, %v; want -12345, nil", got, err)
		}
	})

	t.Run("inexact_int_as_float_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeUint64(1<<53 + 1) })
		_, err := descriptiveDecoderFor(data).DecodeFloat64()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("error = %v, want ErrOverflow", err)
		}
	})

	t.Run("f32_widens_to_f64", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeFloat32(1.5) })
		got, err := descriptiveDecoderFor(data).DecodeFloat64()
		if err != nil || got != 1.5 {
			t.Errorf("DecodeFloat64 = %v, %v; want 1.5, nil", got, err)
		}
	})

	t.Run("f64_narrows_when_exact", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeFloat64(0.25) })
		got, err := descriptiveDecoderFor(data).DecodeFloat32()
		if err != nil || got != 0.25 {
			t.Errorf("DecodeFloat32 = %v, %v; want 0.25, nil", got, err)
		}
	})

	t.Run("f64_inexact_narrowing_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeFloat64(math.Pi) })
		_, err := descriptiveDecoderFor(data).DecodeFloat32()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("error = %v, want ErrOverflow", err)
		}
	})

	t.Run("float_as_int_rejected", func(t *testing.T) {
		data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeFloat64(3.0) })
		_, err := descriptiveDecoderFor(data).DecodeInt32()
		if !errors.Is(err, ErrUnexpectedKind) {
			t.Errorf("error = %v, want ErrUnexpectedKind", err)
		}
	})
}

func TestDescriptiveDynamicValue(t *testing.T) {
	in := sampleOrder()
	data, err := DefaultDescriptive.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	v, err := DefaultDescriptive.DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	entries, err := v.AsMap()
	if err != nil {
		t.Fatalf("AsMap: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	// Default naming is by index; field 1 is the ref string.
	var ref string
	for _, e := range entries {
		idx, err := e.Key.AsUint()
		if err != nil {
			t.Fatalf("field key: %v", err)
		}
		if idx == 1 {
			ref, err = e.Value.AsString()
			if err != nil {
				t.Fatalf("ref value: %v", err)
			}
		}
	}
	if ref != in.Ref {
		t.Errorf("ref = %q, want %q", ref, in.Ref)
	}

	// The dynamic tree re-encodes to an equivalent stream.
	again, err := DefaultDescriptive.EncodeValue(v)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	var out testOrder
	if err := DefaultDescriptive.DecodeBytes(again, &out); err != nil {
		t.Fatalf("decode re-encoded stream: %v", err)
	}
	if !ordersEqual(in, &out) {
		t.Errorf("value round trip mismatch: got %+v", out)
	}
}

func TestDescriptiveDynamicValueKinds(t *testing.T) {
	build := func(e Encoder) error {
		seq, err := e.EncodeSequence(6)
		if err != nil {
			return err
		}
		el, _ := seq.EncodeNext()
		if err := el.EncodeUnit(); err != nil {
			return err
		}
		el, _ = seq.EncodeNext()
		if err := el.EncodeBool(true); err != nil {
			return err
		}
		el, _ = seq.EncodeNext()
		if err := el.EncodeInt64(-9); err != nil {
			return err
		}
		el, _ = seq.EncodeNext()
		if err := el.EncodeFloat64(6.5); err != nil {
			return err
		}
		el, _ = seq.EncodeNext()
		if err := el.EncodeBytes([]byte{1, 2, 3}); err != nil {
			return err
		}
		el, _ = seq.EncodeNext()
		if err := el.EncodeString("tail"); err != nil {
			return err
		}
		return seq.End()
	}
	data := encodeDescriptive(t, build)

	v, err := DefaultDescriptive.DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	items, err := v.AsList()
	if err != nil {
		t.Fatalf("AsList: %v", err)
	}
	wantKinds := []ValueKind{KindUnit, KindBool, KindInt, KindFloat, KindBytes, KindString}
	if len(items) != len(wantKinds) {
		t.Fatalf("got %d items, want %d", len(items), len(wantKinds))
	}
	for i, want := range wantKinds {
		if items[i].Kind() != want {
			t.Errorf("item %d kind = %s, want %s", i, items[i].Kind(), want)
		}
	}
}

func TestDescriptiveVariantRoundTrip(t *testing.T) {
	in := &testEvent{Kind: 3, Payload: -77}
	data, err := DefaultDescriptive.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testEvent
	if err := DefaultDescriptive.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != *in {
		t.Errorf("got %+v, want %+v", out, *in)
	}

	v, err := DefaultDescriptive.DecodeValue(data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	variant, err := v.AsVariant()
	if err != nil {
		t.Fatalf("AsVariant: %v", err)
	}
	if tag, _ := variant.Tag.AsUint(); tag != 3 {
		t.Errorf("variant tag = %d, want 3", tag)
	}
	if payload, _ := variant.Value.AsInt(); payload != -77 {
		t.Errorf("variant payload = %d, want -77", payload)
	}
}

func TestDescriptivePackRoundTrip(t *testing.T) {
	in := &testPoint{X: 10, Y: -10, Weight: 1.25}
	data, err := DefaultDescriptive.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testPoint
	if err := DefaultDescriptive.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != *in {
		t.Errorf("got %+v, want %+v", out, *in)
	}
}

func TestDescriptiveTypeMismatch(t *testing.T) {
	data := encodeDescriptive(t, func(e Encoder) error { return e.EncodeString("text") })
	if _, err := descriptiveDecoderFor(data).DecodeBool(); !errors.Is(err, ErrUnexpectedTag) {
		t.Errorf("DecodeBool on string = %v, want ErrUnexpectedTag", err)
	}
}

func TestDescriptiveHostileFraming(t *testing.T) {
	// continuation(1<<63): nine continuation bytes and a final group.
	hugeCount := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}

	t.Run("sequence_count_past_input", func(t *testing.T) {
		data := append([]byte{1<<6 | 63}, hugeCount...)
		if _, err := DefaultDescriptive.DecodeValue(data); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeValue error = %v, want ErrBufferUnderflow", err)
		}
		if _, err := descriptiveDecoderFor(data).DecodeSequence(); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeSequence error = %v, want ErrBufferUnderflow", err)
		}
	})

	t.Run("map_count_past_input", func(t *testing.T) {
		data := append([]byte{3<<6 | byte(MarkerMap)}, hugeCount...)
		if _, err := DefaultDescriptive.DecodeValue(data); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeValue error = %v, want ErrBufferUnderflow", err)
		}
		if _, err := descriptiveDecoderFor(data).DecodeMap(); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeMap error = %v, want ErrBufferUnderflow", err)
		}
	})

	t.Run("modest_count_still_past_input", func(t *testing.T) {
		// A sequence of 1000 framed over two leftover bytes.
		data := []byte{1<<6 | 63, 232, 7, 0, 0}
		if _, err := DefaultDescriptive.DecodeValue(data); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeValue error = %v, want ErrBufferUnderflow", err)
		}
	})

	t.Run("deep_sequence_nesting", func(t *testing.T) {
		data := bytes.Repeat([]byte{1<<6 | 1}, 4096)
		if _, err := DefaultDescriptive.DecodeValue(data); !errors.Is(err, ErrTooDeep) {
			t.Errorf("DecodeValue error = %v, want ErrTooDeep", err)
		}
		if err := descriptiveDecoderFor(data).Skip(); !errors.Is(err, ErrTooDeep) {
			t.Errorf("Skip error = %v, want ErrTooDeep", err)
		}
	})
}

func TestDescriptiveFixedIntegerMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Integer = IntegerFixed
	enc := Descriptive(opts)

	in := sampleOrder()
	data, err := enc.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testOrder
	if err := enc.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(in, &out) {
		t.Errorf("fixed-mode round trip mismatch")
	}
}
