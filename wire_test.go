package runic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	in := sampleOrder()
	data, err := DefaultWire.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out testOrder
	if err := DefaultWire.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(in, &out) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, *in)
	}
}

func TestWireOptionVariants(t *testing.T) {
	tests := []struct {
		name string
		opts func(Options) Options
	}{
		{"default", func(o Options) Options { return o }},
		{"fixed_integers", func(o Options) Options { o.Integer = IntegerFixed; return o }},
		{"big_endian_fixed", func(o Options) Options {
			o.Integer = IntegerFixed
			o.Order = OrderBig
			return o
		}},
		{"named_fields", func(o Options) Options { o.Naming = FieldName; return o }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := Wire(tt.opts(DefaultOptions()))
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
				t.Errorf("round trip mismatch under %s", tt.name)
			}
		})
	}
}

// A reader built against the old schema must decode a stream written
// by the extended one: the extra fields are framed, so it steps over
// them wherever they sit.
func TestWireSkipsUnknownFields(t *testing.T) {
	base := sampleOrder()
	v2 := &testOrderV2{testOrder: *base, Priority: 9, Comment: "expedite"}

	data, err := DefaultWire.EncodeBytes(v2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out testOrder
	if err := DefaultWire.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(base, &out) {
		t.Errorf("skipping unknown fields corrupted known ones: got %+v", out)
	}
}

func TestWireSkipsUnknownFieldsNamed(t *testing.T) {
	opts := DefaultOptions()
	opts.Naming = FieldName
	enc := Wire(opts)

	base := sampleOrder()
	v2 := &testOrderV2{testOrder: *base, Priority: 1, Comment: "x"}
	data, err := enc.EncodeBytes(v2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testOrder
	if err := enc.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ordersEqual(base, &out) {
		t.Errorf("named-field skip corrupted known fields: got %+v", out)
	}
}

// End on a partially read compound must consume the rest of it so the
// enclosing stream stays aligned.
func TestWireEndSkipsRemainder(t *testing.T) {
	in := sampleOrder()
	data, err := DefaultWire.EncodeBytes(in)
	if err != nil {
		t.Fatal(err)
	}

	cx := NewContext(StrategySame, NewSystem())
	dec := DefaultWire.NewDecoder(cx, NewReader(data))
	st, err := dec.DecodeStruct()
	if err != nil {
		t.Fatal(err)
	}
	// Read only the first field, then End.
	_, fd, ok, err := st.DecodeField()
	if err != nil || !ok {
		t.Fatalf("DecodeField: ok=%v err=%v", ok, err)
	}
	if err := fd.Skip(); err != nil {
		t.Fatal(err)
	}
	if err := st.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func TestWireVariantRoundTrip(t *testing.T) {
	events := []testEvent{
		{Kind: 0, Payload: 0},
		{Kind: 1, Payload: -1},
		{Kind: 500, Payload: 1 << 40},
	}
	for _, in := range events {
		data, err := DefaultWire.EncodeBytes(&in)
		if err != nil {
			t.Fatalf("encode %+v: %v", in, err)
		}
		var out testEvent
		if err := DefaultWire.DecodeBytes(data, &out); err != nil {
			t.Fatalf("decode %+v: %v", in, err)
		}
		if out != in {
			t.Errorf("got %+v, want %+v", out, in)
		}
	}
}

func TestWirePackRoundTrip(t *testing.T) {
	in := &testPoint{X: -100, Y: 100, Weight: 0.25}
	data, err := DefaultWire.EncodeBytes(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out testPoint
	if err := DefaultWire.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != *in {
		t.Errorf("got %+v, want %+v", out, *in)
	}
}

// A packed field inside a struct must skip as an opaque byte run.
func TestWireSkipsPackedField(t *testing.T) {
	cx := NewContext(StrategySame, NewSystem())
	w := NewBufWriter(0)
	enc := DefaultWire.NewEncoder(cx, w)
	st, err := enc.EncodeStruct(2)
	if err != nil {
		t.Fatal(err)
	}
	f, err := st.EncodeField("blob", 0)
	if err != nil {
		t.Fatal(err)
	}
	point := testPoint{X: 1, Y: 2, Weight: 3}
	if err := point.MarshalRunic(cx, f); err != nil {
		t.Fatal(err)
	}
	f, err = st.EncodeField("after", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.EncodeString("survivor"); err != nil {
		t.Fatal(err)
	}
	if err := st.End(); err != nil {
		t.Fatal(err)
	}

	dcx := NewContext(StrategySame, NewSystem())
	dec := DefaultWire.NewDecoder(dcx, NewReader(w.Bytes()))
	sd, err := dec.DecodeStruct()
	if err != nil {
		t.Fatal(err)
	}
	var got string
	for {
		id, fd, ok, err := sd.DecodeField()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if id.Match("after", 1) {
			if got, err = fd.DecodeString(); err != nil {
				t.Fatal(err)
			}
		} else if err := fd.Skip(); err != nil {
			t.Fatal(err)
		}
	}
	if err := sd.End(); err != nil {
		t.Fatal(err)
	}
	if got != "survivor" {
		t.Errorf("field after packed blob = %q, want %q", got, "survivor")
	}
}

func TestWireRejectsMarkerKind(t *testing.T) {
	// KindMarker never appears in wire streams.
	data := []byte{3 << 6}
	cx := NewContext(StrategySame, NewSystem())
	if err := DefaultWire.NewDecoder(cx, NewReader(data)).Skip(); !errors.Is(err, ErrUnexpectedKind) {
		t.Errorf("Skip on marker tag = %v, want ErrUnexpectedKind", err)
	}
}

func TestWireUintWidthCheck(t *testing.T) {
	cx := NewContext(StrategySame, NewSystem())
	w := NewBufWriter(0)
	if err := DefaultWire.NewEncoder(cx, w).EncodeUint64(1 << 20); err != nil {
		t.Fatal(err)
	}
	dcx := NewContext(StrategySame, NewSystem())
	if _, err := DefaultWire.NewDecoder(dcx, NewReader(w.Bytes())).DecodeUint8(); !errors.Is(err, ErrBitsOverflow) {
		t.Errorf("narrow decode of wide value = %v, want ErrBitsOverflow", err)
	}
}

func TestWireHostileFraming(t *testing.T) {
	// continuation(1<<63): nine continuation bytes and a final group.
	hugeCount := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}

	t.Run("sequence_count_past_input", func(t *testing.T) {
		data := append([]byte{1<<6 | 63}, hugeCount...)
		cx := NewContext(StrategySame, NewSystem())
		d := DefaultWire.NewDecoder(cx, NewReader(data))
		if _, err := d.DecodeSequence(); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeSequence error = %v, want ErrBufferUnderflow", err)
		}
	})

	t.Run("struct_count_past_input", func(t *testing.T) {
		data := append([]byte{1<<6 | 63}, hugeCount...)
		var out testOrder
		if err := DefaultWire.DecodeBytes(data, &out); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("DecodeBytes error = %v, want ErrBufferUnderflow", err)
		}
	})

	t.Run("deep_sequence_nesting", func(t *testing.T) {
		data := bytes.Repeat([]byte{1<<6 | 1}, 4096)
		cx := NewContext(StrategySame, NewSystem())
		d := DefaultWire.NewDecoder(cx, NewReader(data))
		if err := d.Skip(); !errors.Is(err, ErrTooDeep) {
			t.Errorf("Skip error = %v, want ErrTooDeep", err)
		}
	})
}

// Required-ness is the decode callback's call: the cursor protocol
// reports what the stream carries, and a callback that needs more
// raises the absence itself.
func TestWireMissingRequiredFieldReported(t *testing.T) {
	cx := NewContext(StrategySame, NewSystem())
	w := NewBufWriter(0)
	enc := DefaultWire.NewEncoder(cx, w)
	st, err := enc.EncodeStruct(1)
	if err != nil {
		t.Fatalf("EncodeStruct: %v", err)
	}
	f, err := st.EncodeField("sku", 0)
	if err == nil {
		err = f.EncodeString("widget")
	}
	if err != nil {
		t.Fatalf("encode field: %v", err)
	}
	if err := st.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	var it testItemStrict
	err = DefaultWire.DecodeBytes(w.Bytes(), &it)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("decode error = %v, want ErrMissingField", err)
	}
	if !strings.Contains(err.Error(), "count") {
		t.Errorf("error %q does not name the absent field", err)
	}
}
