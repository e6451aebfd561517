package runic

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeStream(t *testing.T) {
	in := sampleOrder()
	var buf bytes.Buffer
	if err := DefaultWire.Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out testOrder
	if err := DefaultWire.Decode(&buf, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ordersEqual(in, &out) {
		t.Errorf("stream round trip mismatch: got %+v", out)
	}
}

func TestEncodeFixed(t *testing.T) {
	in := sampleOrder()

	t.Run("fits", func(t *testing.T) {
		buf := make([]byte, 512)
		scratch := make([]byte, 256)
		data, err := DefaultStorage.EncodeFixed(buf, scratch, in)
		if err != nil {
			t.Fatalf("EncodeFixed: %v", err)
		}
		if len(data) == 0 || &data[0] != &buf[0] {
			t.Error("output is not a prefix of the caller's buffer")
		}
		var out testOrder
		if err := DefaultStorage.DecodeBytes(data, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !ordersEqual(in, &out) {
			t.Errorf("round trip mismatch")
		}
	})

	t.Run("output_buffer_too_small", func(t *testing.T) {
		buf := make([]byte, 4)
		scratch := make([]byte, 256)
		if _, err := DefaultStorage.EncodeFixed(buf, scratch, in); !errors.Is(err, ErrBufferOverflow) {
			t.Errorf("error = %v, want ErrBufferOverflow", err)
		}
	})
}

func TestDecodeValueNeedsDescriptive(t *testing.T) {
	data, err := DefaultWire.EncodeBytes(sampleOrder())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DefaultWire.DecodeValue(data); !errors.Is(err, ErrUsage) {
		t.Errorf("wire DecodeValue error = %v, want ErrUsage", err)
	}
	if _, err := DefaultStorage.DecodeValue(nil); !errors.Is(err, ErrUsage) {
		t.Errorf("storage DecodeValue error = %v, want ErrUsage", err)
	}
}

func TestEncodingFormatNames(t *testing.T) {
	cases := []struct {
		enc  Encoding
		want string
	}{
		{DefaultStorage, "storage"},
		{DefaultWire, "wire"},
		{DefaultDescriptive, "descriptive"},
	}
	for _, tc := range cases {
		if got := tc.enc.Format(); got != tc.want {
			t.Errorf("Format() = %q, want %q", got, tc.want)
		}
	}
}

func TestDecodeBytesWithRichContext(t *testing.T) {
	// A truncated stream under StrategyRich surfaces the failure both
	// as the returned error and as a positioned report.
	data, err := DefaultWire.EncodeBytes(sampleOrder())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cx := NewContext(StrategyRich, NewSystem())
	var out testOrder
	decodeErr := DefaultWire.DecodeBytesWith(cx, data[:len(data)-3], &out)
	if decodeErr == nil {
		t.Fatal("decode of truncated stream succeeded")
	}
	reports := cx.Reports()
	if len(reports) == 0 {
		t.Fatal("no reports captured under StrategyRich")
	}
	if !errors.Is(reports[0].Err, ErrBufferUnderflow) {
		t.Errorf("report error = %v, want ErrBufferUnderflow", reports[0].Err)
	}
}
