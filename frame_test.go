package runic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	// Repetitive payload so lz4 and zstd both shrink it.
	payload := bytes.Repeat([]byte("runic frame payload "), 64)

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			frame, err := EncodeFrame(payload, tag)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			if tag != CompressionNone && len(frame) >= len(payload) {
				t.Errorf("frame length %d not smaller than payload %d", len(frame), len(payload))
			}
			got, err := DecodeFrame(frame)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("payload mismatch after %s round trip", tag)
			}
		})
	}
}

func TestFrameIncompressibleFallsBackToNone(t *testing.T) {
	// A short non-repeating payload that compression cannot shrink.
	payload := []byte{0x00, 0x5a, 0xa5, 0xff, 0x13, 0x37, 0xc0, 0xde}

	frame, err := EncodeFrame(payload, CompressionLZ4)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if got := CompressionTag(frame[5]); got != CompressionNone {
		t.Errorf("recorded tag = %s, want %s", got, CompressionNone)
	}
	got, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch")
	}
}

func TestFrameChecksumMismatch(t *testing.T) {
	frame, err := EncodeFrame([]byte("checked"), CompressionNone)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	frame[len(frame)-1] ^= 0x01
	if _, err := DecodeFrame(frame); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %v, want checksum mismatch", err)
	}
}

func TestFrameHeaderValidation(t *testing.T) {
	frame, err := EncodeFrame([]byte("header"), CompressionNone)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	t.Run("bad_magic", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[0] = 'X'
		if _, err := DecodeFrame(bad); err == nil || !strings.Contains(err.Error(), "magic") {
			t.Errorf("error = %v, want bad magic", err)
		}
	})

	t.Run("unknown_flags", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[4] = 0x80
		if _, err := DecodeFrame(bad); err == nil || !strings.Contains(err.Error(), "flags") {
			t.Errorf("error = %v, want unknown flags", err)
		}
	})

	t.Run("unknown_compression", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[5] = 0x7f
		if _, err := DecodeFrame(bad); err == nil || !strings.Contains(err.Error(), "compression") {
			t.Errorf("error = %v, want unsupported compression", err)
		}
	})

	t.Run("raw_len_over_limit", func(t *testing.T) {
		// Header claiming a 2^63 byte payload over four stored bytes.
		bad := append([]byte{}, frameMagic[:]...)
		bad = append(bad, 0, byte(CompressionLZ4))
		bad = append(bad, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01)
		bad = append(bad, 4)
		bad = append(bad, 1, 2, 3, 4)
		bad = append(bad, make([]byte, checksumSize)...)
		if _, err := DecodeFrame(bad); err == nil || !strings.Contains(err.Error(), "limit") {
			t.Errorf("error = %v, want raw-length limit", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := DecodeFrame(frame[:len(frame)-4]); !errors.Is(err, ErrBufferUnderflow) {
			t.Errorf("error = %v, want ErrBufferUnderflow", err)
		}
	})
}

func TestFrameStreamHelpers(t *testing.T) {
	payload := bytes.Repeat([]byte("stream"), 100)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload, CompressionZstd); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch through stream helpers")
	}
}

func TestParseCompressionTag(t *testing.T) {
	cases := []struct {
		name string
		want CompressionTag
		ok   bool
	}{
		{"none", CompressionNone, true},
		{"lz4", CompressionLZ4, true},
		{"zstd", CompressionZstd, true},
		{"gzip", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseCompressionTag(tc.name)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseCompressionTag(%q) = %v, %v; want %v", tc.name, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseCompressionTag(%q) succeeded, want error", tc.name)
		}
	}
}
