package runic

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// ============================================================
// Frame layer
// ============================================================
//
// A frame wraps one encoded payload for storage or transport:
//
//	magic "RNC1" | flags | compression tag |
//	continuation raw-len | continuation stored-len |
//	payload | 16-byte checksum
//
// The checksum is the truncated BLAKE3 digest of the raw
// (uncompressed) payload, so it verifies decompression as well as
// transport integrity.

// frameMagic identifies a frame and its layout version.
var frameMagic = [4]byte{'R', 'N', 'C', '1'}

// checksumSize is the truncated BLAKE3 digest length.
const checksumSize = 16

// CompressionTag identifies the compression algorithm of a frame
// payload. Tags are stored in frame headers (1 byte each); the values
// are format constants.
type CompressionTag uint8

const (
	// CompressionNone stores the payload uncompressed. Also the
	// fallback when a payload turns out incompressible.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 uses LZ4 block compression. Fast default for
	// binary payloads.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd uses zstd at the default level. Better ratios
	// for text-like payloads.
	CompressionZstd CompressionTag = 2
)

// String returns the tag name.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a tag from its string name.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("runic: unknown compression tag %q", name)
	}
}

// zstdEncoder and zstdDecoder are reused across calls. Both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("runic: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("runic: zstd decoder initialization failed: " + err.Error())
	}
}

// maxFrameRawLen caps the payload size a frame header may claim, so a
// corrupt header cannot drive allocation before anything is verified.
const maxFrameRawLen = 1 << 30

// errIncompressible reports that compression did not shrink the
// payload; the frame falls back to CompressionNone.
var errIncompressible = fmt.Errorf("payload is incompressible")

func compressPayload(payload []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return payload, nil

	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(payload))
		dst := make([]byte, bound)
		written, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("runic: lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(payload) {
			return nil, errIncompressible
		}
		return dst[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(payload, nil)
		if len(compressed) >= len(payload) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("runic: unsupported compression tag %d", tag)
	}
}

func decompressPayload(stored []byte, tag CompressionTag, rawLen int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != rawLen {
			return nil, fmt.Errorf("runic: uncompressed payload is %d bytes, header says %d", len(stored), rawLen)
		}
		return stored, nil

	case CompressionLZ4:
		dst := make([]byte, rawLen)
		read, err := lz4.UncompressBlock(stored, dst)
		if err != nil {
			return nil, fmt.Errorf("runic: lz4 decompress: %w", err)
		}
		if read != rawLen {
			return nil, fmt.Errorf("runic: lz4 decompress produced %d bytes, header says %d", read, rawLen)
		}
		return dst, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("runic: zstd decompress: %w", err)
		}
		if len(result) != rawLen {
			return nil, fmt.Errorf("runic: zstd decompress produced %d bytes, header says %d", len(result), rawLen)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("runic: unsupported compression tag %d", tag)
	}
}

func checksum(payload []byte) [checksumSize]byte {
	sum := blake3.Sum256(payload)
	var out [checksumSize]byte
	copy(out[:], sum[:checksumSize])
	return out
}

// EncodeFrame wraps a payload into a frame using the requested
// compression. An incompressible payload is stored uncompressed with
// CompressionNone recorded in the header.
func EncodeFrame(payload []byte, tag CompressionTag) ([]byte, error) {
	if len(payload) > maxFrameRawLen {
		return nil, fmt.Errorf("runic: payload %d bytes exceeds frame limit %d", len(payload), maxFrameRawLen)
	}
	stored, err := compressPayload(payload, tag)
	if err != nil {
		if err == errIncompressible {
			stored, tag = payload, CompressionNone
		} else {
			return nil, err
		}
	}

	w := NewBufWriter(len(stored) + 32)
	if err := w.Write(frameMagic[:]); err != nil {
		return nil, err
	}
	if err := w.WriteByte(0); err != nil { // flags, reserved
		return nil, err
	}
	if err := w.WriteByte(byte(tag)); err != nil {
		return nil, err
	}
	if err := writeContinuation(w, uint64(len(payload))); err != nil {
		return nil, err
	}
	if err := writeContinuation(w, uint64(len(stored))); err != nil {
		return nil, err
	}
	if err := w.Write(stored); err != nil {
		return nil, err
	}
	sum := checksum(payload)
	if err := w.Write(sum[:]); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeFrame unwraps one frame and returns the raw payload. The
// checksum is always verified.
func DecodeFrame(data []byte) ([]byte, error) {
	r := NewReader(data)

	magic, err := r.ReadBytes(len(frameMagic))
	if err != nil {
		return nil, fmt.Errorf("runic: frame header: %w", err)
	}
	if !bytes.Equal(magic, frameMagic[:]) {
		return nil, fmt.Errorf("runic: bad frame magic %q", magic)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("runic: frame header: %w", err)
	}
	if flags != 0 {
		return nil, fmt.Errorf("runic: unknown frame flags %#x", flags)
	}
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("runic: frame header: %w", err)
	}
	rawLen, err := readContinuation(r, 64)
	if err != nil {
		return nil, fmt.Errorf("runic: frame header: %w", err)
	}
	if rawLen > maxFrameRawLen {
		return nil, fmt.Errorf("runic: frame claims %d byte payload, limit %d", rawLen, maxFrameRawLen)
	}
	storedLen, err := readContinuation(r, 64)
	if err != nil {
		return nil, fmt.Errorf("runic: frame header: %w", err)
	}
	stored, err := r.ReadBytes(int(storedLen))
	if err != nil {
		return nil, fmt.Errorf("runic: frame payload: %w", err)
	}
	sum, err := r.ReadBytes(checksumSize)
	if err != nil {
		return nil, fmt.Errorf("runic: frame checksum: %w", err)
	}

	payload, err := decompressPayload(stored, CompressionTag(tagByte), int(rawLen))
	if err != nil {
		return nil, err
	}
	want := checksum(payload)
	if !bytes.Equal(sum, want[:]) {
		return nil, fmt.Errorf("runic: frame checksum mismatch")
	}
	return payload, nil
}

// WriteFrame encodes a frame and writes it to w.
func WriteFrame(w io.Writer, payload []byte, tag CompressionTag) error {
	frame, err := EncodeFrame(payload, tag)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads everything from r and decodes it as a single frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(data)
}
