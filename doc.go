// Package runic implements RUNIC, a multi-format binary serialization engine.
//
// RUNIC is a family of encoders and decoders that share:
//   - Numeric primitives (continuation varints + zigzag)
//   - A one-byte tag scheme (2-bit kind, 6-bit inline data)
//   - A region allocator for reusable scratch buffers
//   - A diagnostic context (error marks, structural paths)
//
// # Format Tiers
//
// Three wire disciplines interpret the tag scheme differently, trading
// stream size against upgrade stability:
//
//   - Storage: densest. No per-field type framing; the decoder must know
//     the exact shape. Unknown fields cannot be skipped.
//   - Wire: every field is framed by a tag carrying enough kind+length
//     information to skip its payload without interpreting it. Fully
//     upgrade-stable in both directions.
//   - Descriptive: every value carries an explicit type marker. Streams
//     can be decoded without any static schema into a dynamic Value,
//     and numeric fields coerce between compatible representations.
//
// # Cursor Protocol
//
// User types implement Marshaler/Unmarshaler against one-shot cursors:
//
//	func (p *Point) MarshalRunic(cx *runic.Context, enc runic.Encoder) error {
//		st, err := enc.EncodeStruct(2)
//		if err != nil {
//			return err
//		}
//		fe, err := st.EncodeField("x", 0)
//		if err != nil {
//			return err
//		}
//		if err := fe.EncodeInt32(p.X); err != nil {
//			return err
//		}
//		// ... field "y" ...
//		return st.End()
//	}
//
// Compound values recurse into sub-cursors sharing the same Context.
// Every sub-cursor must be closed with End exactly once.
//
// # Entry Points
//
//	data, err := runic.DefaultWire.EncodeBytes(&point)
//	err = runic.DefaultWire.DecodeBytes(data, &point)
//
// Framed streaming (with optional lz4/zstd compression and BLAKE3
// checksums) lives in EncodeFrame/DecodeFrame and the io-oriented
// WriteFrame/ReadFrame. The descriptive tier's
// dynamic representation round-trips to JSON via ValueToJSON and
// ValueFromJSON.
package runic
