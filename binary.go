package vdf

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Binary type tags. Every record is a tag byte, a key (inline
// null-terminated string, or a 4-byte KeyTable index in table-based
// files), and a tag-specific payload. All scalars are little-endian.
const (
	tagSubmap     byte = 0x00 // key/value records until an end tag
	tagString     byte = 0x01 // null-terminated UTF-8
	tagInt32      byte = 0x02 // 4 bytes
	tagFloat32    byte = 0x03 // 4 bytes IEEE-754
	tagPointer    byte = 0x04 // 4 bytes, decoded as int32
	tagWideString byte = 0x05 // UTF-16, framing depends on revision
	tagColor      byte = 0x06 // 4 bytes, decoded as int32
	tagUint64     byte = 0x07 // 8 bytes
	tagEnd        byte = 0x08 // end of submap
	tagInt64      byte = 0x0A // 8 bytes
	tagEndAlt     byte = 0x0B // end of submap, alternate
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// BinaryDecodeOptions configures a BinaryDecoder.
type BinaryDecodeOptions struct {
	// Keys switches key decoding from inline null-terminated strings to
	// 4-byte indexes into this table. The table is referenced, not
	// owned; it must outlive the decoder.
	Keys *KeyTable

	// LengthPrefixedWideStrings selects the newer tag 0x05 framing: a
	// 2-byte code-unit count instead of a null delimiter.
	LengthPrefixedWideStrings bool

	// Factory builds each decoded (sub)map. Defaults to MapFromPairs.
	Factory MapFactory
}

// BinaryDecoder decodes binary-format records from a byte stream.
type BinaryDecoder struct {
	r    *binReader
	opts BinaryDecodeOptions
}

// NewBinaryDecoder creates a decoder positioned at the start of a record
// sequence.
func NewBinaryDecoder(r io.Reader, opts BinaryDecodeOptions) *BinaryDecoder {
	if opts.Factory == nil {
		opts.Factory = MapFromPairs
	}
	return &BinaryDecoder{r: newBinReader(r), opts: opts}
}

// Offset returns the number of bytes consumed so far.
func (d *BinaryDecoder) Offset() int64 {
	return d.r.off
}

// DecodeMap decodes key/value records up to and including an end-of-map
// tag (either variant) and builds them into a Map.
func (d *BinaryDecoder) DecodeMap() (*Map, error) {
	var pairs []Entry
	for {
		tagOff := d.r.off
		tag, err := d.r.readByte("type tag")
		if err != nil {
			return nil, err
		}
		if tag == tagEnd || tag == tagEndAlt {
			return d.opts.Factory(pairs)
		}
		key, err := d.readKey()
		if err != nil {
			return nil, err
		}
		val, err := d.DecodeValue(tag, tagOff)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Entry{Key: key, Value: val})
	}
}

// DecodeValue decodes one value whose type tag has already been read.
// tagOff is the offset of the tag byte, used for diagnostics.
func (d *BinaryDecoder) DecodeValue(tag byte, tagOff int64) (*Value, error) {
	switch tag {
	case tagSubmap:
		sub, err := d.DecodeMap()
		if err != nil {
			return nil, err
		}
		return FromMap(sub), nil
	case tagString:
		s, err := d.r.readCString("string value")
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case tagInt32, tagPointer, tagColor:
		v, err := d.r.readU32("int32 value")
		if err != nil {
			return nil, err
		}
		return Int32(int32(v)), nil
	case tagFloat32:
		v, err := d.r.readU32("float32 value")
		if err != nil {
			return nil, err
		}
		return Float32(math.Float32frombits(v)), nil
	case tagWideString:
		s, err := d.readWideString()
		if err != nil {
			return nil, err
		}
		return WideString(s), nil
	case tagUint64:
		v, err := d.r.readU64("uint64 value")
		if err != nil {
			return nil, err
		}
		return Uint64(v), nil
	case tagInt64:
		v, err := d.r.readU64("int64 value")
		if err != nil {
			return nil, err
		}
		return Int64(int64(v)), nil
	default:
		return nil, &UnknownTypeTagError{Tag: tag, Offset: tagOff}
	}
}

func (d *BinaryDecoder) readKey() (string, error) {
	if d.opts.Keys == nil {
		return d.r.readCString("key")
	}
	idx, err := d.r.readU32("key index")
	if err != nil {
		return "", err
	}
	return d.opts.Keys.Key(idx)
}

func (d *BinaryDecoder) readWideString() (string, error) {
	var raw []byte
	if d.opts.LengthPrefixedWideStrings {
		n, err := d.r.readU16("wide string length")
		if err != nil {
			return "", err
		}
		raw = make([]byte, int(n)*2)
		if err := d.r.readFull(raw, "wide string"); err != nil {
			return "", err
		}
	} else {
		// Null-delimited: UTF-16 code units until 0x0000.
		var buf [2]byte
		for {
			if err := d.r.readFull(buf[:], "wide string"); err != nil {
				return "", err
			}
			if buf[0] == 0 && buf[1] == 0 {
				break
			}
			raw = append(raw, buf[0], buf[1])
		}
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// BinaryEncodeOptions configures a BinaryEncoder.
type BinaryEncodeOptions struct {
	// LengthPrefixedWideStrings mirrors the decoder option.
	LengthPrefixedWideStrings bool
}

// BinaryEncoder writes binary-format records. Keys are always written
// inline; key tables are a read-side size optimization (see KeyTable).
type BinaryEncoder struct {
	w    *bufio.Writer
	opts BinaryEncodeOptions
}

// NewBinaryEncoder creates an encoder writing to w. Call Flush when done.
func NewBinaryEncoder(w io.Writer, opts BinaryEncodeOptions) *BinaryEncoder {
	return &BinaryEncoder{w: bufio.NewWriter(w), opts: opts}
}

// EncodeMap writes all entries of m followed by an end-of-map tag.
func (e *BinaryEncoder) EncodeMap(m *Map) error {
	for _, entry := range m.Entries() {
		if err := e.EncodeValue(entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return e.w.WriteByte(tagEnd)
}

// EncodeValue writes one record: tag, key, payload.
func (e *BinaryEncoder) EncodeValue(key string, v *Value) error {
	switch v.Kind() {
	case KindMap:
		e.w.WriteByte(tagSubmap)
		e.writeCString(key)
		return e.EncodeMap(v.m)
	case KindString:
		e.w.WriteByte(tagString)
		e.writeCString(key)
		e.writeCString(v.str)
	case KindInt32:
		e.w.WriteByte(tagInt32)
		e.writeCString(key)
		e.writeU32(uint32(v.i32))
	case KindFloat32:
		e.w.WriteByte(tagFloat32)
		e.writeCString(key)
		e.writeU32(math.Float32bits(v.f32))
	case KindWideString:
		e.w.WriteByte(tagWideString)
		e.writeCString(key)
		return e.writeWideString(v.str)
	case KindUint64:
		e.w.WriteByte(tagUint64)
		e.writeCString(key)
		e.writeU64(v.u64)
	case KindInt64:
		e.w.WriteByte(tagInt64)
		e.writeCString(key)
		e.writeU64(uint64(v.i64))
	}
	return nil
}

// Flush writes buffered output and reports any write error.
func (e *BinaryEncoder) Flush() error {
	return e.w.Flush()
}

func (e *BinaryEncoder) writeCString(s string) {
	e.w.WriteString(s)
	e.w.WriteByte(0)
}

func (e *BinaryEncoder) writeU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	e.w.Write(buf[:])
}

func (e *BinaryEncoder) writeU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.w.Write(buf[:])
}

func (e *BinaryEncoder) writeWideString(s string) error {
	raw, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	if e.opts.LengthPrefixedWideStrings {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(len(raw)/2))
		e.w.Write(buf[:])
		e.w.Write(raw)
	} else {
		e.w.Write(raw)
		e.w.Write([]byte{0, 0})
	}
	return nil
}

// binReader is a byte cursor over a buffered reader, tracking the
// absolute offset for error reporting.
type binReader struct {
	br  *bufio.Reader
	off int64
}

func newBinReader(r io.Reader) *binReader {
	return &binReader{br: bufio.NewReader(r)}
}

func (b *binReader) readByte(what string) (byte, error) {
	c, err := b.br.ReadByte()
	if err != nil {
		return 0, &TruncatedError{What: what, Offset: b.off, Err: err}
	}
	b.off++
	return c, nil
}

func (b *binReader) readFull(buf []byte, what string) error {
	n, err := io.ReadFull(b.br, buf)
	b.off += int64(n)
	if err != nil {
		return &TruncatedError{What: what, Offset: b.off, Err: err}
	}
	return nil
}

func (b *binReader) readU16(what string) (uint16, error) {
	var buf [2]byte
	if err := b.readFull(buf[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (b *binReader) readU32(what string) (uint32, error) {
	var buf [4]byte
	if err := b.readFull(buf[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (b *binReader) readU64(what string) (uint64, error) {
	var buf [8]byte
	if err := b.readFull(buf[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readCString reads bytes up to a null delimiter and decodes them as
// UTF-8, replacing invalid sequences rather than failing.
func (b *binReader) readCString(what string) (string, error) {
	raw, err := b.br.ReadBytes(0)
	b.off += int64(len(raw))
	if err != nil {
		return "", &TruncatedError{What: what, Offset: b.off, Err: err}
	}
	return strings.ToValidUTF8(string(raw[:len(raw)-1]), "�"), nil
}
