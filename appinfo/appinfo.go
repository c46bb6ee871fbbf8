// Package appinfo reads Steam's appcache/appinfo.vdf: a binary container
// holding one binary-VDF tree per application, preceded by fixed-size
// per-app headers.
//
// Opening a file performs a single forward scan that indexes every app
// header without decoding any payload; payloads decode lazily on first
// access and are cached per entry. A corrupt payload therefore surfaces
// only when that app is accessed, never at open time.
//
// An Index owns one file handle and assumes single-threaded access: it
// has no internal locking, and lazy loads mutate entries in place.
// Callers needing concurrency must synchronize externally or open
// independent Index instances.
package appinfo

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/steamfiles/vdf"
	"github.com/steamfiles/vdf/internal/logging"
)

// Known container magics, as little-endian reads of the leading four
// bytes (27 44 56 07, 28 44 56 07, 29 44 56 07 in file order).
const (
	MagicLegacy   uint32 = 0x07564427 // fixed 48-byte headers, inline keys
	MagicLegacy2  uint32 = 0x07564428 // same layout, hash field reserved
	MagicKeyTable uint32 = 0x07564429 // key table, 68-byte headers with second hash
)

// layout describes one header revision. The scan loop is generic over
// it, so the three revisions share one code path.
type layout struct {
	name          string
	headerSize    int64 // full header including app ID and size fields
	hashReserved  bool  // the 20-byte hash field carries no meaning
	hasSecondHash bool
	hasKeyTable   bool
	widePrefixed  bool // tag 0x05 framing for this revision
}

var layouts = map[uint32]layout{
	MagicLegacy:   {name: "legacy-v1", headerSize: 48},
	MagicLegacy2:  {name: "legacy-v2", headerSize: 48, hashReserved: true},
	MagicKeyTable: {name: "keytable-v1", headerSize: 68, hasSecondHash: true, hasKeyTable: true, widePrefixed: true},
}

// UnknownFormatError reports a leading magic outside the known set: the
// file is not an appinfo container (or a revision this package predates).
type UnknownFormatError struct {
	Magic uint32
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("appinfo: unrecognized magic 0x%08x", e.Magic)
}

// App is one indexed entry of a container. Header fields are populated
// eagerly during the open scan; the payload tree is loaded on first use
// of Data or Field.
type App struct {
	ID           uint32
	Size         uint32 // declared size: header remainder plus payload
	State        uint32 // state flags
	LastUpdate   uint32 // seconds since epoch
	AccessToken  uint64
	Hash         [20]byte  // content hash; reserved (no meaning) under MagicLegacy2
	BinaryHash   *[20]byte // second hash; nil in revisions before MagicKeyTable
	ChangeNumber uint32

	offset      int64 // payload start within the file
	payloadSize int64
	owner       *Index
	data        *vdf.Map
}

// LastUpdated returns the last-update timestamp as a time.Time.
func (a *App) LastUpdated() time.Time {
	return time.Unix(int64(a.LastUpdate), 0)
}

// Data returns the decoded payload tree, reading and caching it on first
// call. The returned Map is the cache itself, not a copy: mutating it
// mutates what every later call observes. That sharing is deliberate
// (decoded trees are large) but means callers must treat the result as
// read-only.
func (a *App) Data() (*vdf.Map, error) {
	if a.data != nil {
		return a.data, nil
	}
	x := a.owner
	if _, err := x.src.Seek(a.offset, io.SeekStart); err != nil {
		return nil, err
	}
	dec := vdf.NewBinaryDecoder(io.LimitReader(x.src, a.payloadSize), vdf.BinaryDecodeOptions{
		Keys:                      x.keys,
		LengthPrefixedWideStrings: x.layout.widePrefixed,
	})
	m, err := dec.DecodeMap()
	if err != nil {
		return nil, err
	}
	a.data = m
	x.log.Debug().Uint32("appid", a.ID).Int64("bytes", dec.Offset()).Msg("decoded app payload")
	return m, nil
}

// Field returns a top-level value of the payload tree, loading the
// payload if needed. A missing key returns (nil, nil).
func (a *App) Field(name string) (*vdf.Value, error) {
	m, err := a.Data()
	if err != nil {
		return nil, err
	}
	v, ok := m.Get(name)
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Index is an opened container: the app-ID index over one file handle.
type Index struct {
	src      io.ReadSeeker
	closer   io.Closer
	layout   layout
	universe uint32
	keys     *vdf.KeyTable
	apps     map[uint32]*App
	order    []uint32
	log      zerolog.Logger
}

// Open opens an appinfo container file and scans its index.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	x, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	x.closer = f
	return x, nil
}

// New scans an index from an already-open source. The source must stay
// open for the Index's lifetime; payloads are read from it lazily.
func New(r io.ReadSeeker) (*Index, error) {
	x := &Index{
		src:  r,
		apps: make(map[uint32]*App),
		log:  logging.GetLogger("appinfo"),
	}

	var head [8]byte
	pos, err := x.readFull(r, head[:], 0, "container header")
	if err != nil {
		return nil, err
	}
	magic := binary.LittleEndian.Uint32(head[0:4])
	lay, ok := layouts[magic]
	if !ok {
		return nil, &UnknownFormatError{Magic: magic}
	}
	x.layout = lay
	x.universe = binary.LittleEndian.Uint32(head[4:8])

	if lay.hasKeyTable {
		var off [8]byte
		pos, err = x.readFull(r, off[:], pos, "key table offset")
		if err != nil {
			return nil, err
		}
		tableOff := int64(binary.LittleEndian.Uint64(off[:]))
		keys, err := vdf.LoadKeyTable(r, tableOff)
		if err != nil {
			return nil, err
		}
		x.keys = keys
		// The table lives past the app records; rewind to the first
		// header.
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
	}

	if err := x.scan(pos); err != nil {
		return nil, err
	}
	x.log.Debug().
		Str("format", lay.name).
		Uint32("universe", x.universe).
		Int("apps", len(x.order)).
		Msg("indexed appinfo container")
	return x, nil
}

// scan walks the fixed-size headers, recording each payload offset and
// skipping payload bytes, until the zero app-ID sentinel.
func (x *Index) scan(pos int64) error {
	lay := x.layout
	hdr := make([]byte, lay.headerSize-4)
	for {
		var idb [4]byte
		var err error
		pos, err = x.readFull(x.src, idb[:], pos, "app header")
		if err != nil {
			return err
		}
		id := binary.LittleEndian.Uint32(idb[:])
		if id == 0 {
			// End-of-index sentinel in place of the next app ID.
			return nil
		}
		pos, err = x.readFull(x.src, hdr, pos, "app header")
		if err != nil {
			return err
		}

		app := &App{
			ID:           id,
			Size:         binary.LittleEndian.Uint32(hdr[0:4]),
			State:        binary.LittleEndian.Uint32(hdr[4:8]),
			LastUpdate:   binary.LittleEndian.Uint32(hdr[8:12]),
			AccessToken:  binary.LittleEndian.Uint64(hdr[12:20]),
			ChangeNumber: binary.LittleEndian.Uint32(hdr[40:44]),
			offset:       pos,
			owner:        x,
		}
		copy(app.Hash[:], hdr[20:40])
		if lay.hasSecondHash {
			var h2 [20]byte
			copy(h2[:], hdr[44:64])
			app.BinaryHash = &h2
		}

		// The declared size counts from just past the size field, so
		// the header bytes already consumed reduce the skip.
		app.payloadSize = int64(app.Size) - (lay.headerSize - 8)
		if app.payloadSize < 0 {
			return &vdf.TruncatedError{What: "app header (declared size smaller than header)", Offset: pos}
		}
		pos, err = x.src.Seek(app.payloadSize, io.SeekCurrent)
		if err != nil {
			return err
		}

		if _, dup := x.apps[id]; !dup {
			x.order = append(x.order, id)
		}
		x.apps[id] = app
	}
}

func (x *Index) readFull(r io.Reader, buf []byte, pos int64, what string) (int64, error) {
	n, err := io.ReadFull(r, buf)
	pos += int64(n)
	if err != nil {
		return pos, &vdf.TruncatedError{What: what, Offset: pos, Err: err}
	}
	return pos, nil
}

// Universe returns the container's universe identifier (opaque).
func (x *Index) Universe() uint32 {
	return x.universe
}

// Len returns the number of indexed apps.
func (x *Index) Len() int {
	return len(x.order)
}

// App returns the entry for an app ID.
func (x *Index) App(id uint32) (*App, bool) {
	a, ok := x.apps[id]
	return a, ok
}

// Apps returns all entries in file order. Only index metadata is
// populated; payloads still load lazily.
func (x *Index) Apps() []*App {
	out := make([]*App, len(x.order))
	for i, id := range x.order {
		out[i] = x.apps[id]
	}
	return out
}

// Close releases the underlying file if this Index opened it. An Index
// built with New over a caller-owned source closes nothing.
func (x *Index) Close() error {
	if x.closer == nil {
		return nil
	}
	c := x.closer
	x.closer = nil
	return c.Close()
}
