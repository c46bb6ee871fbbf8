package appinfo

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamfiles/vdf"
)

type fixtureApp struct {
	id      uint32
	state   uint32
	last    uint32
	token   uint64
	change  uint32
	payload []byte
}

func encodePayload(t *testing.T, m *vdf.Map) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := vdf.NewBinaryEncoder(&buf, vdf.BinaryEncodeOptions{})
	require.NoError(t, enc.EncodeMap(m))
	require.NoError(t, enc.Flush())
	return buf.Bytes()
}

func appHash(id uint32) [20]byte {
	var h [20]byte
	for i := range h {
		h[i] = byte(id) + byte(i)
	}
	return h
}

// buildContainer assembles a synthetic appinfo file: magic, universe,
// optional key table offset, fixed headers with payloads, zero sentinel,
// and the key table itself past the records.
func buildContainer(t *testing.T, magic, universe uint32, apps []fixtureApp, keys []string) []byte {
	t.Helper()
	lay, ok := layouts[magic]
	require.True(t, ok, "fixture magic must be known")

	var buf bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&buf, le, magic)
	binary.Write(&buf, le, universe)

	tableOffPos := -1
	if lay.hasKeyTable {
		tableOffPos = buf.Len()
		binary.Write(&buf, le, uint64(0)) // patched below
	}

	for _, app := range apps {
		size := uint32(lay.headerSize-8) + uint32(len(app.payload))
		binary.Write(&buf, le, app.id)
		binary.Write(&buf, le, size)
		binary.Write(&buf, le, app.state)
		binary.Write(&buf, le, app.last)
		binary.Write(&buf, le, app.token)
		h := appHash(app.id)
		buf.Write(h[:])
		binary.Write(&buf, le, app.change)
		if lay.hasSecondHash {
			h2 := appHash(app.id + 1)
			buf.Write(h2[:])
		}
		buf.Write(app.payload)
	}
	binary.Write(&buf, le, uint32(0)) // end-of-index sentinel

	if lay.hasKeyTable {
		tableOff := uint64(buf.Len())
		binary.Write(&buf, le, uint32(len(keys)))
		for _, k := range keys {
			buf.WriteString(k)
			buf.WriteByte(0)
		}
		le.PutUint64(buf.Bytes()[tableOffPos:], tableOff)
	}

	return buf.Bytes()
}

func legacyFixture(t *testing.T) ([]fixtureApp, []*vdf.Map) {
	t.Helper()
	var trees []*vdf.Map
	var apps []fixtureApp
	for i, id := range []uint32{70, 220, 440} {
		common := vdf.NewMap()
		common.SetString("name", "app")
		common.Set("gameid", vdf.Int32(int32(id)))
		root := vdf.NewMap()
		root.SetMap("appinfo", common)
		trees = append(trees, root)
		apps = append(apps, fixtureApp{
			id:      id,
			state:   uint32(i + 1),
			last:    1600000000 + uint32(i),
			token:   uint64(id) * 7,
			change:  9000 + uint32(i),
			payload: encodePayload(t, root),
		})
	}
	return apps, trees
}

func TestNew_LegacyScan(t *testing.T) {
	apps, trees := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)

	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	defer idx.Close()

	require.Equal(t, 3, idx.Len())
	assert.Equal(t, uint32(1), idx.Universe())

	got := idx.Apps()
	require.Len(t, got, 3)
	for i, app := range got {
		assert.Equal(t, apps[i].id, app.ID)
		assert.Equal(t, apps[i].state, app.State)
		assert.Equal(t, apps[i].last, app.LastUpdate)
		assert.Equal(t, apps[i].token, app.AccessToken)
		assert.Equal(t, apps[i].change, app.ChangeNumber)
		assert.Equal(t, appHash(apps[i].id), app.Hash)
		assert.Nil(t, app.BinaryHash)

		data, err := app.Data()
		require.NoError(t, err)
		assert.True(t, trees[i].Equal(data), "payload mismatch for app %d", app.ID)
	}
}

func TestNew_Legacy2(t *testing.T) {
	apps, trees := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy2, 2, apps, nil)

	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	app, ok := idx.App(220)
	require.True(t, ok)
	data, err := app.Data()
	require.NoError(t, err)
	assert.True(t, trees[1].Equal(data))
}

func TestNew_KeyTable(t *testing.T) {
	// Keys are 4-byte table indexes in this revision; hand-build a
	// payload of one int32 record plus terminator.
	var payload bytes.Buffer
	payload.WriteByte(0x02)                                  // int32 tag
	binary.Write(&payload, binary.LittleEndian, uint32(0))   // key index -> "appid"
	binary.Write(&payload, binary.LittleEndian, uint32(570)) // value
	payload.WriteByte(0x08)                                  // end of map

	apps := []fixtureApp{{
		id:      570,
		state:   4,
		last:    1700000000,
		token:   42,
		change:  12345,
		payload: payload.Bytes(),
	}}
	raw := buildContainer(t, MagicKeyTable, 1, apps, []string{"appid", "common"})

	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	app, ok := idx.App(570)
	require.True(t, ok)
	require.NotNil(t, app.BinaryHash)
	assert.Equal(t, appHash(571), *app.BinaryHash)

	data, err := app.Data()
	require.NoError(t, err)
	v, ok := data.Get("appid")
	require.True(t, ok)
	i, err := v.AsInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(570), i)
}

func TestNew_BadMagic(t *testing.T) {
	raw := []byte{0x26, 0x44, 0x56, 0x07, 1, 0, 0, 0}
	_, err := New(bytes.NewReader(raw))
	var ferr *UnknownFormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, uint32(0x07564426), ferr.Magic)
}

func TestNew_TruncatedHeader(t *testing.T) {
	apps, _ := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)

	// Cut inside the second app's fixed header.
	cut := 8 + int(layouts[MagicLegacy].headerSize) + len(apps[0].payload) + 10
	_, err := New(bytes.NewReader(raw[:cut]))
	var terr *vdf.TruncatedError
	require.ErrorAs(t, err, &terr)
}

func TestNew_EmptyContainer(t *testing.T) {
	raw := buildContainer(t, MagicLegacy, 1, nil, nil)
	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestScan_StopsAtSentinel(t *testing.T) {
	apps, _ := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)
	// Garbage past the sentinel must never be looked at.
	raw = append(raw, bytes.Repeat([]byte{0xFF}, 64)...)

	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}

type countingReadSeeker struct {
	*bytes.Reader
	reads int
}

func (c *countingReadSeeker) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

func TestApp_LazyLoadCaching(t *testing.T) {
	apps, trees := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)

	src := &countingReadSeeker{Reader: bytes.NewReader(raw)}
	idx, err := New(src)
	require.NoError(t, err)

	app, ok := idx.App(70)
	require.True(t, ok)
	scanReads := src.reads

	first, err := app.Data()
	require.NoError(t, err)
	loadReads := src.reads
	assert.Greater(t, loadReads, scanReads, "first access must read the file")
	assert.True(t, trees[0].Equal(first))

	second, err := app.Data()
	require.NoError(t, err)
	assert.Equal(t, loadReads, src.reads, "second access must be served from the cache")
	assert.Same(t, first, second)
}

func TestApp_DeferredPayloadError(t *testing.T) {
	goodTree := vdf.NewMap()
	goodTree.SetString("ok", "yes")

	// Size-consistent but malformed payload: the string value never
	// terminates inside the declared payload bytes.
	corrupt := []byte{0x01, 'k', 0x00, 'v'}

	apps := []fixtureApp{
		{id: 10, payload: corrupt},
		{id: 20, payload: encodePayload(t, goodTree)},
	}
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)

	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err, "corruption must not surface at open time")
	require.Equal(t, 2, idx.Len())

	good, _ := idx.App(20)
	data, err := good.Data()
	require.NoError(t, err)
	assert.Equal(t, "yes", data.GetString("ok", ""))

	bad, _ := idx.App(10)
	_, err = bad.Data()
	var terr *vdf.TruncatedError
	require.ErrorAs(t, err, &terr)
}

func TestApp_Field(t *testing.T) {
	apps, _ := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)
	idx, err := New(bytes.NewReader(raw))
	require.NoError(t, err)

	app, _ := idx.App(440)
	v, err := app.Field("appinfo")
	require.NoError(t, err)
	require.NotNil(t, v)
	sub, err := v.AsMap()
	require.NoError(t, err)
	assert.Equal(t, "app", sub.GetString("name", ""))

	missing, err := app.Field("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApp_LastUpdated(t *testing.T) {
	app := &App{LastUpdate: 1600000000}
	assert.Equal(t, time.Unix(1600000000, 0), app.LastUpdated())
}

func TestIndex_OpenAndClose(t *testing.T) {
	apps, _ := legacyFixture(t)
	raw := buildContainer(t, MagicLegacy, 1, apps, nil)

	path := filepath.Join(t.TempDir(), "appinfo.vdf")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	idx, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	app, ok := idx.App(70)
	require.True(t, ok)
	_, err = app.Data()
	require.NoError(t, err)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close(), "Close is idempotent")
}

func TestIndex_OpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.vdf"))
	require.Error(t, err)
}
