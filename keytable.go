package vdf

import "io"

// KeyTable is an external array of key strings referenced by index
// instead of being inlined per record, a size optimization used by newer
// binary container revisions. It is immutable after loading and is
// referenced, not owned, by decoders.
type KeyTable struct {
	keys []string
}

// LoadKeyTable reads a key table at the given file offset: a 4-byte
// count followed by that many null-terminated UTF-8 strings packed
// contiguously. The caller's read position is left wherever the table
// ends; seek back before reading anything else.
func LoadKeyTable(r io.ReadSeeker, offset int64) (*KeyTable, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	br := newBinReader(r)
	br.off = offset
	count, err := br.readU32("key table count")
	if err != nil {
		return nil, err
	}
	t := &KeyTable{}
	for i := uint32(0); i < count; i++ {
		key, err := br.readCString("key table entry")
		if err != nil {
			return nil, err
		}
		t.keys = append(t.keys, key)
	}
	return t, nil
}

// KeyTableFromStrings builds a table from an in-memory key list.
func KeyTableFromStrings(keys []string) *KeyTable {
	return &KeyTable{keys: append([]string(nil), keys...)}
}

// Len returns the number of entries.
func (t *KeyTable) Len() int {
	return len(t.keys)
}

// Key resolves a 0-based index. An out-of-range index is a
// *KeyIndexError; it means the file references a key the table never
// declared, which is fatal to the decode that hit it.
func (t *KeyTable) Key(i uint32) (string, error) {
	if int64(i) >= int64(len(t.keys)) {
		return "", &KeyIndexError{Index: i, Len: len(t.keys)}
	}
	return t.keys[i], nil
}
