package vdf

import "fmt"

// MalformedInputError reports a text-format grammar violation: an
// unterminated quote or escape, a dangling key, a submap in key position,
// or an unbalanced closing brace.
type MalformedInputError struct {
	Reason string
	Offset int64 // byte offset into the input, -1 if unknown
}

func (e *MalformedInputError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("vdf: malformed input: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("vdf: malformed input: %s", e.Reason)
}

// TruncatedError reports that the input ended in the middle of a fixed
// payload or before a delimiter was found.
type TruncatedError struct {
	What   string // what was being read
	Offset int64
	Err    error // underlying read error, if any
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("vdf: truncated input: %s at offset %d", e.What, e.Offset)
}

func (e *TruncatedError) Unwrap() error {
	return e.Err
}

// UnknownTypeTagError reports a binary tag byte outside the known set.
type UnknownTypeTagError struct {
	Tag    byte
	Offset int64 // offset of the tag byte
}

func (e *UnknownTypeTagError) Error() string {
	return fmt.Sprintf("vdf: unknown type tag 0x%02x at offset %d", e.Tag, e.Offset)
}

// KeyIndexError reports a key-table index with no corresponding entry.
type KeyIndexError struct {
	Index uint32
	Len   int // number of entries in the table
}

func (e *KeyIndexError) Error() string {
	return fmt.Sprintf("vdf: key table index %d out of range (table has %d entries)", e.Index, e.Len)
}

// DuplicateKeyError reports two keys that collide after case folding
// during bulk construction of a case-folding Map.
type DuplicateKeyError struct {
	Key string // the folded key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("vdf: duplicate key %q after case folding", e.Key)
}
