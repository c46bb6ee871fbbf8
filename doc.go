// Package vdf implements the recursive key-value format used by the Steam
// client, in both of its wire encodings.
//
// The text form ("KeyValues") is a brace-delimited tree of quoted or bare
// tokens with C++-style line comments:
//
//	"AppState"
//	{
//		"appid"		"220"
//		"UserConfig"
//		{
//			"language"	"english"
//		}
//	}
//
// The binary form is a stream of type-tagged records with little-endian
// scalars, null-terminated or length-prefixed strings, and explicit
// end-of-map terminators. Newer revisions replace inline key strings with
// 4-byte indexes into an external KeyTable.
//
// Both encodings decode into the same representation: an ordered Map from
// string keys to Values, where a Value is a scalar or a nested Map.
// Insertion order is preserved and round-trips through both encodings.
//
// The appinfo subpackage reads the multi-record binary container that
// stores one such tree per Steam application.
package vdf
