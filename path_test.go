package vdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appinfoTree() *Map {
	common := NewMap()
	common.SetString("name", "Half-Life")
	common.SetString("oslist", "windows,linux")

	config := NewMap()
	config.SetString("installdir", "Half-Life")

	info := NewMap()
	info.SetMap("common", common)
	info.SetMap("config", config)

	root := NewMap()
	root.SetMap("appinfo", info)
	return root
}

func TestGetPath_Nested(t *testing.T) {
	m := appinfoTree()

	v, ok := GetPath(m, Key("appinfo"), Key("common"), Key("name"))
	require.True(t, ok)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "Half-Life", s)
}

func TestGetPath_AlternativesFirstMatchWins(t *testing.T) {
	m := appinfoTree()

	// Neither "Common" nor "extended" exists; "common" matches.
	v, ok := GetPath(m, Key("appinfo"), Any("Common", "common", "extended"), Key("oslist"))
	require.True(t, ok)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "windows,linux", s)
}

func TestGetPath_Missing(t *testing.T) {
	m := appinfoTree()

	_, ok := GetPath(m, Key("appinfo"), Key("depots"))
	assert.False(t, ok)

	// Scalar reached before the last segment.
	_, ok = GetPath(m, Key("appinfo"), Key("common"), Key("name"), Key("deeper"))
	assert.False(t, ok)
}

func TestGetPath_EmptyPathReturnsRoot(t *testing.T) {
	m := appinfoTree()
	v, ok := GetPath(m)
	require.True(t, ok)
	assert.True(t, v.IsMap())
}

func TestGetPathString(t *testing.T) {
	m := appinfoTree()

	assert.Equal(t, "Half-Life", GetPathString(m, "fallback", Key("appinfo"), Key("config"), Key("installdir")))
	assert.Equal(t, "fallback", GetPathString(m, "fallback", Key("appinfo"), Key("config"), Key("missing")))
	// A Map endpoint has no scalar text.
	assert.Equal(t, "fallback", GetPathString(m, "fallback", Key("appinfo"), Key("common")))
}
