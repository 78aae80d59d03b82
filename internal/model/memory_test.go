package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, s := range []string{"auto", "manual", "pattern", "decision"} {
		got, err := ParseType(s)
		require.NoError(t, err, s)
		assert.Equal(t, Type(s), got)
	}

	for _, s := range []string{"", "Auto", "note", "semantic"} {
		_, err := ParseType(s)
		assert.True(t, errors.Is(err, ErrUnknownValue), "expected ErrUnknownValue for %q", s)
	}
}

func TestParseUserTypeRejectsAuto(t *testing.T) {
	_, err := ParseUserType("auto")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownValue)

	got, err := ParseUserType("")
	require.NoError(t, err)
	assert.Equal(t, TypeManual, got)

	got, err = ParseUserType("decision")
	require.NoError(t, err)
	assert.Equal(t, TypeDecision, got)
}

func TestParseStatusAndScope(t *testing.T) {
	s, err := ParseStatus("cold")
	require.NoError(t, err)
	assert.Equal(t, StatusCold, s)

	_, err = ParseStatus("Active")
	assert.ErrorIs(t, err, ErrUnknownValue)
	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrUnknownValue)

	sc, err := ParseScope("global")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, sc)

	_, err = ParseScope("Global")
	assert.ErrorIs(t, err, ErrUnknownValue)
	_, err = ParseScope("team")
	assert.ErrorIs(t, err, ErrUnknownValue)
}
