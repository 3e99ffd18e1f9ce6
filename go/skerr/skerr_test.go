package skerr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap_Nil_ReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(nil))
	require.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestWrap_RecordsLocationAndKeepsCause(t *testing.T) {
	err := Wrap(io.EOF)
	require.Error(t, err)
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, io.EOF, Unwrap(err))
	require.Contains(t, err.Error(), "skerr/skerr_test.go:")
}

func TestWrap_AlreadyWrapped_ReturnsSameError(t *testing.T) {
	err := Wrap(io.EOF)
	require.Same(t, err, Wrap(err))
}

func TestWrapf_PrependsContextInOrder(t *testing.T) {
	err := Wrapf(io.EOF, "reading row %s", "abc")
	err = Wrapf(err, "scanning table %s", "t1")
	require.True(t, errors.Is(err, io.EOF))
	require.Contains(t, err.Error(), "scanning table t1: reading row abc: EOF. At ")
}

func TestFmt_FormatsMessage(t *testing.T) {
	err := Fmt("bad value %q", "x")
	require.Contains(t, err.Error(), `bad value "x". At `)
}
